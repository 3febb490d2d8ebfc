package server

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"tradestat/internal/replay"
	"tradestat/internal/run"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type payload = map[string]any

func newTestServer(t *testing.T) *Server {
	t.Helper()
	fills, err := replay.NewStore(t.TempDir())
	require.NoError(t, err)
	t.Cleanup(func() { _ = fills.Close() })
	results, err := run.NewResultStore(filepath.Join(t.TempDir(), "results.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = results.Close() })
	svc := run.NewService(run.ServiceOptions{MaxConcurrent: 1}, fills, results)
	srv, err := NewServer(Config{Svc: svc})
	require.NoError(t, err)
	return srv
}

func doJSON(t *testing.T, srv *Server, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	srv.Router().ServeHTTP(w, req)
	return w
}

func TestImportAndListFills(t *testing.T) {
	srv := newTestServer(t)

	w := doJSON(t, srv, http.MethodPost, "/api/import", payload{
		"symbol": "btcusdt",
		"fills": []payload{
			{"time": 1000, "status": "filled", "action": "buy", "price": 100.0, "quantity": 1},
			{"time": 2000, "status": "filled", "action": "sell", "price": 102.0, "quantity": 1},
		},
	})
	require.Equal(t, http.StatusOK, w.Code)
	var imported struct {
		Imported int `json:"imported"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &imported))
	assert.Equal(t, 2, imported.Imported)

	w = doJSON(t, srv, http.MethodGet, "/api/fills?symbol=BTCUSDT", nil)
	require.Equal(t, http.StatusOK, w.Code)
	var listed struct {
		Fills []json.RawMessage `json:"fills"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &listed))
	assert.Len(t, listed.Fills, 2)
}

func TestImportRejectsBadAction(t *testing.T) {
	srv := newTestServer(t)

	w := doJSON(t, srv, http.MethodPost, "/api/import", payload{
		"symbol": "BTCUSDT",
		"fills": []payload{
			{"time": 1000, "status": "filled", "action": "hold", "price": 1.0, "quantity": 1},
		},
	})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestFillsRequiresSymbol(t *testing.T) {
	srv := newTestServer(t)
	w := doJSON(t, srv, http.MethodGet, "/api/fills", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestRunLifecycleOverHTTP(t *testing.T) {
	srv := newTestServer(t)

	w := doJSON(t, srv, http.MethodPost, "/api/import", payload{
		"symbol": "ETHUSDT",
		"fills": []payload{
			{"time": 1000, "status": "filled", "action": "buy", "price": 100.0, "quantity": 2},
			{"time": 2000, "status": "filled", "action": "sell", "price": 105.0, "quantity": 2},
		},
	})
	require.Equal(t, http.StatusOK, w.Code)

	w = doJSON(t, srv, http.MethodPost, "/api/runs", payload{"symbol": "ETHUSDT"})
	require.Equal(t, http.StatusAccepted, w.Code)
	var started struct {
		Run run.Run `json:"run"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &started))
	require.NotEmpty(t, started.Run.ID)

	require.Eventually(t, func() bool {
		r, err := srv.svc.Results().Get(started.Run.ID)
		return err == nil && r.Status == run.StatusDone
	}, 5*time.Second, 10*time.Millisecond)

	w = doJSON(t, srv, http.MethodGet, "/api/runs/"+started.Run.ID, nil)
	require.Equal(t, http.StatusOK, w.Code)
	var detail struct {
		Run run.Run `json:"run"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &detail))
	require.NotNil(t, detail.Run.Stats)
	assert.Equal(t, 1, detail.Run.Stats.Trades)
	assert.Equal(t, 1, detail.Run.Stats.Profitable)

	w = doJSON(t, srv, http.MethodGet, "/api/runs/"+started.Run.ID+"/trades", nil)
	require.Equal(t, http.StatusOK, w.Code)
	var trades struct {
		All []float64 `json:"all"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &trades))
	assert.Equal(t, []float64{10}, trades.All)

	w = doJSON(t, srv, http.MethodGet, "/api/runs?symbol=ETHUSDT", nil)
	require.Equal(t, http.StatusOK, w.Code)
}

func TestRunStartValidation(t *testing.T) {
	srv := newTestServer(t)

	w := doJSON(t, srv, http.MethodPost, "/api/runs", payload{})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = doJSON(t, srv, http.MethodPost, "/api/runs", payload{"symbol": "BTCUSDT", "source": "nope"})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestRunDetailNotFound(t *testing.T) {
	srv := newTestServer(t)
	w := doJSON(t, srv, http.MethodGet, "/api/runs/missing", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = doJSON(t, srv, http.MethodGet, "/api/runs/missing/report", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}
