package replay

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"tradestat/internal/market"
	symbolpkg "tradestat/internal/pkg/symbol"

	_ "modernc.org/sqlite"
)

// Manifest 记录某个 symbol 成交库的统计信息。
type Manifest struct {
	Symbol     string `json:"symbol"`
	MinTime    int64  `json:"min_time"`
	MaxTime    int64  `json:"max_time"`
	Rows       int64  `json:"rows"`
	LastSyncAt int64  `json:"last_sync_at"`
	Path       string `json:"path"`
}

// Store 按 symbol 维护独立的 sqlite 成交库，按写入顺序保序。
type Store struct {
	root string

	mu  sync.Mutex
	dbs map[string]*sql.DB
}

func NewStore(root string) (*Store, error) {
	if root == "" {
		return nil, fmt.Errorf("data root 不能为空")
	}
	if err := os.MkdirAll(root, 0o755); err != nil {
		return nil, err
	}
	return &Store{root: root, dbs: make(map[string]*sql.DB)}, nil
}

func (s *Store) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	var firstErr error
	for k, db := range s.dbs {
		if db == nil {
			continue
		}
		if err := db.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
		delete(s.dbs, k)
	}
	return firstErr
}

func (s *Store) db(symbol string) (*sql.DB, string, error) {
	if symbol == "" {
		return nil, "", fmt.Errorf("symbol 不能为空")
	}
	key := symbolpkg.Normalize(symbol)
	s.mu.Lock()
	defer s.mu.Unlock()
	if db, ok := s.dbs[key]; ok && db != nil {
		return db, s.dbPath(symbol), nil
	}
	path := s.dbPath(symbol)
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, "", err
	}
	dsn := fmt.Sprintf("file:%s?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)&cache=shared", path)
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, "", err
	}
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	if err := ensureFillSchema(db, key); err != nil {
		_ = db.Close()
		return nil, "", err
	}
	s.dbs[key] = db
	return db, path, nil
}

func (s *Store) dbPath(symbol string) string {
	dir := filepath.Join(s.root, symbolpkg.Normalize(symbol))
	return filepath.Join(dir, "fills.db")
}

func ensureFillSchema(db *sql.DB, symbol string) error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS fills (
			seq         INTEGER PRIMARY KEY AUTOINCREMENT,
			trade_time  INTEGER NOT NULL,
			status      TEXT NOT NULL,
			action      TEXT NOT NULL,
			price       REAL NOT NULL,
			quantity    INTEGER NOT NULL,
			commission  REAL NOT NULL DEFAULT 0,
			inserted_at INTEGER NOT NULL DEFAULT (strftime('%s','now') * 1000)
		);`,
		`CREATE INDEX IF NOT EXISTS idx_fills_time ON fills(trade_time);`,
		`CREATE TABLE IF NOT EXISTS manifest (
			id INTEGER PRIMARY KEY CHECK (id=1),
			symbol TEXT NOT NULL,
			min_time INTEGER,
			max_time INTEGER,
			rows INTEGER DEFAULT 0,
			last_sync_at INTEGER
		);`,
		`INSERT INTO manifest (id, symbol) VALUES (1, ?)
		 ON CONFLICT(id) DO UPDATE SET symbol=excluded.symbol;`,
	}
	for i, stmt := range stmts {
		var err error
		if i == len(stmts)-1 {
			_, err = db.Exec(stmt, symbol)
		} else {
			_, err = db.Exec(stmt)
		}
		if err != nil {
			return err
		}
	}
	return nil
}

// InsertFills 追加写入成交事件。写入顺序即回放顺序，调用方负责
// 按发生时间投递；重复导入同一批数据会产生重复记录。
func (s *Store) InsertFills(ctx context.Context, symbol string, fills []market.OrderEvent) (int, error) {
	if len(fills) == 0 {
		return 0, nil
	}
	db, _, err := s.db(symbol)
	if err != nil {
		return 0, err
	}
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return 0, err
	}
	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO fills (trade_time, status, action, price, quantity, commission)
		VALUES (?, ?, ?, ?, ?, ?)`)
	if err != nil {
		_ = tx.Rollback()
		return 0, err
	}
	defer stmt.Close()
	count := 0
	for _, f := range fills {
		if _, err := stmt.ExecContext(ctx,
			f.Execution.Time.UnixMilli(), f.Status, string(f.Action),
			f.Execution.Price, f.Execution.Quantity, f.Execution.Commission); err != nil {
			_ = tx.Rollback()
			return 0, err
		}
		count++
	}
	if err := tx.Commit(); err != nil {
		return 0, err
	}
	if err := s.refreshManifest(ctx, db); err != nil {
		return count, err
	}
	return count, nil
}

// ReplaceFills 整表替换为给定的成交事件，用于文件整体重新导入。
func (s *Store) ReplaceFills(ctx context.Context, symbol string, fills []market.OrderEvent) (int, error) {
	db, _, err := s.db(symbol)
	if err != nil {
		return 0, err
	}
	if _, err := db.ExecContext(ctx, `DELETE FROM fills`); err != nil {
		return 0, err
	}
	count, err := s.InsertFills(ctx, symbol, fills)
	if err != nil {
		return count, err
	}
	if len(fills) == 0 {
		if err := s.refreshManifest(ctx, db); err != nil {
			return 0, err
		}
	}
	return count, nil
}

// ListFills 按 trade_time、写入顺序升序返回指定区间的成交事件。
func (s *Store) ListFills(ctx context.Context, symbol string, start, end int64, limit int) ([]market.OrderEvent, error) {
	db, _, err := s.db(symbol)
	if err != nil {
		return nil, err
	}
	if start > 0 && end > 0 && end < start {
		start, end = end, start
	}
	query := `SELECT trade_time, status, action, price, quantity, commission FROM fills`
	var (
		conds []string
		args  []any
	)
	if start > 0 {
		conds = append(conds, "trade_time >= ?")
		args = append(args, start)
	}
	if end > 0 {
		conds = append(conds, "trade_time <= ?")
		args = append(args, end)
	}
	if len(conds) > 0 {
		query += " WHERE " + strings.Join(conds, " AND ")
	}
	query += " ORDER BY trade_time ASC, seq ASC"
	if limit > 0 {
		query += " LIMIT ?"
		args = append(args, limit)
	}
	rows, err := db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	symbol = symbolpkg.Normalize(symbol)
	var out []market.OrderEvent
	for rows.Next() {
		var (
			ts       int64
			status   string
			action   string
			price    float64
			quantity int
			comm     float64
		)
		if err := rows.Scan(&ts, &status, &action, &price, &quantity, &comm); err != nil {
			return nil, err
		}
		out = append(out, market.OrderEvent{
			Symbol: symbol,
			Status: status,
			Action: market.Action(action),
			Execution: market.Execution{
				Price:      price,
				Quantity:   quantity,
				Commission: comm,
				Time:       time.UnixMilli(ts),
			},
		})
	}
	return out, rows.Err()
}

// Manifest 返回指定 symbol 的库统计。
func (s *Store) Manifest(ctx context.Context, symbol string) (Manifest, error) {
	db, path, err := s.db(symbol)
	if err != nil {
		return Manifest{}, err
	}
	row := db.QueryRowContext(ctx, `SELECT symbol, min_time, max_time, rows, last_sync_at FROM manifest WHERE id=1`)
	var m Manifest
	var minT, maxT, syncAt sql.NullInt64
	if err := row.Scan(&m.Symbol, &minT, &maxT, &m.Rows, &syncAt); err != nil {
		return Manifest{}, err
	}
	m.MinTime = minT.Int64
	m.MaxTime = maxT.Int64
	m.LastSyncAt = syncAt.Int64
	m.Path = path
	return m, nil
}

func (s *Store) refreshManifest(ctx context.Context, db *sql.DB) error {
	now := time.Now().UnixMilli()
	_, err := db.ExecContext(ctx, `
		UPDATE manifest
		SET min_time = (SELECT COALESCE(MIN(trade_time), 0) FROM fills),
		    max_time = (SELECT COALESCE(MAX(trade_time), 0) FROM fills),
		    rows = (SELECT COUNT(1) FROM fills),
		    last_sync_at = ?
		WHERE id = 1`, now)
	return err
}
