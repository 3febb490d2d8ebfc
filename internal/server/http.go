package server

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"tradestat/internal/market"
	symbolpkg "tradestat/internal/pkg/symbol"
	"tradestat/internal/run"

	"github.com/gin-gonic/gin"
)

// Server 提供交易统计的 HTTP API。
type Server struct {
	addr   string
	svc    *run.Service
	router *gin.Engine
}

// Config 描述 HTTP Server 的依赖。
type Config struct {
	Addr string
	Svc  *run.Service
}

// NewServer 构建统计 HTTP Server。
func NewServer(cfg Config) (*Server, error) {
	if cfg.Svc == nil {
		return nil, errors.New("service 不能为空")
	}
	if cfg.Addr == "" {
		cfg.Addr = ":9980"
	}

	gin.SetMode(gin.ReleaseMode)
	router := gin.New()
	router.Use(gin.Recovery())

	s := &Server{
		addr:   cfg.Addr,
		svc:    cfg.Svc,
		router: router,
	}
	s.registerRoutes()
	return s, nil
}

// Router 暴露底层路由，便于测试直接发请求。
func (s *Server) Router() http.Handler { return s.router }

func (s *Server) registerRoutes() {
	api := s.router.Group("/api")
	api.POST("/runs", s.handleRunStart)
	api.GET("/runs", s.handleRunList)
	api.GET("/runs/:id", s.handleRunDetail)
	api.GET("/runs/:id/trades", s.handleRunTrades)
	api.GET("/runs/:id/report", s.handleRunReport)
	api.GET("/fills", s.handleFills)
	api.POST("/import", s.handleImport)
}

func (s *Server) handleRunStart(c *gin.Context) {
	var req run.Request
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	r, err := s.svc.StartRun(c.Request.Context(), req)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusAccepted, gin.H{"run": r})
}

func (s *Server) handleRunList(c *gin.Context) {
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "50"))
	offset, _ := strconv.Atoi(c.DefaultQuery("offset", "0"))
	runs, err := s.svc.Results().List(c.Query("symbol"), limit, offset)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"runs": runs})
}

func (s *Server) handleRunDetail(c *gin.Context) {
	r, err := s.svc.Results().Get(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"run": r})
}

func (s *Server) handleRunTrades(c *gin.Context) {
	r, err := s.svc.Results().Get(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
		return
	}
	if r.Stats == nil {
		c.JSON(http.StatusConflict, gin.H{"error": "任务尚未产出统计结果"})
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"counts": gin.H{
			"total":        r.Stats.Trades,
			"profitable":   r.Stats.Profitable,
			"unprofitable": r.Stats.Unprofitable,
			"even":         r.Stats.Even,
		},
		"all":              r.Stats.All,
		"profits":          r.Stats.Profits,
		"losses":           r.Stats.Losses,
		"all_returns":      r.Stats.AllReturns,
		"positive_returns": r.Stats.PositiveReturns,
		"negative_returns": r.Stats.NegativeReturns,
	})
}

func (s *Server) handleRunReport(c *gin.Context) {
	r, err := s.svc.Results().Get(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
		return
	}
	if r.ReportPath == "" {
		c.JSON(http.StatusNotFound, gin.H{"error": "报告不存在"})
		return
	}
	c.File(r.ReportPath)
}

func (s *Server) handleFills(c *gin.Context) {
	symbol := c.Query("symbol")
	if symbol == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "symbol 必填"})
		return
	}
	start, _ := strconv.ParseInt(c.Query("start"), 10, 64)
	end, _ := strconv.ParseInt(c.Query("end"), 10, 64)
	limit, err := strconv.Atoi(c.DefaultQuery("limit", "200"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "limit 非法"})
		return
	}
	fills, err := s.svc.Fills().ListFills(c.Request.Context(), symbol, start, end, limit)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"fills": fills})
}

type importFill struct {
	Time       int64   `json:"time" binding:"required"`
	Status     string  `json:"status" binding:"required"`
	Action     string  `json:"action" binding:"required"`
	Price      float64 `json:"price"`
	Quantity   int     `json:"quantity" binding:"required"`
	Commission float64 `json:"commission"`
}

func (s *Server) handleImport(c *gin.Context) {
	var req struct {
		Symbol string       `json:"symbol" binding:"required"`
		Fills  []importFill `json:"fills" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	symbol := symbolpkg.Normalize(req.Symbol)
	events := make([]market.OrderEvent, 0, len(req.Fills))
	for _, f := range req.Fills {
		action, err := market.ParseAction(f.Action)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		if f.Quantity <= 0 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "quantity 必须为正"})
			return
		}
		events = append(events, market.OrderEvent{
			Symbol: symbol,
			Status: strings.ToLower(f.Status),
			Action: action,
			Execution: market.Execution{
				Price:      f.Price,
				Quantity:   f.Quantity,
				Commission: f.Commission,
				Time:       time.UnixMilli(f.Time),
			},
		})
	}
	n, err := s.svc.Fills().InsertFills(c.Request.Context(), symbol, events)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"imported": n})
}

// Start 启动 HTTP 服务，阻塞直到 ctx 取消或出现错误。
func (s *Server) Start(ctx context.Context) error {
	srv := &http.Server{Addr: s.addr, Handler: s.router}
	errCh := make(chan error, 1)
	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case <-ctx.Done():
		shCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = srv.Shutdown(shCtx)
		return nil
	case err := <-errCh:
		return err
	}
}
