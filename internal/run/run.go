package run

import (
	"time"

	"github.com/google/uuid"
)

// 回放任务状态。
type Status string

const (
	StatusPending Status = "pending"
	StatusRunning Status = "running"
	StatusDone    Status = "done"
	StatusFailed  Status = "failed"
)

// Request 是发起一次统计回放的入参。
type Request struct {
	Symbol string `json:"symbol" binding:"required"`
	Source string `json:"source"`
	Start  int64  `json:"start"`
	End    int64  `json:"end"`
	Limit  int    `json:"limit"`
	Label  string `json:"label"`
}

// Config 是落库的任务配置快照。
type Config struct {
	Symbol string `json:"symbol"`
	Source string `json:"source"`
	Start  int64  `json:"start"`
	End    int64  `json:"end"`
	Limit  int    `json:"limit"`
	Label  string `json:"label,omitempty"`
}

// Stats 是一次回放结束后的统计快照。
type Stats struct {
	Fills        int     `json:"fills"`
	Trades       int     `json:"trades"`
	Profitable   int     `json:"profitable"`
	Unprofitable int     `json:"unprofitable"`
	Even         int     `json:"even"`
	WinRate      float64 `json:"win_rate"`
	TotalProfit  float64 `json:"total_profit"`

	All             []float64 `json:"all"`
	Profits         []float64 `json:"profits"`
	Losses          []float64 `json:"losses"`
	AllReturns      []float64 `json:"all_returns"`
	PositiveReturns []float64 `json:"positive_returns"`
	NegativeReturns []float64 `json:"negative_returns"`
}

// Run 是一次统计回放任务。
type Run struct {
	ID         string     `json:"id"`
	Status     Status     `json:"status"`
	Config     Config     `json:"config"`
	Stats      *Stats     `json:"stats,omitempty"`
	Error      string     `json:"error,omitempty"`
	ReportPath string     `json:"report_path,omitempty"`
	CreatedAt  time.Time  `json:"created_at"`
	FinishedAt *time.Time `json:"finished_at,omitempty"`
}

// NewRun 根据请求生成待执行任务。
func NewRun(req Request, defaultSource string) Run {
	source := req.Source
	if source == "" {
		source = defaultSource
	}
	return Run{
		ID:     uuid.NewString(),
		Status: StatusPending,
		Config: Config{
			Symbol: req.Symbol,
			Source: source,
			Start:  req.Start,
			End:    req.End,
			Limit:  req.Limit,
			Label:  req.Label,
		},
		CreatedAt: time.Now(),
	}
}
