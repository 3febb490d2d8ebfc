package run

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	symbolpkg "tradestat/internal/pkg/symbol"

	"gorm.io/datatypes"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// runModel 是 stat_runs 表的行映射。配置与统计快照以 JSON 原样落库，
// 表结构不追随统计字段的演进。
type runModel struct {
	ID           string         `gorm:"column:id;primaryKey"`
	Symbol       string         `gorm:"column:symbol;index"`
	Status       string         `gorm:"column:status;index"`
	ConfigJSON   datatypes.JSON `gorm:"column:config_json;type:TEXT"`
	StatsJSON    datatypes.JSON `gorm:"column:stats_json;type:TEXT"`
	ErrorMessage string         `gorm:"column:error_message"`
	ReportPath   string         `gorm:"column:report_path"`
	CreatedAt    int64          `gorm:"column:created_at"`
	FinishedAt   *int64         `gorm:"column:finished_at"`
}

func (runModel) TableName() string { return "stat_runs" }

// ErrRunNotFound 表示指定 ID 的任务不存在。
var ErrRunNotFound = errors.New("run 不存在")

// ResultStore 基于 Gorm + SQLite 持久化回放任务及其统计结果。
type ResultStore struct {
	db *gorm.DB
}

func NewResultStore(path string) (*ResultStore, error) {
	path = strings.TrimSpace(path)
	if path == "" {
		return nil, fmt.Errorf("result store: 数据库路径不能为空")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, err
	}
	dsn := fmt.Sprintf("file:%s?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)&cache=shared", path)
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		return nil, err
	}
	if err := db.AutoMigrate(&runModel{}); err != nil {
		return nil, err
	}
	sqlDB, err := db.DB()
	if err != nil {
		return nil, err
	}
	sqlDB.SetMaxOpenConns(2)
	sqlDB.SetMaxIdleConns(2)
	return &ResultStore{db: db}, nil
}

func (s *ResultStore) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

// Insert 写入新任务。
func (s *ResultStore) Insert(r Run) error {
	m, err := toModel(r)
	if err != nil {
		return err
	}
	return s.db.Create(&m).Error
}

// UpdateStatus 只更新任务状态；失败时附带错误信息。
func (s *ResultStore) UpdateStatus(id string, status Status, errMsg string) error {
	updates := map[string]any{"status": string(status), "error_message": errMsg}
	if status == StatusFailed || status == StatusDone {
		updates["finished_at"] = time.Now().UnixMilli()
	}
	res := s.db.Model(&runModel{}).Where("id = ?", id).Updates(updates)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrRunNotFound
	}
	return nil
}

// UpdateSummary 在回放完成后写入统计快照与报告路径。
func (s *ResultStore) UpdateSummary(id string, stats Stats, reportPath string) error {
	raw, err := json.Marshal(stats)
	if err != nil {
		return err
	}
	updates := map[string]any{
		"status":      string(StatusDone),
		"stats_json":  datatypes.JSON(raw),
		"report_path": reportPath,
		"finished_at": time.Now().UnixMilli(),
	}
	res := s.db.Model(&runModel{}).Where("id = ?", id).Updates(updates)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrRunNotFound
	}
	return nil
}

// Get 返回指定 ID 的任务。
func (s *ResultStore) Get(id string) (Run, error) {
	var m runModel
	err := s.db.Where("id = ?", id).First(&m).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return Run{}, ErrRunNotFound
	}
	if err != nil {
		return Run{}, err
	}
	return fromModel(m)
}

// List 按创建时间倒序分页返回任务；symbol 为空表示不过滤。
func (s *ResultStore) List(symbol string, limit, offset int) ([]Run, error) {
	if limit <= 0 {
		limit = 50
	}
	q := s.db.Model(&runModel{}).Order("created_at DESC").Limit(limit).Offset(offset)
	if symbol = symbolpkg.Normalize(symbol); symbol != "" {
		q = q.Where("symbol = ?", symbol)
	}
	var models []runModel
	if err := q.Find(&models).Error; err != nil {
		return nil, err
	}
	out := make([]Run, 0, len(models))
	for _, m := range models {
		r, err := fromModel(m)
		if err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, nil
}

func toModel(r Run) (runModel, error) {
	cfgRaw, err := json.Marshal(r.Config)
	if err != nil {
		return runModel{}, err
	}
	m := runModel{
		ID:           r.ID,
		Symbol:       symbolpkg.Normalize(r.Config.Symbol),
		Status:       string(r.Status),
		ConfigJSON:   datatypes.JSON(cfgRaw),
		ErrorMessage: r.Error,
		ReportPath:   r.ReportPath,
		CreatedAt:    r.CreatedAt.UnixMilli(),
	}
	if r.Stats != nil {
		raw, err := json.Marshal(r.Stats)
		if err != nil {
			return runModel{}, err
		}
		m.StatsJSON = datatypes.JSON(raw)
	}
	if r.FinishedAt != nil {
		ts := r.FinishedAt.UnixMilli()
		m.FinishedAt = &ts
	}
	return m, nil
}

func fromModel(m runModel) (Run, error) {
	r := Run{
		ID:         m.ID,
		Status:     Status(m.Status),
		Error:      m.ErrorMessage,
		ReportPath: m.ReportPath,
		CreatedAt:  time.UnixMilli(m.CreatedAt),
	}
	if len(m.ConfigJSON) > 0 {
		if err := json.Unmarshal(m.ConfigJSON, &r.Config); err != nil {
			return Run{}, err
		}
	}
	if len(m.StatsJSON) > 0 {
		var st Stats
		if err := json.Unmarshal(m.StatsJSON, &st); err != nil {
			return Run{}, err
		}
		r.Stats = &st
	}
	if m.FinishedAt != nil {
		ts := time.UnixMilli(*m.FinishedAt)
		r.FinishedAt = &ts
	}
	return r, nil
}
