package backtest

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"kestrel/internal/risk"
)

type RunStatus string

const (
	RunStatusPending RunStatus = "pending"
	RunStatusRunning RunStatus = "running"
	RunStatusDone    RunStatus = "done"
	RunStatusFailed  RunStatus = "failed"
)

type runModel struct {
	ID             string    `gorm:"column:id;primaryKey"`
	Symbols        string    `gorm:"column:symbols"`
	Status         RunStatus `gorm:"column:status;index"`
	StartDate      string    `gorm:"column:start_date"`
	EndDate        string    `gorm:"column:end_date"`
	InitialCapital float64   `gorm:"column:initial_capital"`
	FinalEquity    float64   `gorm:"column:final_equity"`
	TotalTrades    int       `gorm:"column:total_trades"`
	WinRate        float64   `gorm:"column:win_rate"`
	MaxDrawdown    float64   `gorm:"column:max_drawdown"`
	ConfigJSON     string    `gorm:"column:config_json;type:TEXT"`
	MetricsJSON    string    `gorm:"column:metrics_json;type:TEXT"`
	Message        string    `gorm:"column:message"`
	CreatedAtUnix  int64     `gorm:"column:created_at"`
	UpdatedAtUnix  int64     `gorm:"column:updated_at"`
}

func (runModel) TableName() string { return "backtest_runs" }

type tradeModel struct {
	ID         int64   `gorm:"column:id;primaryKey;autoIncrement"`
	RunID      string  `gorm:"column:run_id;index"`
	Symbol     string  `gorm:"column:symbol"`
	Shares     int     `gorm:"column:shares"`
	EntryDate  int64   `gorm:"column:entry_date"`
	ExitDate   int64   `gorm:"column:exit_date;index"`
	EntryPrice float64 `gorm:"column:entry_price"`
	ExitPrice  float64 `gorm:"column:exit_price"`
	PnL        float64 `gorm:"column:pnl"`
	PnLPct     float64 `gorm:"column:pnl_pct"`
	Reason     string  `gorm:"column:reason"`
	HoldMins   int64   `gorm:"column:hold_mins"`
	Score      float64 `gorm:"column:score"`
}

func (tradeModel) TableName() string { return "backtest_trades" }

type equityModel struct {
	ID     int64   `gorm:"column:id;primaryKey;autoIncrement"`
	RunID  string  `gorm:"column:run_id;index"`
	Date   int64   `gorm:"column:date"`
	Equity float64 `gorm:"column:equity"`
}

func (equityModel) TableName() string { return "backtest_equity" }

// ResultStore 用 Gorm + SQLite 保存回测运行、成交与资金曲线。
type ResultStore struct {
	db *gorm.DB
}

func NewResultStore(path string) (*ResultStore, error) {
	path = strings.TrimSpace(path)
	if path == "" {
		return nil, fmt.Errorf("result store 路径不能为空")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, err
	}
	dsn := fmt.Sprintf("file:%s?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)&cache=shared", path)
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger:                                   gormlogger.Default.LogMode(gormlogger.Silent),
		DisableForeignKeyConstraintWhenMigrating: true,
	})
	if err != nil {
		return nil, err
	}
	if err := db.AutoMigrate(&runModel{}, &tradeModel{}, &equityModel{}); err != nil {
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

// InsertRun 登记一次回测（状态 pending）。
func (s *ResultStore) InsertRun(ctx context.Context, runID string, result *Result) error {
	cfgJSON, err := json.Marshal(result.Config)
	if err != nil {
		return err
	}
	now := time.Now().UnixMilli()
	row := runModel{
		ID:             runID,
		Symbols:        strings.Join(result.Config.Symbols, ","),
		Status:         RunStatusPending,
		StartDate:      result.Config.StartDate,
		EndDate:        result.Config.EndDate,
		InitialCapital: result.Config.InitialCapital,
		FinalEquity:    result.Config.InitialCapital,
		ConfigJSON:     string(cfgJSON),
		CreatedAtUnix:  now,
		UpdatedAtUnix:  now,
	}
	return s.db.WithContext(ctx).Create(&row).Error
}

// SaveResult 写入全部成交与资金曲线并把 run 标记为 done。
func (s *ResultStore) SaveResult(ctx context.Context, runID string, result *Result) error {
	metricsJSON, err := json.Marshal(result.Metrics)
	if err != nil {
		return err
	}
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if len(result.Trades) > 0 {
			rows := make([]tradeModel, 0, len(result.Trades))
			for _, t := range result.Trades {
				rows = append(rows, tradeModel{
					RunID:      runID,
					Symbol:     t.Symbol,
					Shares:     t.Shares,
					EntryDate:  t.EntryDate,
					ExitDate:   t.ExitDate,
					EntryPrice: t.EntryPrice,
					ExitPrice:  t.ExitPrice,
					PnL:        t.PnL,
					PnLPct:     t.PnLPct,
					Reason:     string(t.Reason),
					HoldMins:   t.HoldMins,
					Score:      t.Score,
				})
			}
			if err := tx.CreateInBatches(rows, 200).Error; err != nil {
				return err
			}
		}
		if len(result.EquityCurve) > 0 {
			rows := make([]equityModel, 0, len(result.EquityCurve))
			for _, p := range result.EquityCurve {
				rows = append(rows, equityModel{RunID: runID, Date: p.Date, Equity: p.Equity})
			}
			if err := tx.CreateInBatches(rows, 500).Error; err != nil {
				return err
			}
		}
		return tx.Model(&runModel{}).Where("id = ?", runID).Updates(map[string]interface{}{
			"status":       RunStatusDone,
			"final_equity": result.Metrics.FinalEquity,
			"total_trades": result.Metrics.TotalTrades,
			"win_rate":     result.Metrics.WinRate,
			"max_drawdown": result.Metrics.MaxDrawdown,
			"metrics_json": string(metricsJSON),
			"message":      "完成",
			"updated_at":   time.Now().UnixMilli(),
		}).Error
	})
}

// UpdateRunStatus 更新运行状态与说明。
func (s *ResultStore) UpdateRunStatus(ctx context.Context, runID string, status RunStatus, message string) error {
	return s.db.WithContext(ctx).Model(&runModel{}).Where("id = ?", runID).Updates(map[string]interface{}{
		"status":     status,
		"message":    message,
		"updated_at": time.Now().UnixMilli(),
	}).Error
}

// RecentClosedTrades 按平仓时间倒序返回最近的成交，供风控读连亏序列。
func (s *ResultStore) RecentClosedTrades(ctx context.Context, limit int) ([]risk.ClosedTrade, error) {
	if limit <= 0 {
		limit = 20
	}
	var rows []tradeModel
	if err := s.db.WithContext(ctx).
		Order("exit_date DESC").
		Limit(limit).
		Find(&rows).Error; err != nil {
		return nil, err
	}
	out := make([]risk.ClosedTrade, 0, len(rows))
	for _, row := range rows {
		pnl, entry, exit := row.PnL, row.EntryPrice, row.ExitPrice
		out = append(out, risk.ClosedTrade{PnL: &pnl, EntryPrice: &entry, ExitPrice: &exit})
	}
	return out, nil
}

var _ risk.TradeHistory = (*ResultStore)(nil)
