package storage

import (
	"fmt"
	"os"
	"path/filepath"
	"runtime"

	"equity_sim/internal/domain"

	"github.com/glebarez/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// Journal persists executed trades for the export surface. It is an audit
// sink: the engine never reads its own state back from here.
type Journal struct {
	db *gorm.DB
}

// NewJournal creates a new SQLite journal at the given path. An empty path
// resolves to the per-user config directory.
func NewJournal(path string) (*Journal, error) {
	if path == "" {
		var err error
		path, err = defaultDBPath()
		if err != nil {
			return nil, fmt.Errorf("failed to resolve DB path: %w", err)
		}
	}

	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, fmt.Errorf("failed to create DB directory: %w", err)
	}

	// Pure Go SQLite driver
	db, err := gorm.Open(sqlite.Open(path), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Warn),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	if err := db.AutoMigrate(&domain.TradeRecord{}); err != nil {
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}

	return &Journal{db: db}, nil
}

// defaultDBPath resolves the database file path based on OS
func defaultDBPath() (string, error) {
	var configDir string
	var err error

	if runtime.GOOS == "windows" {
		configDir = os.Getenv("LOCALAPPDATA")
		if configDir == "" {
			configDir, err = os.UserConfigDir()
		}
	} else {
		configDir, err = os.UserConfigDir()
	}

	if err != nil {
		return "", err
	}

	return filepath.Join(configDir, "EquitySim", "data", "journal.db"), nil
}

// Append persists a single executed trade.
func (j *Journal) Append(t domain.Trade) error {
	rec := domain.NewTradeRecord(t)
	return j.db.Create(&rec).Error
}

// AppendBatch persists a batch of trades in one transaction.
func (j *Journal) AppendBatch(trades []domain.Trade) error {
	if len(trades) == 0 {
		return nil
	}
	recs := make([]domain.TradeRecord, 0, len(trades))
	for _, t := range trades {
		recs = append(recs, domain.NewTradeRecord(t))
	}
	return j.db.Create(&recs).Error
}

// Recent returns the most recent trades across all instruments, newest
// first, limited to n rows.
func (j *Journal) Recent(n int) ([]domain.TradeRecord, error) {
	var recs []domain.TradeRecord
	err := j.db.Order("executed_at DESC, id DESC").Limit(n).Find(&recs).Error
	return recs, err
}

// BySymbol returns the persisted trades for one instrument, newest first.
func (j *Journal) BySymbol(symbol string, n int) ([]domain.TradeRecord, error) {
	var recs []domain.TradeRecord
	err := j.db.Where("symbol = ?", symbol).
		Order("executed_at DESC, id DESC").Limit(n).Find(&recs).Error
	return recs, err
}

// Count returns the total number of journaled trades.
func (j *Journal) Count() (int64, error) {
	var n int64
	err := j.db.Model(&domain.TradeRecord{}).Count(&n).Error
	return n, err
}
