package ledger

import (
	"context"
	"fmt"
	"time"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

type runRecord struct {
	ID               string    `gorm:"primaryKey"`
	StartedAt        time.Time `gorm:"not null;index"`
	FinishedAt       *time.Time
	Provider         string
	Model            string
	OutputDir        string
	SongsPerCategory int
	Categories       int
	Expected         int `gorm:"default:0;not null"`
	Produced         int `gorm:"default:0;not null"`
	Skipped          int `gorm:"default:0;not null"`
	Failed           int `gorm:"default:0;not null"`
	Resumed          int `gorm:"default:0;not null"`
}

func (runRecord) TableName() string { return "midigen_runs" }

type itemRecord struct {
	ID          uint   `gorm:"primarykey"`
	RunID       string `gorm:"not null;index:idx_midigen_items_run"`
	Category    string `gorm:"not null;index:idx_midigen_items_run"`
	Idx         int    `gorm:"not null;index:idx_midigen_items_run"`
	Status      string `gorm:"not null"`
	Attempts    int
	LastError   string
	Path        string
	Mood        string
	Temperature float64
	RecordedAt  time.Time `gorm:"not null"`
}

func (itemRecord) TableName() string { return "midigen_items" }

// PostgresStore is a Store shared by several machines through postgres
type PostgresStore struct {
	db *gorm.DB
}

// NewPostgresStore connects to dsn and migrates the ledger tables
func NewPostgresStore(ctx context.Context, dsn string) (*PostgresStore, error) {
	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		return nil, fmt.Errorf("open postgres ledger: %w", err)
	}

	if err := db.WithContext(ctx).AutoMigrate(&runRecord{}, &itemRecord{}); err != nil {
		return nil, fmt.Errorf("migrate postgres ledger: %w", err)
	}

	return &PostgresStore{db: db}, nil
}

func (s *PostgresStore) StartRun(ctx context.Context, run Run) error {
	record := runRecord{
		ID:               run.ID,
		StartedAt:        run.StartedAt,
		Provider:         run.Provider,
		Model:            run.Model,
		OutputDir:        run.OutputDir,
		SongsPerCategory: run.SongsPerCategory,
		Categories:       run.Categories,
		Expected:         run.Totals.Expected,
	}
	if err := s.db.WithContext(ctx).Create(&record).Error; err != nil {
		return fmt.Errorf("insert run %s: %w", run.ID, err)
	}
	return nil
}

func (s *PostgresStore) RecordItem(ctx context.Context, item Item) error {
	if item.RecordedAt.IsZero() {
		item.RecordedAt = time.Now()
	}
	record := itemRecord{
		RunID:       item.RunID,
		Category:    item.Category,
		Idx:         item.Index,
		Status:      string(item.Status),
		Attempts:    item.Attempts,
		LastError:   item.LastError,
		Path:        item.Path,
		Mood:        item.Mood,
		Temperature: item.Temperature,
		RecordedAt:  item.RecordedAt,
	}
	if err := s.db.WithContext(ctx).Create(&record).Error; err != nil {
		return fmt.Errorf("insert item %s/%d: %w", item.Category, item.Index, err)
	}
	return nil
}

func (s *PostgresStore) FinishRun(ctx context.Context, runID string, totals Totals, finishedAt time.Time) error {
	res := s.db.WithContext(ctx).Model(&runRecord{}).Where("id = ?", runID).Updates(map[string]interface{}{
		"finished_at": finishedAt,
		"expected":    totals.Expected,
		"produced":    totals.Produced,
		"skipped":     totals.Skipped,
		"failed":      totals.Failed,
		"resumed":     totals.Resumed,
	})
	if res.Error != nil {
		return fmt.Errorf("finish run %s: %w", runID, res.Error)
	}
	if res.RowsAffected == 0 {
		return fmt.Errorf("finish run %s: %w", runID, ErrRunNotFound)
	}
	return nil
}

func (s *PostgresStore) ListRuns(ctx context.Context, limit int) ([]Run, error) {
	var records []runRecord
	if err := s.db.WithContext(ctx).Order("started_at desc").Order("id").
		Limit(listLimit(limit)).Find(&records).Error; err != nil {
		return nil, fmt.Errorf("query runs: %w", err)
	}

	runs := make([]Run, 0, len(records))
	for _, r := range records {
		runs = append(runs, Run{
			ID:               r.ID,
			StartedAt:        r.StartedAt,
			FinishedAt:       r.FinishedAt,
			Provider:         r.Provider,
			Model:            r.Model,
			OutputDir:        r.OutputDir,
			SongsPerCategory: r.SongsPerCategory,
			Categories:       r.Categories,
			Totals: Totals{
				Expected: r.Expected,
				Produced: r.Produced,
				Skipped:  r.Skipped,
				Failed:   r.Failed,
				Resumed:  r.Resumed,
			},
		})
	}
	return runs, nil
}

func (s *PostgresStore) ListItems(ctx context.Context, runID string) ([]Item, error) {
	var records []itemRecord
	if err := s.db.WithContext(ctx).Where("run_id = ?", runID).
		Order("category").Order("idx").Order("id").Find(&records).Error; err != nil {
		return nil, fmt.Errorf("query items of %s: %w", runID, err)
	}

	items := make([]Item, 0, len(records))
	for _, r := range records {
		items = append(items, Item{
			RunID:       r.RunID,
			Category:    r.Category,
			Index:       r.Idx,
			Status:      Status(r.Status),
			Attempts:    r.Attempts,
			LastError:   r.LastError,
			Path:        r.Path,
			Mood:        r.Mood,
			Temperature: r.Temperature,
			RecordedAt:  r.RecordedAt,
		})
	}
	return items, nil
}

func (s *PostgresStore) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}
