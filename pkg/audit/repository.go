// Package audit persists completed analysis events for later review.
package audit

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// Run is one analysis.completed or toprisk.completed event.
type Run struct {
	ID          uuid.UUID         `gorm:"primaryKey;column:id" json:"id"`
	EventType   string            `gorm:"column:event_type;index" json:"event_type"`
	Source      string            `gorm:"column:source" json:"source"`
	SourceFile  string            `gorm:"column:source_file" json:"source_file"`
	OutputFile  string            `gorm:"column:output_file" json:"output_file"`
	Date        string            `gorm:"column:date" json:"date,omitempty"`
	Records     int               `gorm:"column:records" json:"records"`
	AverageRisk *float64          `gorm:"column:average_risk" json:"average_risk"`
	RowFallback bool              `gorm:"column:row_fallback" json:"row_fallback"`
	Details     datatypes.JSONMap `gorm:"column:details;type:jsonb" json:"details"`
	OccurredAt  time.Time         `gorm:"column:occurred_at;index" json:"occurred_at"`
	CreatedAt   time.Time         `gorm:"column:created_at" json:"created_at"`
}

// TableName overrides gorm naming.
func (Run) TableName() string {
	return "analysis_runs"
}

type Repository struct {
	db *gorm.DB
}

func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

func (r *Repository) AutoMigrate() error {
	return r.db.AutoMigrate(&Run{})
}

// Record inserts run; a redelivered event with the same id is ignored.
func (r *Repository) Record(ctx context.Context, run *Run) error {
	if run.CreatedAt.IsZero() {
		run.CreatedAt = time.Now().UTC()
	}
	return r.db.WithContext(ctx).
		Clauses(clause.OnConflict{DoNothing: true}).
		Create(run).Error
}

// Recent returns the most recent runs up to limit.
func (r *Repository) Recent(ctx context.Context, limit int) ([]Run, error) {
	if limit <= 0 {
		limit = 50
	}
	var runs []Run
	err := r.db.WithContext(ctx).
		Order("occurred_at DESC").
		Limit(limit).
		Find(&runs).Error
	return runs, err
}
