package db

import (
	"context"
	"time"

	"github.com/sirupsen/logrus" // Logging library
	"gorm.io/gorm"               // GORM ORM library

	"mobcash_portal/internal/domain"
	"mobcash_portal/internal/wizard"
)

// Journal keeps a local record of every flow outcome
type Journal struct {
	db *gorm.DB
}

func NewJournal(db *gorm.DB) *Journal {
	return &Journal{db: db}
}

func submissionFor(e wizard.Event) domain.Submission {
	return domain.Submission{
		SessionID: e.SessionID,
		UserID:    e.UserID,
		Kind:      e.Kind,
		Reference: e.Reference,
		Amount:    e.Amount.String(),
		Outcome:   e.Outcome,
		CreatedAt: e.At.UnixMilli(),
	}
}

// Observe stores the event; a write failure is logged, the flow result stands
func (j *Journal) Observe(ctx context.Context, e wizard.Event) {
	sub := submissionFor(e)
	if err := j.db.WithContext(ctx).Create(&sub).Error; err != nil {
		logrus.WithFields(logrus.Fields{
			"session": e.SessionID,
			"kind":    e.Kind,
			"outcome": e.Outcome,
			"error":   err,
		}).Error("journal write failed")
	}
}

// Recent returns the latest submissions of a user, newest first
func (j *Journal) Recent(ctx context.Context, userID int, limit int) ([]domain.Submission, error) {
	var out []domain.Submission
	err := j.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("created_at desc").
		Limit(limit).
		Find(&out).Error
	return out, err
}

// Purge deletes journal rows older than the retention window
func (j *Journal) Purge(ctx context.Context, retention time.Duration) (int64, error) {
	cutoff := time.Now().Add(-retention).UnixMilli()
	res := j.db.WithContext(ctx).Where("created_at < ?", cutoff).Delete(&domain.Submission{})
	return res.RowsAffected, res.Error
}
