package db

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"gorm.io/driver/mysql"
	"gorm.io/gorm"

	"mobcash_portal/internal/domain"
	"mobcash_portal/internal/wizard"
)

func TestSubmissionForEvent(t *testing.T) {
	at := time.UnixMilli(1767261600000)
	sub := submissionFor(wizard.Event{
		SessionID: "s-1",
		UserID:    42,
		Kind:      "withdrawal",
		Outcome:   "plain",
		Reference: "R-1",
		Amount:    decimal.NewFromInt(15000),
		At:        at,
	})
	assert.Equal(t, domain.Submission{
		SessionID: "s-1",
		UserID:    42,
		Kind:      "withdrawal",
		Reference: "R-1",
		Amount:    "15000",
		Outcome:   "plain",
		CreatedAt: 1767261600000,
	}, sub)
}

// dryRun builds statements against the MySQL dialect without a server
func dryRun(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(mysql.New(mysql.Config{
		DSN:                       "user:pass@tcp(127.0.0.1:1)/portal",
		SkipInitializeWithVersion: true,
	}), &gorm.Config{DryRun: true, DisableAutomaticPing: true})
	if err != nil {
		t.Fatalf("open dry-run db: %v", err)
	}
	return db
}

func TestRecentQuery(t *testing.T) {
	db := dryRun(t)
	var out []domain.Submission
	stmt := db.Where("user_id = ?", 42).Order("created_at desc").Limit(5).Find(&out).Statement
	assert.Equal(t, "SELECT * FROM `submissions` WHERE user_id = ? ORDER BY created_at desc LIMIT ?", stmt.SQL.String())
	assert.Equal(t, []any{42, 5}, stmt.Vars)
}
