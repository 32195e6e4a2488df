package migration

import (
	"context"
	"testing"
	"time"

	"github.com/livepoll/livepoll-backend/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func TestRunAndUpgradeAll(t *testing.T) {
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{Logger: logger.Default.LogMode(logger.Silent)})
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)

	require.NoError(t, Run(db))
	require.NoError(t, Run(db), "migration is repeatable")

	legacyOff := false
	legacy := &domain.Poll{
		ID:        "legacy-1",
		Code:      "LEG001",
		CreatorID: "u1",
		Title:     "Old poll",
		IsActive:  true,
		Settings:  domain.PollSettings{LegacyIsActive: &legacyOff},
		Version:   1,
		CreatedAt: time.Now(),
	}
	require.NoError(t, db.Create(legacy).Error)

	current := domain.NewPoll("new-1", "NEW001", "u1", domain.PollInput{Title: "New"}, []domain.Question{{ID: "q", Type: domain.QuestionOpenEnded, Question: "?"}}, time.Now())
	require.NoError(t, db.Create(current).Error)

	n, err := UpgradeAll(context.Background(), db, 10)
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	var stored domain.Poll
	require.NoError(t, db.Where("code = ?", "LEG001").First(&stored).Error)
	assert.False(t, stored.IsActive)
	assert.Nil(t, stored.Settings.LegacyIsActive)
	assert.Equal(t, domain.CurrentSchemaVersion.String(), stored.SchemaVersion)
	assert.Equal(t, domain.OverrideNeverSet, stored.ManualOverride)

	n, err = UpgradeAll(context.Background(), db, 10)
	require.NoError(t, err)
	assert.Equal(t, 0, n)
}
