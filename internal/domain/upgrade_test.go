package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestUpgrade_PromotesLegacyIsActive(t *testing.T) {
	legacyOff := false
	p := &Poll{
		IsActive: true,
		Settings: PollSettings{LegacyIsActive: &legacyOff},
	}

	applied := Upgrade(p)
	assert.Equal(t, []string{"1.1.0", "1.2.0"}, applied)
	assert.False(t, p.IsActive)
	assert.Nil(t, p.Settings.LegacyIsActive)
	assert.Equal(t, CurrentSchemaVersion.String(), p.SchemaVersion)
	assert.Equal(t, OverrideNeverSet, p.ManualOverride)
	assert.Equal(t, ViewSingle, p.ViewMode)
	assert.NotNil(t, p.Participants)
	assert.NotNil(t, p.Responses)
}

func TestUpgrade_Idempotent(t *testing.T) {
	token := "admin_stale"
	p := &Poll{
		SchemaVersion:        "1.1.0",
		CurrentQuestionIndex: 7,
		AdminSessionID:       &token,
	}

	assert.Equal(t, []string{"1.2.0"}, Upgrade(p))
	assert.Equal(t, 0, p.CurrentQuestionIndex)
	assert.Nil(t, p.AdminSessionID)

	snapshot := *p
	assert.Empty(t, Upgrade(p))
	assert.Equal(t, snapshot, *p)
}

func TestUpgrade_CurrentDocumentUntouched(t *testing.T) {
	p := testPoll(t)
	legacy := true
	p.Settings.LegacyIsActive = &legacy
	p.IsActive = false

	assert.Empty(t, Upgrade(p))
	assert.False(t, p.IsActive)
}

func TestSchemaVersionOf_InvalidFallsBack(t *testing.T) {
	p := &Poll{SchemaVersion: "garbage"}
	assert.Equal(t, "1.0.0", SchemaVersionOf(p).String())
}
