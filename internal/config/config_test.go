package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestLoadDefaults(t *testing.T) {
	cfg := Load()

	assert.Equal(t, "8080", cfg.Port)
	assert.Equal(t, time.Minute, cfg.DispatchTick)
	assert.Equal(t, 15*time.Minute, cfg.FollowUpTick)
	assert.Equal(t, 7, cfg.FollowUpWindowDays)
	assert.Equal(t, []int{24, 1}, cfg.ReminderOffsetHours)
	assert.Equal(t, 15*time.Second, cfg.SendTimeout)
	assert.Equal(t, "sendgrid", cfg.EmailProvider)
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("DISPATCH_TICK", "30s")
	t.Setenv("REMINDER_OFFSET_HOURS", "48, 24, 2")
	t.Setenv("EMAIL_PROVIDER", "SES")
	t.Setenv("FOLLOWUP_WINDOW_DAYS", "14")

	cfg := Load()

	assert.Equal(t, 30*time.Second, cfg.DispatchTick)
	assert.Equal(t, []int{48, 24, 2}, cfg.ReminderOffsetHours)
	assert.Equal(t, "ses", cfg.EmailProvider)
	assert.Equal(t, 14, cfg.FollowUpWindowDays)
}

func TestGetEnvAsIntListMalformed(t *testing.T) {
	t.Setenv("REMINDER_OFFSET_HOURS", "24,abc")
	cfg := Load()
	assert.Equal(t, []int{24, 1}, cfg.ReminderOffsetHours)
}
