package assignment

import (
	"encoding/base64"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCanTransition(t *testing.T) {
	tests := []struct {
		from, to string
		want     bool
	}{
		{StatusPending, StatusInProgress, true},
		{StatusPending, StatusOverdue, true},
		{StatusPending, StatusCancelled, true},
		{StatusPending, StatusCompleted, false},
		{StatusInProgress, StatusCompleted, true},
		{StatusInProgress, StatusOverdue, true},
		{StatusInProgress, StatusPending, false},
		{StatusOverdue, StatusInProgress, true},
		{StatusOverdue, StatusCompleted, true},
		{StatusOverdue, StatusCancelled, true},
		{StatusCompleted, StatusInProgress, false},
		{StatusCompleted, StatusCancelled, false},
		{StatusCancelled, StatusPending, false},
		{StatusPending, StatusPending, false},
		{"unknown", StatusPending, false},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, CanTransition(tt.from, tt.to), "%s -> %s", tt.from, tt.to)
	}
}

func TestTerminalStatuses(t *testing.T) {
	assert.True(t, IsTerminal(StatusCompleted))
	assert.True(t, IsTerminal(StatusCancelled))
	assert.False(t, IsTerminal(StatusPending))
	assert.False(t, IsTerminal(StatusOverdue))
}

func TestNewAccessToken(t *testing.T) {
	seen := map[string]bool{}
	for i := 0; i < 100; i++ {
		token, err := NewAccessToken()
		require.NoError(t, err)
		raw, err := base64.RawURLEncoding.DecodeString(token)
		require.NoError(t, err)
		assert.Len(t, raw, 32)
		assert.NotContains(t, token, "=")
		assert.False(t, seen[token])
		seen[token] = true
	}
}

func TestBuildEventSummary(t *testing.T) {
	summary := buildEventSummary("evt", map[string]int{
		StatusPending:    1,
		StatusInProgress: 1,
		StatusCompleted:  1,
	})
	assert.Equal(t, 3, summary.Total)
	assert.Equal(t, 1, summary.Completed)
	assert.Equal(t, 2, summary.Outstanding)
	assert.Equal(t, 33.33, summary.CompletionRate)
}

func TestBuildEventSummaryHandlesEmptyEvent(t *testing.T) {
	summary := buildEventSummary("evt", nil)
	assert.Zero(t, summary.Total)
	assert.Zero(t, summary.CompletionRate)
	assert.NotNil(t, summary.ByStatus)
}
