package domain

import (
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHistoryLogNewestFirst(t *testing.T) {
	h := NewHistoryLog()

	now := time.Now()
	first := h.Append("会员月卡", HistoryStatusAwaiting, now)
	second := h.Append("棒棒糖", HistoryStatusAwaiting, now.Add(time.Second))

	entries := h.Entries()
	require.Len(t, entries, 2)
	assert.Equal(t, second, entries[0].ID)
	assert.Equal(t, first, entries[1].ID)
}

func TestHistoryLogEviction(t *testing.T) {
	h := NewHistoryLog()

	var ids []string
	for i := 0; i < HistoryCapacity+5; i++ {
		ids = append(ids, h.Append(fmt.Sprintf("奖品%d", i), HistoryStatusAwaiting, time.Now()))
	}

	entries := h.Entries()
	require.Len(t, entries, HistoryCapacity)
	assert.Equal(t, ids[len(ids)-1], entries[0].ID)

	// Evicted records no longer accept status updates.
	assert.False(t, h.UpdateStatus(ids[0], HistoryStatusPaid))
}

func TestHistoryStatusMutationKeepsIdentity(t *testing.T) {
	h := NewHistoryLog()

	// The same prize drawn twice yields two records with distinct ids.
	first := h.Append("会员月卡", HistoryStatusAwaiting, time.Now())
	second := h.Append("会员月卡", HistoryStatusAwaiting, time.Now())
	require.NotEqual(t, first, second)

	require.True(t, h.UpdateStatus(first, HistoryStatusTimedOut))
	require.True(t, h.UpdateStatus(second, HistoryStatusPaid))

	entries := h.Entries()
	assert.Equal(t, second, entries[0].ID)
	assert.Equal(t, HistoryStatusPaid, entries[0].Status)
	assert.Equal(t, first, entries[1].ID)
	assert.Equal(t, HistoryStatusTimedOut, entries[1].Status)
}

func TestEntriesReturnsCopies(t *testing.T) {
	h := NewHistoryLog()
	id := h.Append("会员月卡", HistoryStatusAwaiting, time.Now())

	entries := h.Entries()
	entries[0].Status = "tampered"

	require.True(t, h.UpdateStatus(id, HistoryStatusPaid))
	assert.Equal(t, HistoryStatusPaid, h.Entries()[0].Status)
}
