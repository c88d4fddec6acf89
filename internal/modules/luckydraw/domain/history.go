package domain

import (
	"sync"
	"time"

	"github.com/bwmarrin/snowflake"
)

// HistoryCapacity bounds the display history ring
const HistoryCapacity = 8

// HistoryEntry is one draw record in the display history. The id is
// assigned at draw time and never changes; only Status is mutated in
// place as the matching decision resolves.
type HistoryEntry struct {
	ID        string    `json:"id"`
	PrizeName string    `json:"prize_name"`
	Status    string    `json:"status"`
	Timestamp time.Time `json:"timestamp"`
}

// HistoryLog is a bounded, newest-first ring of draw records. It is not
// internally synchronized; the decision machine owns it and serializes
// all access.
type HistoryLog struct {
	entries []*HistoryEntry
}

// NewHistoryLog creates an empty history log
func NewHistoryLog() *HistoryLog {
	return &HistoryLog{
		entries: make([]*HistoryEntry, 0, HistoryCapacity),
	}
}

// Append prepends a new record and evicts the oldest past capacity.
// Returns the assigned record id.
func (h *HistoryLog) Append(prizeName, status string, at time.Time) string {
	entry := &HistoryEntry{
		ID:        generateRecordID(),
		PrizeName: prizeName,
		Status:    status,
		Timestamp: at,
	}

	h.entries = append([]*HistoryEntry{entry}, h.entries...)
	if len(h.entries) > HistoryCapacity {
		h.entries = h.entries[:HistoryCapacity]
	}
	return entry.ID
}

// UpdateStatus mutates the status of the record with the given id.
// Matching is by record id, not prize identity, because the same prize
// can be drawn repeatedly.
func (h *HistoryLog) UpdateStatus(recordID, status string) bool {
	for _, e := range h.entries {
		if e.ID == recordID {
			e.Status = status
			return true
		}
	}
	return false
}

// Entries returns a newest-first copy for display
func (h *HistoryLog) Entries() []HistoryEntry {
	out := make([]HistoryEntry, len(h.entries))
	for i, e := range h.entries {
		out[i] = *e
	}
	return out
}

var (
	node *snowflake.Node
	once sync.Once
)

func initSnowflake() {
	var err error
	// Single-instance default; a deployment with multiple instances must
	// assign distinct node ids via config.
	node, err = snowflake.NewNode(1)
	if err != nil {
		panic(err)
	}
}

func generateRecordID() string {
	once.Do(initSnowflake)
	return node.Generate().String()
}
