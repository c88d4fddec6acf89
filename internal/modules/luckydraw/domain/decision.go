package domain

// DecisionState is the lifecycle state of the current decision window
type DecisionState string

const (
	StateIdle      DecisionState = "idle"
	StatePending   DecisionState = "pending"
	StatePaid      DecisionState = "paid"
	StateAbandoned DecisionState = "abandoned"
	StateMissed    DecisionState = "missed"
)

// IsTerminal reports whether the state is a settled outcome
func (s DecisionState) IsTerminal() bool {
	return s == StatePaid || s == StateAbandoned || s == StateMissed
}

// SettleAction identifies which settlement call resolves a pending decision
type SettleAction string

const (
	ActionPay     SettleAction = "pay"
	ActionAbandon SettleAction = "abandon"
)

// UI-facing history status labels, rendered verbatim by the display layer
const (
	HistoryStatusAwaiting  = "等待确认"
	HistoryStatusPaid      = "已支付"
	HistoryStatusAbandoned = "已放弃"
	HistoryStatusTimedOut  = "超时自动放弃"
	HistoryStatusNoWin     = "未中奖"
)

// Snapshot is the read-only view handed to the UI shell. It is the single
// consistent read of everything the display needs; no component keeps a
// second copy of any of these fields.
type Snapshot struct {
	// Seq orders snapshots of the same engine. Consumers that can
	// receive frames out of order drop any frame whose Seq is not newer
	// than the last one delivered.
	Seq          uint64         `json:"seq"`
	State        DecisionState  `json:"state"`
	RemainingMs  int64          `json:"remaining_ms"`
	CurrentPrize *DrawnPrize    `json:"current_prize,omitempty"`
	History      []HistoryEntry `json:"history"`
	Submitting   bool           `json:"submitting"`
}
