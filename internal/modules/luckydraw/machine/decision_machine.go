// Package machine implements the decision window state machine.
package machine

import (
	"sync"
	"time"

	"github.com/jonboulle/clockwork"

	"github.com/frankieli/forum_product/internal/modules/luckydraw/domain"
)

// EventType identifies a state machine event
type EventType string

const (
	EventDecisionStarted EventType = "decision_started"
	EventMissed          EventType = "missed"
	EventPaid            EventType = "paid"
	EventAbandoned       EventType = "abandoned"
	EventTimedOut        EventType = "timed_out"
	EventReset           EventType = "reset"
	EventTick            EventType = "tick"
)

// Event carries a transition plus the snapshot taken at that instant
type Event struct {
	Type     EventType
	RecordID string
	Snapshot domain.Snapshot
}

// EventHandler handles machine events
type EventHandler func(event Event)

// TimeoutHandler is invoked after a timeout abandon has been applied
// locally. The server-side release it performs is best-effort cleanup,
// not a precondition for the transition that already happened.
type TimeoutHandler func(recordID string, prize domain.Prize)

// DecisionMachine owns the pending/paid/abandoned/missed lifecycle of
// the most recent draw, the countdown deadline, and the
// at-most-one-in-flight settlement gate. All shared state (deadline,
// submission flag, current prize) is read and written under one mutex;
// no other component holds a copy that can drift.
type DecisionMachine struct {
	mu    sync.Mutex
	clock clockwork.Clock

	window       time.Duration
	tickInterval time.Duration

	state      domain.DecisionState
	current    *domain.DrawnPrize
	deadline   time.Time
	recordID   string // history record id of the active decision
	submitting bool

	history *domain.HistoryLog
	timer   clockwork.Timer
	seq     uint64 // snapshot sequence, monotonic per machine

	handlers  []EventHandler
	onTimeout TimeoutHandler
}

// NewDecisionMachine creates a machine in the Idle state
func NewDecisionMachine(clock clockwork.Clock, window, tickInterval time.Duration) *DecisionMachine {
	return &DecisionMachine{
		clock:        clock,
		window:       window,
		tickInterval: tickInterval,
		state:        domain.StateIdle,
		history:      domain.NewHistoryLog(),
		handlers:     make([]EventHandler, 0),
	}
}

// RegisterEventHandler registers an event handler
func (m *DecisionMachine) RegisterEventHandler(handler EventHandler) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.handlers = append(m.handlers, handler)
}

// SetTimeoutHandler installs the best-effort server cleanup hook for
// timeout abandons
func (m *DecisionMachine) SetTimeoutHandler(handler TimeoutHandler) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.onTimeout = handler
}

// emitEvent fans an event out to all handlers. Handlers run
// synchronously, outside the machine lock, so consumers observe
// transitions in the order they happened; a handler that needs the
// network goes async on its own.
func (m *DecisionMachine) emitEvent(event Event) {
	m.mu.Lock()
	handlers := make([]EventHandler, len(m.handlers))
	copy(handlers, m.handlers)
	m.mu.Unlock()

	for _, handler := range handlers {
		handler(event)
	}
}

// StartDecision opens a decision window for a freshly drawn prize.
// A sentinel prize short-circuits to Missed without arming a timer.
// Returns the history record id assigned to this draw.
func (m *DecisionMachine) StartDecision(drawn domain.DrawnPrize) (string, error) {
	m.mu.Lock()

	if m.submitting {
		m.mu.Unlock()
		return "", domain.ErrSubmissionInProgress
	}
	if m.state == domain.StatePending {
		m.mu.Unlock()
		return "", domain.ErrDecisionActive
	}

	now := m.clock.Now()
	prize := drawn
	m.current = &prize

	if drawn.Prize.IsSentinel() {
		m.state = domain.StateMissed
		m.recordID = m.history.Append(drawn.Prize.Name, domain.HistoryStatusNoWin, now)
		event := Event{Type: EventMissed, RecordID: m.recordID, Snapshot: m.snapshotLocked()}
		m.mu.Unlock()

		m.emitEvent(event)
		return event.RecordID, nil
	}

	m.state = domain.StatePending
	m.deadline = now.Add(m.window)
	m.recordID = m.history.Append(drawn.Prize.Name, domain.HistoryStatusAwaiting, now)
	m.armTimerLocked()
	event := Event{Type: EventDecisionStarted, RecordID: m.recordID, Snapshot: m.snapshotLocked()}
	m.mu.Unlock()

	m.emitEvent(event)
	return event.RecordID, nil
}

// Tick recomputes remaining time from the stored absolute deadline. It
// is driven by the 250ms display timer but stays correct across process
// suspension because it never decrements a counter. When the deadline
// has passed and no settlement is in flight it performs the timeout
// abandon; while a submission is in flight the deadline crossing is a
// no-op and the machine waits for the submission result.
func (m *DecisionMachine) Tick() {
	m.mu.Lock()
	if m.state != domain.StatePending {
		m.mu.Unlock()
		return
	}

	remaining := m.deadline.Sub(m.clock.Now())
	if remaining > 0 || m.submitting {
		m.armTimerLocked()
		event := Event{Type: EventTick, RecordID: m.recordID, Snapshot: m.snapshotLocked()}
		m.mu.Unlock()

		m.emitEvent(event)
		return
	}

	// Timeout abandon: the window has definitely closed for the user, so
	// the local transition is applied before the server round trip.
	m.disarmTimerLocked()
	m.state = domain.StateAbandoned
	m.history.UpdateStatus(m.recordID, domain.HistoryStatusTimedOut)

	recordID := m.recordID
	prize := m.current.Prize
	handler := m.onTimeout
	event := Event{Type: EventTimedOut, RecordID: recordID, Snapshot: m.snapshotLocked()}
	m.mu.Unlock()

	m.emitEvent(event)
	if handler != nil {
		go handler(recordID, prize)
	}
}

// BeginSettlement acquires the at-most-one-in-flight settlement gate.
// It is the only path to the network for pay/abandon: a second caller
// is rejected locally with ErrSubmissionInProgress.
func (m *DecisionMachine) BeginSettlement() (recordID string, prize domain.Prize, err error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.state != domain.StatePending {
		return "", domain.Prize{}, domain.ErrNotPending
	}
	if m.submitting {
		return "", domain.Prize{}, domain.ErrSubmissionInProgress
	}

	m.submitting = true
	return m.recordID, m.current.Prize, nil
}

// FinishSettlement releases the gate. On success the decision
// transitions to the given terminal outcome; on failure it stays
// Pending with the countdown still running. The outcome is applied and
// the gate released under one lock: a tick must never observe a clear
// gate on a still-pending decision whose server result is already in,
// or a crossed deadline would abandon a confirmed payment.
func (m *DecisionMachine) FinishSettlement(outcome domain.DecisionState, ok bool) {
	m.mu.Lock()
	m.submitting = false
	if !ok {
		m.mu.Unlock()
		return
	}
	event, applied := m.settleLocked(outcome)
	m.mu.Unlock()

	if applied {
		m.emitEvent(event)
	}
}

// OnSettled transitions a pending decision to a terminal outcome and
// tears the timer down. Idempotent: repeating the same outcome after
// the timer is already gone is a no-op.
func (m *DecisionMachine) OnSettled(outcome domain.DecisionState) {
	m.mu.Lock()
	event, applied := m.settleLocked(outcome)
	m.mu.Unlock()

	if applied {
		m.emitEvent(event)
	}
}

func (m *DecisionMachine) settleLocked(outcome domain.DecisionState) (Event, bool) {
	if outcome != domain.StatePaid && outcome != domain.StateAbandoned {
		return Event{}, false
	}
	if m.state != domain.StatePending {
		return Event{}, false
	}

	m.disarmTimerLocked()
	m.state = outcome

	var eventType EventType
	if outcome == domain.StatePaid {
		m.history.UpdateStatus(m.recordID, domain.HistoryStatusPaid)
		eventType = EventPaid
	} else {
		m.history.UpdateStatus(m.recordID, domain.HistoryStatusAbandoned)
		eventType = EventAbandoned
	}

	return Event{Type: eventType, RecordID: m.recordID, Snapshot: m.snapshotLocked()}, true
}

// Reset returns a settled machine to Idle and clears the displayed
// prize. History is not touched. Dismissing an open window is not a
// thing; Reset during Pending is ignored.
func (m *DecisionMachine) Reset() {
	m.mu.Lock()
	if m.state == domain.StatePending {
		m.mu.Unlock()
		return
	}

	m.state = domain.StateIdle
	m.current = nil
	m.recordID = ""
	event := Event{Type: EventReset, Snapshot: m.snapshotLocked()}
	m.mu.Unlock()

	m.emitEvent(event)
}

// Stop disarms any running timer. Used on engine disposal.
func (m *DecisionMachine) Stop() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.disarmTimerLocked()
}

// Snapshot returns a consistent read-only view for the display layer
func (m *DecisionMachine) Snapshot() domain.Snapshot {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.snapshotLocked()
}

// snapshotLocked stamps every snapshot with a sequence number drawn
// under the machine lock, so a consumer receiving frames out of order
// (handlers run outside the lock) can drop the stale one.
func (m *DecisionMachine) snapshotLocked() domain.Snapshot {
	m.seq++
	snap := domain.Snapshot{
		Seq:        m.seq,
		State:      m.state,
		History:    m.history.Entries(),
		Submitting: m.submitting,
	}

	if m.current != nil {
		prize := *m.current
		snap.CurrentPrize = &prize
	}

	if m.state == domain.StatePending {
		remaining := m.deadline.Sub(m.clock.Now())
		if remaining < 0 {
			remaining = 0
		}
		snap.RemainingMs = remaining.Milliseconds()
	}

	return snap
}

// armTimerLocked schedules the next tick. Caller holds the mutex.
func (m *DecisionMachine) armTimerLocked() {
	if m.timer != nil {
		m.timer.Stop()
	}
	m.timer = m.clock.AfterFunc(m.tickInterval, m.Tick)
}

// disarmTimerLocked tears the tick timer down. It runs synchronously
// inside every transition out of Pending, before any timer for a
// subsequent draw can be armed.
func (m *DecisionMachine) disarmTimerLocked() {
	if m.timer != nil {
		m.timer.Stop()
		m.timer = nil
	}
}
