package machine

import (
	"sync"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/frankieli/forum_product/internal/modules/luckydraw/domain"
)

const (
	testWindow = 600 * time.Second
	testTick   = 250 * time.Millisecond
)

func newTestMachine() (*DecisionMachine, *clockwork.FakeClock) {
	clock := clockwork.NewFakeClock()
	return NewDecisionMachine(clock, testWindow, testTick), clock
}

func drawnPrize(id, name string) domain.DrawnPrize {
	return domain.DrawnPrize{
		Prize:     domain.Prize{ID: id, Name: name},
		SlotIndex: 3,
		RotateDeg: 2520,
	}
}

func TestSentinelShortCircuit(t *testing.T) {
	m, _ := newTestMachine()

	recordID, err := m.StartDecision(drawnPrize("0", "谢谢参与"))
	require.NoError(t, err)
	require.NotEmpty(t, recordID)

	snap := m.Snapshot()
	assert.Equal(t, domain.StateMissed, snap.State)
	assert.EqualValues(t, 0, snap.RemainingMs)
	require.Len(t, snap.History, 1)
	assert.Equal(t, domain.HistoryStatusNoWin, snap.History[0].Status)

	// No decision window was opened, so settlement must be rejected.
	_, _, err = m.BeginSettlement()
	assert.ErrorIs(t, err, domain.ErrNotPending)
}

func TestPendingWindowOpens(t *testing.T) {
	m, _ := newTestMachine()

	recordID, err := m.StartDecision(drawnPrize("7", "会员月卡"))
	require.NoError(t, err)

	snap := m.Snapshot()
	assert.Equal(t, domain.StatePending, snap.State)
	assert.EqualValues(t, testWindow.Milliseconds(), snap.RemainingMs)
	require.Len(t, snap.History, 1)
	assert.Equal(t, recordID, snap.History[0].ID)
	assert.Equal(t, domain.HistoryStatusAwaiting, snap.History[0].Status)
}

func TestRemainingTimeMonotonic(t *testing.T) {
	m, clock := newTestMachine()

	_, err := m.StartDecision(drawnPrize("7", "会员月卡"))
	require.NoError(t, err)

	last := m.Snapshot().RemainingMs
	for _, step := range []time.Duration{
		100 * time.Millisecond,
		30 * time.Second,
		1 * time.Second,
		// Simulated suspend/resume gap: many ticks missed at once.
		300 * time.Second,
	} {
		clock.Advance(step)
		m.Tick()

		snap := m.Snapshot()
		assert.LessOrEqual(t, snap.RemainingMs, last, "remaining time must never increase")
		last = snap.RemainingMs
	}

	// Exactly at the deadline the remaining time reaches zero.
	clock.Advance(testWindow)
	assert.EqualValues(t, 0, m.Snapshot().RemainingMs)
}

func TestTimeoutAbandon(t *testing.T) {
	m, clock := newTestMachine()

	timedOut := make(chan string, 1)
	m.SetTimeoutHandler(func(recordID string, prize domain.Prize) {
		timedOut <- recordID
	})

	recordID, err := m.StartDecision(drawnPrize("7", "会员月卡"))
	require.NoError(t, err)

	clock.Advance(testWindow)
	m.Tick()

	snap := m.Snapshot()
	assert.Equal(t, domain.StateAbandoned, snap.State)
	require.Len(t, snap.History, 1)
	assert.Equal(t, domain.HistoryStatusTimedOut, snap.History[0].Status)

	select {
	case got := <-timedOut:
		assert.Equal(t, recordID, got)
	case <-time.After(2 * time.Second):
		t.Fatal("timeout cleanup handler was not invoked")
	}
}

func TestTimeoutDeferredWhileSubmitting(t *testing.T) {
	m, clock := newTestMachine()

	m.SetTimeoutHandler(func(string, domain.Prize) {
		t.Error("timeout abandon must not fire while a submission is in flight")
	})

	_, err := m.StartDecision(drawnPrize("7", "会员月卡"))
	require.NoError(t, err)

	_, _, err = m.BeginSettlement()
	require.NoError(t, err)

	// Deadline crosses while the pay call is still on the wire.
	clock.Advance(testWindow + time.Second)
	m.Tick()
	assert.Equal(t, domain.StatePending, m.Snapshot().State)

	// The submission result wins.
	m.FinishSettlement(domain.StatePaid, true)
	snap := m.Snapshot()
	assert.Equal(t, domain.StatePaid, snap.State)
	assert.Equal(t, domain.HistoryStatusPaid, snap.History[0].Status)

	// A late tick after settlement changes nothing.
	m.Tick()
	assert.Equal(t, domain.StatePaid, m.Snapshot().State)
}

func TestSettlementOutcomeBeatsExpiredDeadline(t *testing.T) {
	// The server confirmation and a crossed deadline race: the outcome
	// must be applied in the same critical section that releases the
	// gate, or a concurrent tick can abandon a charged payment.
	for i := 0; i < 100; i++ {
		m, clock := newTestMachine()

		_, err := m.StartDecision(drawnPrize("7", "会员月卡"))
		require.NoError(t, err)

		_, _, err = m.BeginSettlement()
		require.NoError(t, err)

		clock.Advance(testWindow + time.Second)

		stop := make(chan struct{})
		var wg sync.WaitGroup
		wg.Add(1)
		go func() {
			defer wg.Done()
			for {
				select {
				case <-stop:
					return
				default:
					m.Tick()
				}
			}
		}()

		m.FinishSettlement(domain.StatePaid, true)
		close(stop)
		wg.Wait()

		snap := m.Snapshot()
		require.Equal(t, domain.StatePaid, snap.State, "server-confirmed pay lost on iteration %d", i)
		require.Equal(t, domain.HistoryStatusPaid, snap.History[0].Status)
	}
}

func TestSettlementGateExclusive(t *testing.T) {
	m, _ := newTestMachine()

	_, err := m.StartDecision(drawnPrize("7", "会员月卡"))
	require.NoError(t, err)

	_, _, err = m.BeginSettlement()
	require.NoError(t, err)

	_, _, err = m.BeginSettlement()
	assert.ErrorIs(t, err, domain.ErrSubmissionInProgress)

	// A failed settlement releases the gate and keeps the window open.
	m.FinishSettlement(domain.StatePaid, false)
	assert.Equal(t, domain.StatePending, m.Snapshot().State)

	_, _, err = m.BeginSettlement()
	assert.NoError(t, err)
}

func TestOnSettledIdempotent(t *testing.T) {
	m, _ := newTestMachine()

	_, err := m.StartDecision(drawnPrize("7", "会员月卡"))
	require.NoError(t, err)

	m.OnSettled(domain.StatePaid)
	m.OnSettled(domain.StatePaid)

	snap := m.Snapshot()
	assert.Equal(t, domain.StatePaid, snap.State)
	require.Len(t, snap.History, 1)
	assert.Equal(t, domain.HistoryStatusPaid, snap.History[0].Status)

	// The second call must not have re-armed anything: crossing the old
	// deadline leaves the terminal state untouched.
	m.Tick()
	assert.Equal(t, domain.StatePaid, m.Snapshot().State)
}

func TestResetClearsDisplayNotHistory(t *testing.T) {
	m, _ := newTestMachine()

	_, err := m.StartDecision(drawnPrize("0", "谢谢参与"))
	require.NoError(t, err)

	m.Reset()

	snap := m.Snapshot()
	assert.Equal(t, domain.StateIdle, snap.State)
	assert.Nil(t, snap.CurrentPrize)
	assert.Len(t, snap.History, 1)
}

func TestResetIgnoredWhilePending(t *testing.T) {
	m, _ := newTestMachine()

	_, err := m.StartDecision(drawnPrize("7", "会员月卡"))
	require.NoError(t, err)

	m.Reset()
	assert.Equal(t, domain.StatePending, m.Snapshot().State)
}

func TestDrawRejectedWhileWindowOpen(t *testing.T) {
	m, _ := newTestMachine()

	_, err := m.StartDecision(drawnPrize("7", "会员月卡"))
	require.NoError(t, err)

	_, err = m.StartDecision(drawnPrize("8", "棒棒糖"))
	assert.ErrorIs(t, err, domain.ErrDecisionActive)
}

func TestHistoryRingAcrossDraws(t *testing.T) {
	m, _ := newTestMachine()

	var recordIDs []string
	for i := 0; i < domain.HistoryCapacity+3; i++ {
		recordID, err := m.StartDecision(drawnPrize("0", "谢谢参与"))
		require.NoError(t, err)
		recordIDs = append(recordIDs, recordID)
		m.Reset()
	}

	snap := m.Snapshot()
	require.Len(t, snap.History, domain.HistoryCapacity)

	// Newest first, oldest evicted.
	assert.Equal(t, recordIDs[len(recordIDs)-1], snap.History[0].ID)
	assert.Equal(t, recordIDs[3], snap.History[domain.HistoryCapacity-1].ID)
}

func TestEventsCarryTransitions(t *testing.T) {
	m, clock := newTestMachine()

	var (
		mu    sync.Mutex
		types []EventType
	)
	m.RegisterEventHandler(func(event Event) {
		if event.Type != EventTick {
			mu.Lock()
			types = append(types, event.Type)
			mu.Unlock()
		}
	})

	_, err := m.StartDecision(drawnPrize("7", "会员月卡"))
	require.NoError(t, err)

	clock.Advance(testWindow)
	m.Tick()

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, []EventType{EventDecisionStarted, EventTimedOut}, types)
}

func TestEventSnapshotsAreSequenced(t *testing.T) {
	m, _ := newTestMachine()

	var seqs []uint64
	m.RegisterEventHandler(func(event Event) {
		seqs = append(seqs, event.Snapshot.Seq)
	})

	_, err := m.StartDecision(drawnPrize("7", "会员月卡"))
	require.NoError(t, err)
	m.OnSettled(domain.StatePaid)
	m.Reset()

	require.Len(t, seqs, 3)
	for i := 1; i < len(seqs); i++ {
		assert.Greater(t, seqs[i], seqs[i-1], "snapshot sequence must increase with each transition")
	}
}
