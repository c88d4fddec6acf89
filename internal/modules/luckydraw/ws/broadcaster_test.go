package ws

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/frankieli/forum_product/internal/modules/luckydraw/domain"
)

type captureSender struct {
	frames map[int64][][]byte
}

func newCaptureSender() *captureSender {
	return &captureSender{frames: make(map[int64][][]byte)}
}

func (s *captureSender) SendToUser(userID int64, message []byte) {
	s.frames[userID] = append(s.frames[userID], message)
}

func snapshotWithSeq(seq uint64, state domain.DecisionState) domain.Snapshot {
	return domain.Snapshot{Seq: seq, State: state}
}

func TestStaleFrameDropped(t *testing.T) {
	sender := newCaptureSender()
	b := NewSnapshotBroadcaster(sender)

	// A countdown frame snapshotted before the settlement can arrive
	// after the terminal frame; it must not reopen the countdown on the
	// client.
	b.PushState(1001, snapshotWithSeq(2, domain.StatePaid))
	b.PushState(1001, snapshotWithSeq(1, domain.StatePending))

	frames := sender.frames[1001]
	require.Len(t, frames, 1)

	var snap domain.Snapshot
	require.NoError(t, json.Unmarshal(frames[0], &snap))
	assert.Equal(t, domain.StatePaid, snap.State)
}

func TestNewerFramesDelivered(t *testing.T) {
	sender := newCaptureSender()
	b := NewSnapshotBroadcaster(sender)

	b.PushState(1001, snapshotWithSeq(1, domain.StatePending))
	b.PushState(1001, snapshotWithSeq(2, domain.StatePending))
	b.PushState(1001, snapshotWithSeq(2, domain.StatePending)) // duplicate
	b.PushState(1001, snapshotWithSeq(3, domain.StatePaid))

	assert.Len(t, sender.frames[1001], 3)
}

func TestSequencesAreIndependentPerUser(t *testing.T) {
	sender := newCaptureSender()
	b := NewSnapshotBroadcaster(sender)

	b.PushState(1001, snapshotWithSeq(5, domain.StatePending))
	b.PushState(2002, snapshotWithSeq(1, domain.StatePending))

	assert.Len(t, sender.frames[1001], 1)
	assert.Len(t, sender.frames[2002], 1)
}
