package ws

import (
	"context"
	"encoding/json"
	"sync"

	"github.com/frankieli/forum_product/internal/modules/luckydraw/domain"
	"github.com/frankieli/forum_product/pkg/logger"
)

// FrameSender delivers a raw frame to one user's connection
type FrameSender interface {
	SendToUser(userID int64, message []byte)
}

// SnapshotBroadcaster implements domain.StateBroadcaster over the
// connection manager. Engine handlers run outside the machine lock, so
// two goroutines can hand their snapshots over in either order; frames
// are sequenced by Snapshot.Seq and a stale frame is dropped rather
// than letting a pre-settlement countdown overwrite the settled state
// on the client.
type SnapshotBroadcaster struct {
	sender FrameSender

	mu      sync.Mutex
	lastSeq map[int64]uint64
}

// NewSnapshotBroadcaster creates a broadcaster on top of a sender
func NewSnapshotBroadcaster(sender FrameSender) *SnapshotBroadcaster {
	return &SnapshotBroadcaster{
		sender:  sender,
		lastSeq: make(map[int64]uint64),
	}
}

// PushState marshals the snapshot and delivers it to the owning user,
// unless a newer snapshot has already been delivered
func (b *SnapshotBroadcaster) PushState(userID int64, snapshot domain.Snapshot) {
	b.mu.Lock()
	if snapshot.Seq <= b.lastSeq[userID] {
		b.mu.Unlock()
		return
	}
	b.lastSeq[userID] = snapshot.Seq
	b.mu.Unlock()

	frame, err := json.Marshal(snapshot)
	if err != nil {
		logger.Error(context.Background()).Err(err).Msg("snapshot marshal failed")
		return
	}
	b.sender.SendToUser(userID, frame)
}
