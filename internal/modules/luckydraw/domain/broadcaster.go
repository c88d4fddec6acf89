package domain

// StateBroadcaster pushes engine snapshots to the owning user's
// display channel
type StateBroadcaster interface {
	PushState(userID int64, snapshot Snapshot)
}
