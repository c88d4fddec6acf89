// Package domain defines the lucky draw entities and ports.
package domain

import "math/rand"

const (
	// SentinelGiftID is the id of the distinguished "no win" catalog entry
	SentinelGiftID = "0"
	// SentinelGiftName is the display name of the "no win" entry
	SentinelGiftName = "谢谢参与"
)

// Prize is the canonical, fully-normalized catalog entry. Backend payload
// aliasing is resolved before a Prize is constructed; a Prize is never
// partially populated.
type Prize struct {
	ID          string  `json:"id"`
	Name        string  `json:"name"`
	Description string  `json:"description,omitempty"`
	ImageRef    string  `json:"image_ref,omitempty"`
	Value       float64 `json:"value,omitempty"`
}

// IsSentinel reports whether the prize is the "no win" outcome
func (p Prize) IsSentinel() bool {
	return p.ID == SentinelGiftID || p.Name == SentinelGiftName
}

// SentinelPrize returns the synthesized "no win" entry used when the
// backend catalog ships without one. The wheel must always carry a
// no-win slot.
func SentinelPrize() Prize {
	return Prize{
		ID:   SentinelGiftID,
		Name: SentinelGiftName,
	}
}

// DrawnPrize is a drawn prize plus its presentation-only wheel placement.
// SlotIndex and RotateDeg carry no correctness weight and are never sent
// back to the server.
type DrawnPrize struct {
	Prize     Prize `json:"prize"`
	SlotIndex int   `json:"slot_index"`
	RotateDeg int   `json:"rotate_deg"`
}

// WheelSlot maps a drawn prize onto a catalog slot: match by id, fall back
// to name, fall back to a uniform random slot so a briefly stale catalog
// never breaks the wheel.
func WheelSlot(catalog []Prize, drawn Prize, rnd *rand.Rand) int {
	for i, p := range catalog {
		if p.ID == drawn.ID {
			return i
		}
	}
	for i, p := range catalog {
		if p.Name == drawn.Name {
			return i
		}
	}
	return rnd.Intn(len(catalog))
}

// WheelRotation computes the cosmetic rotation target for a slot:
// 6 to 8 extra full turns plus the offset that parks the slot under
// the pointer.
func WheelRotation(slot, slotCount int, rnd *rand.Rand) int {
	turns := 6 + rnd.Intn(3)
	offset := 360 - slot*(360/slotCount)
	return turns*360 + offset
}
