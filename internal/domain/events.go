package domain

import "time"

// Event classifies how a mutation moved a slot's status.
type Event string

const (
	EventStock   Event = "stock"
	EventFill    Event = "fill"
	EventRelease Event = "release"
	EventClear   Event = "clear"
)

// Transition defines a valid status change: an event moves a slot from Src to Dst.
type Transition struct {
	Event Event
	Src   Status
	Dst   Status
}

// Transitions defines every status change an allocate (stock, fill) or a
// deallocate (release, clear) may cause. Self-loops are allowed: stocking a
// partially filled slot leaves it partially filled.
var Transitions = []Transition{
	{Event: EventStock, Src: StatusEmpty, Dst: StatusPartiallyFilled},
	{Event: EventStock, Src: StatusPartiallyFilled, Dst: StatusPartiallyFilled},
	{Event: EventFill, Src: StatusEmpty, Dst: StatusFull},
	{Event: EventFill, Src: StatusPartiallyFilled, Dst: StatusFull},
	{Event: EventRelease, Src: StatusFull, Dst: StatusPartiallyFilled},
	{Event: EventRelease, Src: StatusPartiallyFilled, Dst: StatusPartiallyFilled},
	{Event: EventClear, Src: StatusPartiallyFilled, Dst: StatusEmpty},
	{Event: EventClear, Src: StatusFull, Dst: StatusEmpty},
}

// EventFor names the event for a bag delta that left the slot in status after.
func EventFor(bagsDelta int, after Status) Event {
	if bagsDelta > 0 {
		if after == StatusFull {
			return EventFill
		}
		return EventStock
	}
	if after == StatusEmpty {
		return EventClear
	}
	return EventRelease
}

// SlotEvent is published after every committed allocate or deallocate.
type SlotEvent struct {
	Event      Event
	Slot       SlotRef
	CustomerID string
	BagsDelta  int
	Status     Status
	FilledBags int
	OccurredAt time.Time
}
