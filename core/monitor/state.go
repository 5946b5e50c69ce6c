package monitor

import "time"

type Status string

const (
	StatusUnknown Status = "unknown"
	StatusOnline  Status = "online"
	StatusOffline Status = "offline"
)

// ObservedState is the engine's in-memory view of the endpoint. It is never
// persisted; a process restart resets it to StatusUnknown and the first probe
// re-establishes a baseline.
type ObservedState struct {
	Status        Status
	DowntimeStart *time.Time
}

type ChangeKind int

const (
	ChangeNone ChangeKind = iota
	ChangeBecameOnline
	ChangeBecameOffline
)

// Change tells the caller what a probe outcome meant: which transition event
// to announce (if any) and which downtime-interval mutation to perform.
type Change struct {
	Kind ChangeKind
	// Downtime is the measured outage length on recovery. Nil on a recovery
	// with no recorded start (first-ever probe landing online).
	Downtime *time.Duration
	// OpenDowntime instructs the caller to open an interval at CheckedAt.
	OpenDowntime bool
	// CloseDowntime instructs the caller to close the open interval at CheckedAt.
	CloseDowntime bool
}

// transition folds one probe outcome into the observed state. Unknown counts
// as "neither online nor offline", so the first probe always emits an event.
func transition(prev ObservedState, out Outcome) (ObservedState, Change) {
	if out.Up {
		if prev.Status == StatusOnline {
			return prev, Change{Kind: ChangeNone}
		}
		change := Change{Kind: ChangeBecameOnline}
		if prev.DowntimeStart != nil {
			d := out.CheckedAt.Sub(*prev.DowntimeStart)
			change.Downtime = &d
			change.CloseDowntime = true
		}
		return ObservedState{Status: StatusOnline}, change
	}
	if prev.Status == StatusOffline {
		return prev, Change{Kind: ChangeNone}
	}
	start := out.CheckedAt
	return ObservedState{Status: StatusOffline, DowntimeStart: &start},
		Change{Kind: ChangeBecameOffline, OpenDowntime: true}
}
