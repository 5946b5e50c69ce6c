package store

import "time"

// ProbeEvent is one appended probe outcome. The log is a raw time series:
// every tick appends exactly one row whether or not a transition happened.
type ProbeEvent struct {
	ID int64     `json:"id"`
	TS time.Time `json:"ts"`
	Up bool      `json:"up"`
}

// DowntimeInterval covers one offline period. EndedAt is nil while the
// endpoint is still considered offline.
type DowntimeInterval struct {
	ID        int64      `json:"id"`
	Ref       string     `json:"ref"`
	StartedAt time.Time  `json:"started_at"`
	EndedAt   *time.Time `json:"ended_at,omitempty"`
}

func (d DowntimeInterval) Open() bool {
	return d.EndedAt == nil
}

func (d DowntimeInterval) Duration() time.Duration {
	if d.EndedAt == nil {
		return 0
	}
	return d.EndedAt.Sub(d.StartedAt)
}

// Settings is the mutable singleton monitor configuration. Individual fields
// are updated atomically; a reader never observes a half-written row.
type Settings struct {
	ID            int64     `json:"id"`
	IntervalMin   int       `json:"interval_min"`
	TimeoutSec    int       `json:"timeout_sec"`
	Keyword       string    `json:"keyword"`
	ChannelRef    string    `json:"channel_ref,omitempty"`
	RetentionDays int       `json:"retention_days"`
	UpdatedAt     time.Time `json:"updated_at"`
}

func (s Settings) Interval() time.Duration {
	min := s.IntervalMin
	if min < 1 {
		min = 1
	}
	return time.Duration(min) * time.Minute
}

func (s Settings) Timeout() time.Duration {
	sec := s.TimeoutSec
	if sec < 1 {
		sec = 1
	}
	return time.Duration(sec) * time.Second
}
