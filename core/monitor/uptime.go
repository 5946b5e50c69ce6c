package monitor

import (
	"context"
	"fmt"
	"math"
	"time"

	"keywatch/core/store"
)

// UptimePercent computes 100*up/total over the trailing window, rounded to
// two decimals half-up. An empty window reports 100.0: absence of data is not
// treated as downtime.
func UptimePercent(ctx context.Context, st store.MonitorStore, now time.Time, hours int) (float64, error) {
	since := now.Add(-time.Duration(hours) * time.Hour)
	up, total, err := st.EventsSummarySince(ctx, since)
	if err != nil {
		return 0, err
	}
	if total == 0 {
		return 100.0, nil
	}
	return round2(float64(up) / float64(total) * 100), nil
}

// Bucket is one trailing-hour uptime percentage for charting. Label is the
// bucket's end time (HH:MM, UTC).
type Bucket struct {
	Label   string  `json:"label"`
	Percent float64 `json:"percent"`
}

// HourlyBuckets returns 24 trailing-hour buckets, oldest first. Bucket i ends
// at now-ih and spans the preceding hour, with the same empty-window
// convention as UptimePercent. The result is a snapshot: events appended mid-computation
// may be missed, which is fine for a best-effort dashboard.
func HourlyBuckets(ctx context.Context, st store.MonitorStore, now time.Time) ([]Bucket, error) {
	buckets := make([]Bucket, 0, 24)
	for i := 23; i >= 0; i-- {
		end := now.Add(-time.Duration(i) * time.Hour)
		start := end.Add(-time.Hour)
		up, total, err := st.EventsSummaryBetween(ctx, start, end)
		if err != nil {
			return nil, err
		}
		percent := 100.0
		if total > 0 {
			percent = round2(float64(up) / float64(total) * 100)
		}
		buckets = append(buckets, Bucket{
			Label:   end.UTC().Format("15:04"),
			Percent: percent,
		})
	}
	return buckets, nil
}

// UptimeSummary bundles the standard trailing windows shown by the status
// surfaces.
type UptimeSummary struct {
	Last24h float64 `json:"uptime_24h"`
	Last7d  float64 `json:"uptime_7d"`
	Last30d float64 `json:"uptime_30d"`
}

func Summary(ctx context.Context, st store.MonitorStore, now time.Time) (UptimeSummary, error) {
	var sum UptimeSummary
	var err error
	if sum.Last24h, err = UptimePercent(ctx, st, now, 24); err != nil {
		return sum, fmt.Errorf("uptime 24h: %w", err)
	}
	if sum.Last7d, err = UptimePercent(ctx, st, now, 24*7); err != nil {
		return sum, fmt.Errorf("uptime 7d: %w", err)
	}
	if sum.Last30d, err = UptimePercent(ctx, st, now, 24*30); err != nil {
		return sum, fmt.Errorf("uptime 30d: %w", err)
	}
	return sum, nil
}

func round2(v float64) float64 {
	return math.Floor(v*100+0.5) / 100
}
