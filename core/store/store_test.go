package store

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"keywatch/config"
	"keywatch/core/utils"
)

func newTestStore(t *testing.T) MonitorStore {
	t.Helper()
	cfg := &config.AppConfig{
		DBDriver: "sqlite",
		DBPath:   filepath.Join(t.TempDir(), "store_test.db"),
	}
	logger := utils.NewTestLogger()
	db, err := NewDB(cfg, logger)
	if err != nil {
		t.Fatalf("db: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })
	if err := ApplyMigrations(context.Background(), db, logger); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	return NewMonitorStore(db, DefaultSettings(5, 10, "Online"))
}

func TestGetSettingsSeedsDefaults(t *testing.T) {
	st := newTestStore(t)
	ctx := context.Background()

	settings, err := st.GetSettings(ctx)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if settings.IntervalMin != 5 || settings.TimeoutSec != 10 || settings.Keyword != "Online" {
		t.Fatalf("unexpected seeded settings %+v", settings)
	}
	if settings.RetentionDays != 90 {
		t.Fatalf("expected default retention, got %d", settings.RetentionDays)
	}

	// A second read returns the persisted row, not a new seed.
	again, err := st.GetSettings(ctx)
	if err != nil {
		t.Fatalf("get again: %v", err)
	}
	if again.ID != 1 {
		t.Fatalf("expected singleton row id 1, got %d", again.ID)
	}
}

func TestUpdateSettingsRoundTrip(t *testing.T) {
	st := newTestStore(t)
	ctx := context.Background()

	settings, err := st.GetSettings(ctx)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	settings.IntervalMin = 2
	settings.TimeoutSec = 30
	settings.Keyword = "all systems go"
	settings.ChannelRef = "chan-7"
	if err := st.UpdateSettings(ctx, settings); err != nil {
		t.Fatalf("update: %v", err)
	}

	got, err := st.GetSettings(ctx)
	if err != nil {
		t.Fatalf("get after update: %v", err)
	}
	if got.IntervalMin != 2 || got.TimeoutSec != 30 || got.Keyword != "all systems go" || got.ChannelRef != "chan-7" {
		t.Fatalf("settings did not persist: %+v", got)
	}
}

func TestUpdateSettingsRejectsInvalid(t *testing.T) {
	st := newTestStore(t)
	ctx := context.Background()

	cases := []Settings{
		{IntervalMin: 0, TimeoutSec: 10, Keyword: "x"},
		{IntervalMin: 5, TimeoutSec: 0, Keyword: "x"},
		{IntervalMin: 5, TimeoutSec: 10, Keyword: "   "},
		{IntervalMin: 5, TimeoutSec: 10, Keyword: "x", RetentionDays: -1},
	}
	for i, c := range cases {
		if err := st.UpdateSettings(ctx, &c); !errors.Is(err, ErrInvalidSettingValue) {
			t.Fatalf("case %d: expected ErrInvalidSettingValue, got %v", i, err)
		}
	}
}

func TestUpdateSettingField(t *testing.T) {
	st := newTestStore(t)
	ctx := context.Background()

	if err := st.UpdateSettingField(ctx, "interval_min", "3"); err != nil {
		t.Fatalf("interval_min: %v", err)
	}
	if err := st.UpdateSettingField(ctx, "keyword", "healthy"); err != nil {
		t.Fatalf("keyword: %v", err)
	}
	if err := st.UpdateSettingField(ctx, "retention_days", "0"); err != nil {
		t.Fatalf("retention_days zero must be allowed: %v", err)
	}

	got, err := st.GetSettings(ctx)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got.IntervalMin != 3 || got.Keyword != "healthy" || got.RetentionDays != 0 {
		t.Fatalf("field updates did not persist: %+v", got)
	}

	if err := st.UpdateSettingField(ctx, "interval_min", "0"); !errors.Is(err, ErrInvalidSettingValue) {
		t.Fatalf("expected invalid value, got %v", err)
	}
	if err := st.UpdateSettingField(ctx, "interval_min", "abc"); !errors.Is(err, ErrInvalidSettingValue) {
		t.Fatalf("expected invalid value for non-number, got %v", err)
	}
	if err := st.UpdateSettingField(ctx, "keyword", "  "); !errors.Is(err, ErrInvalidSettingValue) {
		t.Fatalf("expected invalid value for blank keyword, got %v", err)
	}
	if err := st.UpdateSettingField(ctx, "no_such_field", "1"); !errors.Is(err, ErrUnknownSettingField) {
		t.Fatalf("expected unknown field, got %v", err)
	}
}

func TestEventsAppendAndRange(t *testing.T) {
	st := newTestStore(t)
	ctx := context.Background()
	base := time.Date(2026, 8, 26, 12, 0, 0, 0, time.UTC)

	ticks := []struct {
		at time.Time
		up bool
	}{
		{base, true},
		{base.Add(time.Minute), false},
		{base.Add(2 * time.Minute), false},
		{base.Add(3 * time.Minute), true},
	}
	for _, tick := range ticks {
		if err := st.AppendEvent(ctx, tick.at, tick.up); err != nil {
			t.Fatalf("append: %v", err)
		}
	}

	all, err := st.EventsSince(ctx, base)
	if err != nil {
		t.Fatalf("since: %v", err)
	}
	if len(all) != 4 {
		t.Fatalf("expected 4 events, got %d", len(all))
	}
	for i := 1; i < len(all); i++ {
		if all[i].TS.Before(all[i-1].TS) {
			t.Fatalf("events must come back in ascending order")
		}
	}

	mid, err := st.EventsInRange(ctx, base.Add(time.Minute), base.Add(3*time.Minute))
	if err != nil {
		t.Fatalf("range: %v", err)
	}
	if len(mid) != 2 {
		t.Fatalf("expected 2 events in range, got %d", len(mid))
	}
	if mid[0].Up || mid[1].Up {
		t.Fatalf("expected the two down events, got %+v", mid)
	}

	last, err := st.LastEvent(ctx)
	if err != nil {
		t.Fatalf("last: %v", err)
	}
	if last == nil || !last.Up || !last.TS.Equal(base.Add(3*time.Minute)) {
		t.Fatalf("unexpected last event %+v", last)
	}
}

func TestLastEventEmptyLog(t *testing.T) {
	st := newTestStore(t)
	last, err := st.LastEvent(context.Background())
	if err != nil {
		t.Fatalf("last: %v", err)
	}
	if last != nil {
		t.Fatalf("expected nil on empty log, got %+v", last)
	}
}

func TestEventsSummaries(t *testing.T) {
	st := newTestStore(t)
	ctx := context.Background()
	base := time.Date(2026, 8, 26, 12, 0, 0, 0, time.UTC)

	for i, up := range []bool{true, true, false, true} {
		if err := st.AppendEvent(ctx, base.Add(time.Duration(i)*time.Minute), up); err != nil {
			t.Fatalf("append: %v", err)
		}
	}

	up, total, err := st.EventsSummarySince(ctx, base)
	if err != nil {
		t.Fatalf("summary since: %v", err)
	}
	if up != 3 || total != 4 {
		t.Fatalf("expected 3/4, got %d/%d", up, total)
	}

	up, total, err = st.EventsSummaryBetween(ctx, base, base.Add(3*time.Minute))
	if err != nil {
		t.Fatalf("summary between: %v", err)
	}
	if up != 2 || total != 3 {
		t.Fatalf("expected 2/3, got %d/%d", up, total)
	}

	up, total, err = st.EventsSummarySince(ctx, base.Add(time.Hour))
	if err != nil {
		t.Fatalf("empty summary: %v", err)
	}
	if up != 0 || total != 0 {
		t.Fatalf("empty window must report 0/0, got %d/%d", up, total)
	}
}

func TestDeleteEventsBefore(t *testing.T) {
	st := newTestStore(t)
	ctx := context.Background()
	base := time.Date(2026, 8, 26, 12, 0, 0, 0, time.UTC)

	for i := 0; i < 5; i++ {
		if err := st.AppendEvent(ctx, base.Add(time.Duration(i)*time.Hour), true); err != nil {
			t.Fatalf("append: %v", err)
		}
	}
	deleted, err := st.DeleteEventsBefore(ctx, base.Add(3*time.Hour))
	if err != nil {
		t.Fatalf("delete: %v", err)
	}
	if deleted != 3 {
		t.Fatalf("expected 3 deleted, got %d", deleted)
	}
	remaining, err := st.EventsSince(ctx, time.Time{})
	if err != nil {
		t.Fatalf("since: %v", err)
	}
	if len(remaining) != 2 {
		t.Fatalf("expected 2 remaining, got %d", len(remaining))
	}
}

func TestDowntimeOpenClose(t *testing.T) {
	st := newTestStore(t)
	ctx := context.Background()
	start := time.Date(2026, 8, 26, 12, 0, 0, 0, time.UTC)

	opened, err := st.OpenDowntime(ctx, start)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	if opened.Ref == "" {
		t.Fatalf("open interval must have a ref")
	}
	if !opened.Open() {
		t.Fatalf("freshly opened interval must be open")
	}

	if err := st.CloseLastOpenDowntime(ctx, start.Add(90*time.Second)); err != nil {
		t.Fatalf("close: %v", err)
	}
	last, err := st.LastDowntime(ctx)
	if err != nil {
		t.Fatalf("last: %v", err)
	}
	if last == nil || last.Open() {
		t.Fatalf("expected closed interval, got %+v", last)
	}
	if last.Ref != opened.Ref {
		t.Fatalf("closed interval must keep its ref")
	}
	if got := last.Duration(); got != 90*time.Second {
		t.Fatalf("expected 90s duration, got %s", got)
	}
}

func TestCloseWithoutOpenIsNoop(t *testing.T) {
	st := newTestStore(t)
	if err := st.CloseLastOpenDowntime(context.Background(), time.Now()); err != nil {
		t.Fatalf("close with no open interval must not fail: %v", err)
	}
}

func TestListDowntimesNewestFirst(t *testing.T) {
	st := newTestStore(t)
	ctx := context.Background()
	base := time.Date(2026, 8, 26, 0, 0, 0, 0, time.UTC)

	for i := 0; i < 3; i++ {
		start := base.Add(time.Duration(i) * time.Hour)
		if _, err := st.OpenDowntime(ctx, start); err != nil {
			t.Fatalf("open %d: %v", i, err)
		}
		if err := st.CloseLastOpenDowntime(ctx, start.Add(time.Minute)); err != nil {
			t.Fatalf("close %d: %v", i, err)
		}
	}

	list, err := st.ListDowntimes(ctx, 2)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(list) != 2 {
		t.Fatalf("limit must cap the result, got %d", len(list))
	}
	if !list[0].StartedAt.After(list[1].StartedAt) {
		t.Fatalf("expected newest first, got %+v", list)
	}
}
