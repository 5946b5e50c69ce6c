package monitor

import (
	"context"
	"fmt"
	"sync"
	"time"

	"keywatch/core/store"
	"keywatch/core/utils"
)

// Engine owns the monitor loop: it probes the endpoint on the configured
// interval, drives the online/offline state machine, mutates the stores and
// hands transition notices to the dispatcher. Exactly one probe-and-transition
// cycle is in flight at any time; ForceCheck serializes against the scheduled
// tick through the same mutex.
type Engine struct {
	store      store.MonitorStore
	prober     *Prober
	dispatcher *Dispatcher
	chart      *ChartBuilder
	logger     *utils.Logger

	mu      sync.Mutex
	cancel  context.CancelFunc
	running bool
	wg      sync.WaitGroup

	cycleMu sync.Mutex

	state       ObservedState
	lastChecked *time.Time
}

func NewEngine(st store.MonitorStore, prober *Prober, dispatcher *Dispatcher, logger *utils.Logger) *Engine {
	return &Engine{
		store:      st,
		prober:     prober,
		dispatcher: dispatcher,
		logger:     logger,
		state:      ObservedState{Status: StatusUnknown},
	}
}

// WithChart attaches an uptime chart to recovery notifications. Optional.
func (e *Engine) WithChart(chart *ChartBuilder) *Engine {
	e.chart = chart
	return e
}

func (e *Engine) Start() {
	e.StartWithContext(context.Background())
}

func (e *Engine) StartWithContext(ctx context.Context) {
	e.mu.Lock()
	if e.running {
		e.mu.Unlock()
		return
	}
	runCtx, cancel := context.WithCancel(ctx)
	e.cancel = cancel
	e.running = true
	e.wg.Add(1)
	e.mu.Unlock()
	go e.loop(runCtx)
}

func (e *Engine) Stop() {
	_ = e.StopWithContext(context.Background())
}

// StopWithContext cancels the loop and waits for its goroutine to exit,
// giving up when ctx expires. Cancelling aborts an in-flight probe; the
// interrupted cycle's writes are lost and the endpoint is simply re-probed
// on the next start.
func (e *Engine) StopWithContext(ctx context.Context) error {
	e.mu.Lock()
	if e.cancel == nil || !e.running {
		e.mu.Unlock()
		return nil
	}
	cancel := e.cancel
	e.cancel = nil
	e.mu.Unlock()
	cancel()
	waitDone := make(chan struct{})
	go func() {
		e.wg.Wait()
		close(waitDone)
	}()
	select {
	case <-waitDone:
		e.mu.Lock()
		e.running = false
		e.mu.Unlock()
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// loop re-reads settings at the top of every cycle, so interval, timeout and
// keyword changes take effect on the next tick without a restart. A settings
// change never interrupts an in-progress wait.
func (e *Engine) loop(ctx context.Context) {
	defer e.wg.Done()
	timer := time.NewTimer(0)
	defer timer.Stop()
	for {
		select {
		case <-timer.C:
		case <-ctx.Done():
			return
		}
		wait := time.Minute
		settings, err := e.store.GetSettings(ctx)
		if err != nil {
			e.logger.Errorf("monitor: read settings: %v", err)
		} else {
			if _, err := e.runCycle(ctx, settings); err != nil {
				e.logger.Errorf("monitor: cycle: %v", err)
			}
			wait = settings.Interval()
		}
		timer.Reset(wait)
	}
}

// ForceCheck runs one probe-and-transition cycle synchronously and returns
// the outcome. It uses fresh settings and the same single-flight lock as the
// scheduled loop.
func (e *Engine) ForceCheck(ctx context.Context) (Outcome, error) {
	settings, err := e.store.GetSettings(ctx)
	if err != nil {
		return Outcome{}, err
	}
	return e.runCycle(ctx, settings)
}

// runCycle is the single-flight probe → transition → store-write → notify
// sequence. Store failures abort the cycle before the in-memory state is
// committed, so the next tick retries the same transition.
func (e *Engine) runCycle(ctx context.Context, settings *store.Settings) (Outcome, error) {
	e.cycleMu.Lock()
	defer e.cycleMu.Unlock()

	out := e.prober.Probe(ctx, settings.Timeout(), settings.Keyword)
	if err := e.store.AppendEvent(ctx, out.CheckedAt, out.Up); err != nil {
		return out, fmt.Errorf("append event: %w", err)
	}

	prev := e.observed()
	next, change := transition(prev, out)

	var incidentRef string
	if change.OpenDowntime {
		interval, err := e.store.OpenDowntime(ctx, out.CheckedAt)
		if err != nil {
			return out, fmt.Errorf("open downtime: %w", err)
		}
		incidentRef = interval.Ref
	}
	if change.CloseDowntime {
		if err := e.store.CloseLastOpenDowntime(ctx, out.CheckedAt); err != nil {
			return out, fmt.Errorf("close downtime: %w", err)
		}
		if last, err := e.store.LastDowntime(ctx); err == nil && last != nil {
			incidentRef = last.Ref
		}
	}

	e.commit(next, out.CheckedAt)

	if change.Kind != ChangeNone {
		text := e.transitionMessage(change, settings, incidentRef)
		e.logger.Infof("monitor: %s", statusWord(change.Kind))
		e.dispatcher.Notify(text, e.recoveryChart(ctx, change, out.CheckedAt))
	}
	return out, nil
}

// recoveryChart renders the 24h uptime chart for recovery notices. Strictly
// best effort: any failure means a text-only notice.
func (e *Engine) recoveryChart(ctx context.Context, change Change, now time.Time) *Attachment {
	if e.chart == nil || change.Kind != ChangeBecameOnline || change.Downtime == nil {
		return nil
	}
	buckets, err := HourlyBuckets(ctx, e.store, now)
	if err != nil {
		return nil
	}
	png, err := e.chart.FetchPNG(ctx, buckets)
	if err != nil {
		e.logger.Warnf("monitor: chart render failed, sending text only: %v", err)
		return nil
	}
	return &Attachment{Filename: "uptime.png", Data: png}
}

func (e *Engine) observed() ObservedState {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.state
}

func (e *Engine) commit(next ObservedState, checkedAt time.Time) {
	e.mu.Lock()
	e.state = next
	ts := checkedAt
	e.lastChecked = &ts
	e.mu.Unlock()
}

// Snapshot is the status view served by the liveness endpoint.
type Snapshot struct {
	Status        Status          `json:"status"`
	Online        bool            `json:"online"`
	LastCheckedAt *time.Time      `json:"last_checked_at,omitempty"`
	Settings      *store.Settings `json:"settings,omitempty"`
	TargetURL     string          `json:"target_url"`
}

func (e *Engine) Snapshot(ctx context.Context) Snapshot {
	e.mu.Lock()
	snap := Snapshot{
		Status:        e.state.Status,
		Online:        e.state.Status == StatusOnline,
		LastCheckedAt: e.lastChecked,
		TargetURL:     e.prober.URL(),
	}
	e.mu.Unlock()
	if settings, err := e.store.GetSettings(ctx); err == nil {
		snap.Settings = settings
	}
	return snap
}

func (e *Engine) transitionMessage(change Change, settings *store.Settings, incidentRef string) string {
	url := e.prober.URL()
	switch change.Kind {
	case ChangeBecameOnline:
		if change.Downtime != nil {
			return fmt.Sprintf("✅ Endpoint is BACK ONLINE\nDowntime: %ds\nIncident: %s\n%s",
				int(change.Downtime.Seconds()), incidentRef, url)
		}
		return fmt.Sprintf("✅ Endpoint is ONLINE\n%s", url)
	case ChangeBecameOffline:
		return fmt.Sprintf("\U0001F534 Endpoint is OFFLINE\n%s\nIncident: %s\n(keyword %q not found or fetch error)",
			url, incidentRef, settings.Keyword)
	default:
		return ""
	}
}

func statusWord(kind ChangeKind) string {
	switch kind {
	case ChangeBecameOnline:
		return "became online"
	case ChangeBecameOffline:
		return "became offline"
	default:
		return "no change"
	}
}
