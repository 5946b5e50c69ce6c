package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"keywatch/core/monitor"
	"keywatch/core/store"
	"keywatch/core/utils"
)

const (
	errBadRequest  = "common.badRequest"
	errServerError = "common.serverError"
)

type MonitorHandler struct {
	store      store.MonitorStore
	engine     *monitor.Engine
	dispatcher *monitor.Dispatcher
	chart      *monitor.ChartBuilder
	logger     *utils.Logger
}

func NewMonitorHandler(st store.MonitorStore, engine *monitor.Engine, dispatcher *monitor.Dispatcher, chart *monitor.ChartBuilder, logger *utils.Logger) *MonitorHandler {
	return &MonitorHandler{store: st, engine: engine, dispatcher: dispatcher, chart: chart, logger: logger}
}

// Index mirrors the minimal public status page: current status, time of the
// last check and the live settings. Before the first probe of this process
// the status is derived from the newest probe-log row, so a restart does not
// blank the page.
func (h *MonitorHandler) Index(w http.ResponseWriter, r *http.Request) {
	snap := h.engine.Snapshot(r.Context())
	payload := map[string]any{
		"status":   snap.Status,
		"settings": snap.Settings,
	}
	if snap.LastCheckedAt != nil {
		payload["last_checked"] = snap.LastCheckedAt.UTC().Format(time.RFC3339)
	} else if last, err := h.store.LastEvent(r.Context()); err == nil && last != nil {
		status := monitor.StatusOffline
		if last.Up {
			status = monitor.StatusOnline
		}
		payload["status"] = status
		payload["last_checked"] = last.TS.UTC().Format(time.RFC3339)
	}
	writeJSON(w, http.StatusOK, payload)
}

func (h *MonitorHandler) Liveness(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

func (h *MonitorHandler) Status(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	now := time.Now().UTC()
	snap := h.engine.Snapshot(ctx)
	summary, err := monitor.Summary(ctx, h.store, now)
	if err != nil {
		h.logger.Errorf("api: uptime summary: %v", err)
		http.Error(w, errServerError, http.StatusInternalServerError)
		return
	}
	payload := map[string]any{
		"snapshot": snap,
		"uptime":   summary,
	}
	if last, err := h.store.LastDowntime(ctx); err == nil && last != nil {
		payload["last_incident"] = last
	}
	writeJSON(w, http.StatusOK, payload)
}

func (h *MonitorHandler) HealthSummary(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	now := time.Now().UTC()
	summary, err := monitor.Summary(ctx, h.store, now)
	if err != nil {
		http.Error(w, errServerError, http.StatusInternalServerError)
		return
	}
	buckets, err := monitor.HourlyBuckets(ctx, h.store, now)
	if err != nil {
		http.Error(w, errServerError, http.StatusInternalServerError)
		return
	}
	payload := map[string]any{
		"snapshot": h.engine.Snapshot(ctx),
		"uptime":   summary,
		"hourly":   buckets,
	}
	if h.chart != nil {
		payload["chart_url"] = h.chart.URL(buckets)
	}
	writeJSON(w, http.StatusOK, payload)
}

// NotifyHealth pushes the health summary (text plus chart image when the
// renderer cooperates) to the configured recipients.
func (h *MonitorHandler) NotifyHealth(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	now := time.Now().UTC()
	summary, err := monitor.Summary(ctx, h.store, now)
	if err != nil {
		http.Error(w, errServerError, http.StatusInternalServerError)
		return
	}
	lines := []string{
		"Endpoint health summary",
		"24h: " + formatPercent(summary.Last24h) + "% • 7d: " + formatPercent(summary.Last7d) + "% • 30d: " + formatPercent(summary.Last30d) + "%",
	}
	if last, err := h.store.LastDowntime(ctx); err == nil && last != nil {
		lines = append(lines, incidentLine(*last))
	} else {
		lines = append(lines, "No incidents")
	}
	text := strings.Join(lines, "\n")

	var attachment *monitor.Attachment
	if h.chart != nil {
		if buckets, err := monitor.HourlyBuckets(ctx, h.store, now); err == nil {
			if png, err := h.chart.FetchPNG(ctx, buckets); err == nil {
				attachment = &monitor.Attachment{Filename: "health.png", Data: png}
			} else {
				h.logger.Warnf("api: chart render failed, sending text only: %v", err)
			}
		}
	}
	h.dispatcher.Notify(text, attachment)
	writeJSON(w, http.StatusAccepted, map[string]any{"queued": true})
}

func (h *MonitorHandler) Events(w http.ResponseWriter, r *http.Request) {
	hours := 24
	if raw := r.URL.Query().Get("hours"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 || n > 24*90 {
			http.Error(w, errBadRequest, http.StatusBadRequest)
			return
		}
		hours = n
	}
	since := time.Now().UTC().Add(-time.Duration(hours) * time.Hour)
	events, err := h.store.EventsSince(r.Context(), since)
	if err != nil {
		http.Error(w, errServerError, http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"events": events})
}

func (h *MonitorHandler) Downtimes(w http.ResponseWriter, r *http.Request) {
	limit := 50
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 || n > 500 {
			http.Error(w, errBadRequest, http.StatusBadRequest)
			return
		}
		limit = n
	}
	downtimes, err := h.store.ListDowntimes(r.Context(), limit)
	if err != nil {
		http.Error(w, errServerError, http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"downtimes": downtimes})
}

func (h *MonitorHandler) CheckNow(w http.ResponseWriter, r *http.Request) {
	outcome, err := h.engine.ForceCheck(r.Context())
	if err != nil {
		h.logger.Errorf("api: force check: %v", err)
		http.Error(w, errServerError, http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, outcome)
}

func (h *MonitorHandler) GetSettings(w http.ResponseWriter, r *http.Request) {
	settings, err := h.store.GetSettings(r.Context())
	if err != nil {
		http.Error(w, errServerError, http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, settings)
}

type settingsPayload struct {
	IntervalMin   int     `json:"interval_min"`
	TimeoutSec    int     `json:"timeout_sec"`
	Keyword       string  `json:"keyword"`
	ChannelRef    *string `json:"channel_ref"`
	RetentionDays *int    `json:"retention_days"`
}

func (h *MonitorHandler) UpdateSettings(w http.ResponseWriter, r *http.Request) {
	var payload settingsPayload
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		http.Error(w, errBadRequest, http.StatusBadRequest)
		return
	}
	current, err := h.store.GetSettings(r.Context())
	if err != nil || current == nil {
		http.Error(w, errServerError, http.StatusInternalServerError)
		return
	}
	if payload.IntervalMin > 0 {
		current.IntervalMin = payload.IntervalMin
	}
	if payload.TimeoutSec > 0 {
		current.TimeoutSec = payload.TimeoutSec
	}
	if strings.TrimSpace(payload.Keyword) != "" {
		current.Keyword = payload.Keyword
	}
	if payload.ChannelRef != nil {
		current.ChannelRef = *payload.ChannelRef
	}
	if payload.RetentionDays != nil {
		current.RetentionDays = *payload.RetentionDays
	}
	if err := h.store.UpdateSettings(r.Context(), current); err != nil {
		if errors.Is(err, store.ErrInvalidSettingValue) {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		http.Error(w, errServerError, http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, current)
}

type settingFieldPayload struct {
	Value string `json:"value"`
}

func (h *MonitorHandler) UpdateSettingField(w http.ResponseWriter, r *http.Request) {
	field := chi.URLParam(r, "field")
	var payload settingFieldPayload
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		http.Error(w, errBadRequest, http.StatusBadRequest)
		return
	}
	if err := h.store.UpdateSettingField(r.Context(), field, payload.Value); err != nil {
		switch {
		case errors.Is(err, store.ErrUnknownSettingField), errors.Is(err, store.ErrInvalidSettingValue):
			http.Error(w, err.Error(), http.StatusBadRequest)
		default:
			http.Error(w, errServerError, http.StatusInternalServerError)
		}
		return
	}
	settings, err := h.store.GetSettings(r.Context())
	if err != nil {
		http.Error(w, errServerError, http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, settings)
}

func incidentLine(d store.DowntimeInterval) string {
	line := "Last incident: " + d.StartedAt.UTC().Format(time.RFC3339)
	if d.EndedAt != nil {
		line += " → " + d.EndedAt.UTC().Format(time.RFC3339)
	} else {
		line += " (ongoing)"
	}
	return line
}

func formatPercent(v float64) string {
	return strconv.FormatFloat(v, 'f', 2, 64)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
