package monitor

import (
	"context"
	"io"
	"net/http"
	"strings"
	"time"
)

// probeBodyLimit caps how much of the response body is read for the keyword
// match. Status pages are small; anything past this is noise.
const probeBodyLimit = 1 << 20

// Outcome is the result of a single probe. A probe cannot fail: every error
// path collapses into Up=false with the cause kept for diagnostics.
type Outcome struct {
	Up        bool      `json:"up"`
	CheckedAt time.Time `json:"checked_at"`
	LatencyMs int64     `json:"latency_ms"`
	Err       string    `json:"error,omitempty"`
}

type Prober struct {
	client *http.Client
	url    string
}

func NewProber(url string) *Prober {
	return &Prober{
		// Per-probe deadlines come from the request context; the client
		// timeout is only a backstop.
		client: &http.Client{Timeout: 60 * time.Second},
		url:    url,
	}
}

// Probe performs one timed GET and reports whether the body contains keyword
// as a case-insensitive substring. The body is never logged or returned.
func (p *Prober) Probe(ctx context.Context, timeout time.Duration, keyword string) Outcome {
	started := time.Now().UTC()
	out := Outcome{CheckedAt: started}
	probeCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	req, err := http.NewRequestWithContext(probeCtx, http.MethodGet, p.url, nil)
	if err != nil {
		out.Err = err.Error()
		return out
	}
	resp, err := p.client.Do(req)
	if err != nil {
		out.Err = err.Error()
		out.LatencyMs = time.Since(started).Milliseconds()
		return out
	}
	defer resp.Body.Close()
	body, err := io.ReadAll(io.LimitReader(resp.Body, probeBodyLimit))
	out.LatencyMs = time.Since(started).Milliseconds()
	if err != nil {
		out.Err = err.Error()
		return out
	}
	out.Up = strings.Contains(strings.ToLower(string(body)), strings.ToLower(keyword))
	if !out.Up {
		out.Err = "keyword not found"
	}
	return out
}

func (p *Prober) URL() string {
	return p.url
}
