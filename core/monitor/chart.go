package monitor

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"
)

// ChartBuilder renders the 24-hour uptime buckets as a line-chart PNG through
// a QuickChart-compatible service. Rendering is strictly best effort: callers
// degrade to text when it fails.
type ChartBuilder struct {
	client  *http.Client
	baseURL string
}

func NewChartBuilder(baseURL string) *ChartBuilder {
	if baseURL == "" {
		baseURL = "https://quickchart.io/chart"
	}
	return &ChartBuilder{
		client:  &http.Client{Timeout: 15 * time.Second},
		baseURL: baseURL,
	}
}

// URL builds the chart request URL for the given buckets.
func (c *ChartBuilder) URL(buckets []Bucket) string {
	labels := make([]string, 0, len(buckets))
	values := make([]float64, 0, len(buckets))
	for _, b := range buckets {
		labels = append(labels, b.Label)
		values = append(values, b.Percent)
	}
	cfg := map[string]any{
		"type": "line",
		"data": map[string]any{
			"labels": labels,
			"datasets": []map[string]any{{
				"label":           "Uptime %",
				"data":            values,
				"fill":            true,
				"borderColor":     "#39d353",
				"backgroundColor": "rgba(57,211,83,0.08)",
			}},
		},
		"options": map[string]any{
			"scales":  map[string]any{"y": map[string]any{"min": 0, "max": 100}},
			"plugins": map[string]any{"legend": map[string]any{"display": false}},
		},
	}
	raw, _ := json.Marshal(cfg)
	return c.baseURL + "?c=" + url.QueryEscape(string(raw)) + "&format=png&width=800&height=300"
}

// FetchPNG renders the buckets and returns the PNG bytes.
func (c *ChartBuilder) FetchPNG(ctx context.Context, buckets []Bucket) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.URL(buckets), nil)
	if err != nil {
		return nil, err
	}
	resp, err := c.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("chart service status %d", resp.StatusCode)
	}
	return io.ReadAll(io.LimitReader(resp.Body, 4<<20))
}
