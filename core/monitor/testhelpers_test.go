package monitor

import (
	"context"
	"path/filepath"
	"sync"
	"testing"

	"keywatch/config"
	"keywatch/core/store"
	"keywatch/core/utils"
)

func newTestStore(t *testing.T) store.MonitorStore {
	t.Helper()
	cfg := &config.AppConfig{
		DBDriver: "sqlite",
		DBPath:   filepath.Join(t.TempDir(), "monitor_test.db"),
	}
	logger := utils.NewTestLogger()
	db, err := store.NewDB(cfg, logger)
	if err != nil {
		t.Fatalf("db: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })
	if err := store.ApplyMigrations(context.Background(), db, logger); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	return store.NewMonitorStore(db, store.DefaultSettings(5, 10, "Online"))
}

// recordingSender captures deliveries and can fail selected recipients.
type recordingSender struct {
	mu      sync.Mutex
	sent    []sentNotice
	failFor map[string]error
}

type sentNotice struct {
	recipient  string
	text       string
	attachment *Attachment
}

func (r *recordingSender) Send(ctx context.Context, recipientID, text string, attachment *Attachment) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if err, ok := r.failFor[recipientID]; ok {
		return err
	}
	r.sent = append(r.sent, sentNotice{recipient: recipientID, text: text, attachment: attachment})
	return nil
}

func (r *recordingSender) deliveries() []sentNotice {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]sentNotice, len(r.sent))
	copy(out, r.sent)
	return out
}
