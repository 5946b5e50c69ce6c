package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoadFromEnv(t *testing.T) {
	t.Setenv("KEYWATCH_TARGET_URL", "https://status.example.com")
	t.Setenv("KEYWATCH_TARGET_KEYWORD", "operational")
	t.Setenv("KEYWATCH_TARGET_INTERVAL_MIN", "2")
	t.Setenv("KEYWATCH_NOTIFY_RECIPIENTS", "111,222")

	cfg, err := Load("")
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Target.URL != "https://status.example.com" {
		t.Fatalf("unexpected target url %q", cfg.Target.URL)
	}
	if cfg.Target.Keyword != "operational" || cfg.Target.IntervalMin != 2 {
		t.Fatalf("env overrides not applied: %+v", cfg.Target)
	}
	if len(cfg.Notify.Recipients) != 2 || cfg.Notify.Recipients[1] != "222" {
		t.Fatalf("recipients not split: %v", cfg.Notify.Recipients)
	}
	if cfg.DBDriver != "sqlite" || cfg.ListenAddr != "0.0.0.0:3000" {
		t.Fatalf("defaults missing: driver=%q addr=%q", cfg.DBDriver, cfg.ListenAddr)
	}
}

func TestLoadFromYAMLFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "keywatch.yaml")
	body := `
db_driver: sqlite
db_path: /tmp/kw.db
listen_addr: 127.0.0.1:8080
target:
  url: https://example.org/health
  keyword: Online
  interval_min: 1
  timeout_sec: 5
notify:
  recipients:
    - "42"
retention:
  enabled: false
`
	if err := os.WriteFile(path, []byte(body), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Target.URL != "https://example.org/health" || cfg.Target.IntervalMin != 1 {
		t.Fatalf("yaml values not read: %+v", cfg.Target)
	}
	if cfg.ListenAddr != "127.0.0.1:8080" {
		t.Fatalf("unexpected listen addr %q", cfg.ListenAddr)
	}
	if cfg.Retention.Enabled {
		t.Fatalf("retention should be disabled")
	}
}

func TestLoadRequiresTargetURL(t *testing.T) {
	t.Setenv("KEYWATCH_TARGET_URL", " ")
	if _, err := Load(""); err == nil {
		t.Fatalf("expected error with no target url")
	}
}

func TestLoadRejectsUnknownDriver(t *testing.T) {
	t.Setenv("KEYWATCH_TARGET_URL", "https://example.org")
	t.Setenv("KEYWATCH_DB_DRIVER", "mysql")
	if _, err := Load(""); err == nil {
		t.Fatalf("expected error for unsupported driver")
	}
}

func TestLoadPostgresNeedsURL(t *testing.T) {
	t.Setenv("KEYWATCH_TARGET_URL", "https://example.org")
	t.Setenv("KEYWATCH_DB_DRIVER", "postgres")
	if _, err := Load(""); err == nil {
		t.Fatalf("expected error when db_url missing for postgres")
	}
	t.Setenv("KEYWATCH_DB_URL", "postgres://kw:kw@localhost:5432/kw")
	cfg, err := Load("")
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.DBDriver != "postgres" {
		t.Fatalf("unexpected driver %q", cfg.DBDriver)
	}
}
