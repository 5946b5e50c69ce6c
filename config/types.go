package config

type AppConfig struct {
	DBDriver   string `yaml:"db_driver" env:"KEYWATCH_DB_DRIVER" env-default:"sqlite"`
	DBURL      string `yaml:"db_url" env:"KEYWATCH_DB_URL"`
	DBPath     string `yaml:"db_path" env:"KEYWATCH_DB_PATH" env-default:"data/keywatch.db"`
	ListenAddr string `yaml:"listen_addr" env:"KEYWATCH_LISTEN_ADDR" env-default:"0.0.0.0:3000"`
	AppEnv     string `yaml:"app_env" env:"KEYWATCH_APP_ENV"`

	// APITokenHash is a bcrypt hash of the token required on mutating API
	// routes. Empty hash leaves those routes open (local deployments).
	APITokenHash string `yaml:"api_token_hash" env:"KEYWATCH_API_TOKEN_HASH"`

	Target    TargetConfig    `yaml:"target"`
	Notify    NotifyConfig    `yaml:"notify"`
	Retention RetentionConfig `yaml:"retention"`
}

// TargetConfig describes the single monitored endpoint. Interval, timeout and
// keyword are only seed values: once the settings row exists in the store the
// runtime values live there and are mutable through the API.
type TargetConfig struct {
	URL         string `yaml:"url" env:"KEYWATCH_TARGET_URL"`
	Keyword     string `yaml:"keyword" env:"KEYWATCH_TARGET_KEYWORD" env-default:"Online"`
	IntervalMin int    `yaml:"interval_min" env:"KEYWATCH_TARGET_INTERVAL_MIN" env-default:"5"`
	TimeoutSec  int    `yaml:"timeout_sec" env:"KEYWATCH_TARGET_TIMEOUT_SEC" env-default:"10"`
}

type NotifyConfig struct {
	TelegramToken string   `yaml:"telegram_token" env:"KEYWATCH_TELEGRAM_TOKEN"`
	Recipients    []string `yaml:"recipients" env:"KEYWATCH_NOTIFY_RECIPIENTS" env-separator:","`
	QueueSize     int      `yaml:"queue_size" env:"KEYWATCH_NOTIFY_QUEUE_SIZE" env-default:"16"`
	ChartURL      string   `yaml:"chart_url" env:"KEYWATCH_CHART_URL" env-default:"https://quickchart.io/chart"`
	ChartEnabled  bool     `yaml:"chart_enabled" env:"KEYWATCH_CHART_ENABLED" env-default:"true"`
}

type RetentionConfig struct {
	Enabled  bool   `yaml:"enabled" env:"KEYWATCH_RETENTION_ENABLED" env-default:"true"`
	Schedule string `yaml:"schedule" env:"KEYWATCH_RETENTION_SCHEDULE" env-default:"@hourly"`
	Days     int    `yaml:"days" env:"KEYWATCH_RETENTION_DAYS" env-default:"90"`
}
