package config

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"runtime"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/kailas-cloud/gphotosync/internal/domain"
)

// Config holds the gphotosync configuration.
type Config struct {
	Remotes   RemotesConfig   `yaml:"remotes"`
	Media     MediaConfig     `yaml:"media"`
	Transfer  TransferConfig  `yaml:"transfer"`
	Executor  ExecutorConfig  `yaml:"executor"`
	Quota     QuotaConfig     `yaml:"quota"`
	Estimator EstimatorConfig `yaml:"estimator"`
	Reconcile ReconcileConfig `yaml:"reconcile"`
	Storage   StorageConfig   `yaml:"storage"`
	Logging   LoggingConfig   `yaml:"logging"`
	Metrics   MetricsConfig   `yaml:"metrics"`
}

// RemotesConfig names the rclone remotes.
type RemotesConfig struct {
	Source     string `yaml:"source"`
	Dest       string `yaml:"dest"`
	SourcePath string `yaml:"source_path"`
}

// MediaConfig holds extension lists. Matching is case-insensitive.
type MediaConfig struct {
	PhotoExt   []string `yaml:"photo_ext"`
	VideoExt   []string `yaml:"video_ext"`
	IgnoredExt []string `yaml:"ignored_ext"`
}

// TransferConfig holds rclone flags.
type TransferConfig struct {
	Binary            string `yaml:"binary"`
	Checkers          int    `yaml:"checkers"`
	Transfers         int    `yaml:"transfers"`
	TimeoutSec        int    `yaml:"timeout_sec"`
	LowLevelRetries   int    `yaml:"low_level_retries"`
	Retries           int    `yaml:"retries"`
	BWLimit           string `yaml:"bwlimit"`
	CommandTimeoutSec int    `yaml:"command_timeout_sec"` // 0 = 2x timeout_sec
}

// ExecutorConfig holds retry policies of remote calls.
type ExecutorConfig struct {
	UploadAttempts    int `yaml:"upload_attempts"`
	UploadCooldownSec int `yaml:"upload_cooldown_sec"`
	ListAttempts      int `yaml:"list_attempts"`
	ListCooldownSec   int `yaml:"list_cooldown_sec"`
}

// QuotaConfig holds daily limits and gate thresholds.
type QuotaConfig struct {
	RequestLimit    int64   `yaml:"request_limit"`
	ByteLimit       int64   `yaml:"byte_limit"`
	Warning         float64 `yaml:"warning"`
	Critical        float64 `yaml:"critical"`
	Stop            float64 `yaml:"stop"`
	Reserve         int64   `yaml:"reserve"`
	Timezone        string  `yaml:"timezone"`
	InitialRequests int64   `yaml:"initial_requests"` // manual seed, 0 = none
}

// EstimatorConfig selects the per-upload cost model.
type EstimatorConfig struct {
	Strategy       string  `yaml:"strategy"` // rolling (default), static
	DefaultMean    float64 `yaml:"default_mean"`
	FirstSurcharge int64   `yaml:"first_surcharge"`
	HistorySize    int     `yaml:"history_size"`
}

// ReconcileConfig configures reconciliation against Cloud Monitoring.
type ReconcileConfig struct {
	Enabled      bool     `yaml:"enabled"`
	ProjectID    string   `yaml:"project_id"`
	Service      string   `yaml:"service"`
	BaseURL      string   `yaml:"base_url"`
	Token        string   `yaml:"token"`
	TokenCommand []string `yaml:"token_command"`
	IntervalSec  int      `yaml:"interval_sec"`
	EveryOps     int      `yaml:"every_ops"`
}

// StorageConfig selects where ledger, history and records are kept.
type StorageConfig struct {
	Driver           string   `yaml:"driver"` // file (default), bolt, sqlite, redis, valkey
	Dir              string   `yaml:"dir"`    // file driver; defaults to logging.dir
	Path             string   `yaml:"path"`   // bolt, sqlite
	Addrs            []string `yaml:"addrs"`  // redis, valkey
	Username         string   `yaml:"username"`
	Password         string   `yaml:"password"`
	DB               int      `yaml:"db"`
	KeyPrefix        string   `yaml:"key_prefix"`
	ReadinessTimeout int      `yaml:"readiness_timeout_sec"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	Level string `yaml:"level"` // debug, info, warn, error (default: determined by env)
	Dir   string `yaml:"dir"`   // run logs and summaries
}

// MetricsConfig holds the optional status server settings.
type MetricsConfig struct {
	Addr        string   `yaml:"addr"` // empty = disabled
	APIKeys     []string `yaml:"api_keys"`
	ShutdownSec int      `yaml:"shutdown_timeout_sec"`
}

// Load reads configuration from a YAML file by environment name (local, dev, prod).
func Load(env string) (Config, error) {
	configPath := findConfigPath(env)

	data, err := os.ReadFile(filepath.Clean(configPath))
	if err != nil {
		return Config{}, fmt.Errorf("failed to read config %s: %w", configPath, err)
	}

	return Parse(data)
}

// Parse builds a Config from YAML, expanding env variables, applying env overrides and defaults.
func Parse(data []byte) (Config, error) {
	// Substitute env variables of the form ${VAR}
	data = expandEnvVars(data)

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return Config{}, fmt.Errorf("failed to parse config: %w", err)
	}

	if err := cfg.ApplyEnvOverrides(os.Getenv); err != nil {
		return Config{}, fmt.Errorf("invalid environment: %w", err)
	}
	cfg.ApplyDefaults()

	if err := cfg.Validate(); err != nil {
		return Config{}, fmt.Errorf("invalid config: %w", err)
	}

	return cfg, nil
}

// MustLoad loads configuration or panics.
func MustLoad(env string) Config {
	cfg, err := Load(env)
	if err != nil {
		panic(err)
	}
	return cfg
}

// GetEnv returns the current environment from the ENV variable, defaulting to "local".
func GetEnv() string {
	if env := os.Getenv("ENV"); env != "" {
		return env
	}
	return "local"
}

// ApplyEnvOverrides applies the flat environment variables of an env-only deployment.
func (c *Config) ApplyEnvOverrides(getenv func(string) string) error {
	str := map[string]*string{
		"GDRIVE_REMOTE":  &c.Remotes.Source,
		"GPHOTOS_REMOTE": &c.Remotes.Dest,
		"SOURCE_PATH":    &c.Remotes.SourcePath,
		"LOG_DIR":        &c.Logging.Dir,
	}
	for name, dst := range str {
		if v := getenv(name); v != "" {
			*dst = v
		}
	}

	lists := map[string]*[]string{
		"PHOTO_EXT":   &c.Media.PhotoExt,
		"VIDEO_EXT":   &c.Media.VideoExt,
		"IGNORED_EXT": &c.Media.IgnoredExt,
	}
	for name, dst := range lists {
		if v := getenv(name); v != "" {
			*dst = splitList(v)
		}
	}

	ints := map[string]*int{
		"MAX_PARALLEL_UPLOADS": &c.Transfer.Transfers,
		"UPLOAD_TIMEOUT":       &c.Transfer.TimeoutSec,
	}
	for name, dst := range ints {
		v := getenv(name)
		if v == "" {
			continue
		}
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("%s: %w", name, err)
		}
		*dst = n
	}

	if v := getenv("INITIAL_API_REQUESTS"); v != "" {
		n, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			return fmt.Errorf("INITIAL_API_REQUESTS: %w", err)
		}
		c.Quota.InitialRequests = n
	}
	return nil
}

// ApplyDefaults fills empty fields with default values.
func (c *Config) ApplyDefaults() {
	if c.Remotes.Source == "" {
		c.Remotes.Source = "gdrive"
	}
	if c.Remotes.Dest == "" {
		c.Remotes.Dest = "gphotos"
	}
	if len(c.Media.PhotoExt) == 0 {
		c.Media.PhotoExt = []string{".jpg", ".jpeg", ".png", ".heic", ".cr2"}
	}
	if len(c.Media.VideoExt) == 0 {
		c.Media.VideoExt = []string{".mp4", ".mov", ".avi", ".mkv"}
	}
	if len(c.Media.IgnoredExt) == 0 {
		c.Media.IgnoredExt = []string{".thm", ".lrv", ".json"}
	}

	if c.Transfer.Binary == "" {
		c.Transfer.Binary = "rclone"
	}
	if c.Transfer.Checkers <= 0 {
		c.Transfer.Checkers = 8
	}
	if c.Transfer.Transfers <= 0 {
		c.Transfer.Transfers = 2
	}
	if c.Transfer.TimeoutSec <= 0 {
		c.Transfer.TimeoutSec = 600
	}
	if c.Transfer.LowLevelRetries <= 0 {
		c.Transfer.LowLevelRetries = 5
	}
	if c.Transfer.Retries <= 0 {
		c.Transfer.Retries = 3
	}
	if c.Transfer.BWLimit == "" {
		c.Transfer.BWLimit = "2M"
	}
	if c.Transfer.CommandTimeoutSec <= 0 {
		c.Transfer.CommandTimeoutSec = 2 * c.Transfer.TimeoutSec
	}

	if c.Executor.UploadAttempts <= 0 {
		c.Executor.UploadAttempts = 5
	}
	if c.Executor.UploadCooldownSec <= 0 {
		c.Executor.UploadCooldownSec = 30
	}
	if c.Executor.ListAttempts <= 0 {
		c.Executor.ListAttempts = 3
	}
	if c.Executor.ListCooldownSec <= 0 {
		c.Executor.ListCooldownSec = 5
	}

	if c.Quota.RequestLimit == 0 {
		c.Quota.RequestLimit = 10000
	}
	if c.Quota.ByteLimit == 0 {
		c.Quota.ByteLimit = 50 << 30
	}
	if c.Quota.Warning == 0 {
		c.Quota.Warning = 0.80
	}
	if c.Quota.Critical == 0 {
		c.Quota.Critical = 0.90
	}
	if c.Quota.Stop == 0 {
		c.Quota.Stop = 0.95
	}
	if c.Quota.Reserve == 0 {
		c.Quota.Reserve = 300
	}
	if c.Quota.Timezone == "" {
		c.Quota.Timezone = "America/Los_Angeles"
	}

	if c.Estimator.Strategy == "" {
		c.Estimator.Strategy = "rolling"
	}
	if c.Estimator.DefaultMean == 0 {
		c.Estimator.DefaultMean = 38
	}
	if c.Estimator.FirstSurcharge == 0 {
		c.Estimator.FirstSurcharge = 2
	}
	if c.Estimator.HistorySize <= 0 {
		c.Estimator.HistorySize = 20
	}

	if c.Reconcile.Service == "" {
		c.Reconcile.Service = "photoslibrary.googleapis.com"
	}
	if c.Reconcile.IntervalSec <= 0 {
		c.Reconcile.IntervalSec = 300
	}
	if c.Reconcile.EveryOps <= 0 {
		c.Reconcile.EveryOps = 50
	}

	if c.Logging.Dir == "" {
		c.Logging.Dir = "~/gphoto_logs"
	}
	c.Logging.Dir = expandHome(c.Logging.Dir)
	if c.Storage.Driver == "" {
		c.Storage.Driver = "file"
	}
	if c.Storage.Dir == "" {
		c.Storage.Dir = c.Logging.Dir
	}
	if c.Storage.Path == "" {
		switch c.Storage.Driver {
		case "bolt":
			c.Storage.Path = filepath.Join(c.Storage.Dir, "gphotosync.db")
		case "sqlite":
			c.Storage.Path = filepath.Join(c.Storage.Dir, "gphotosync.sqlite")
		}
	}
	if c.Storage.KeyPrefix == "" {
		c.Storage.KeyPrefix = "gphotosync:"
	}
	if c.Storage.ReadinessTimeout <= 0 {
		c.Storage.ReadinessTimeout = 10
	}

	if c.Metrics.ShutdownSec <= 0 {
		c.Metrics.ShutdownSec = 5
	}
}

// Validate checks the configuration for correctness.
func (c *Config) Validate() error {
	q := c.Quota
	if q.RequestLimit <= 0 || q.ByteLimit <= 0 {
		return fmt.Errorf("%w: quota limits must be positive", domain.ErrInvalidConfig)
	}
	for name, f := range map[string]float64{"warning": q.Warning, "critical": q.Critical, "stop": q.Stop} {
		if f <= 0 || f > 1 {
			return fmt.Errorf("%w: quota.%s must be in (0, 1], got %v", domain.ErrInvalidConfig, name, f)
		}
	}
	if q.Warning > q.Critical || q.Critical > q.Stop {
		return fmt.Errorf("%w: quota thresholds must satisfy warning <= critical <= stop", domain.ErrInvalidConfig)
	}
	if q.Reserve < 0 || q.Reserve >= q.RequestLimit {
		return fmt.Errorf("%w: quota.reserve must be in [0, request_limit), got %d", domain.ErrInvalidConfig, q.Reserve)
	}
	if q.InitialRequests < 0 {
		return fmt.Errorf("%w: quota.initial_requests must not be negative", domain.ErrInvalidConfig)
	}
	if _, err := time.LoadLocation(q.Timezone); err != nil {
		return fmt.Errorf("%w: quota.timezone %q: %v", domain.ErrInvalidConfig, q.Timezone, err)
	}

	switch c.Estimator.Strategy {
	case "rolling", "static":
	default:
		return fmt.Errorf("%w: estimator.strategy must be \"rolling\" or \"static\", got %q",
			domain.ErrInvalidConfig, c.Estimator.Strategy)
	}
	if c.Estimator.DefaultMean <= 0 {
		return fmt.Errorf("%w: estimator.default_mean must be positive", domain.ErrInvalidConfig)
	}

	switch c.Storage.Driver {
	case "file":
	case "bolt", "sqlite":
		if c.Storage.Path == "" {
			return fmt.Errorf("%w: storage.path is required for %s", domain.ErrInvalidConfig, c.Storage.Driver)
		}
	case "redis", "valkey":
		if len(c.Storage.Addrs) == 0 {
			return fmt.Errorf("%w: storage.addrs is required for %s", domain.ErrInvalidConfig, c.Storage.Driver)
		}
	default:
		return fmt.Errorf("%w: unknown storage.driver %q", domain.ErrInvalidConfig, c.Storage.Driver)
	}

	if c.Reconcile.Enabled && c.Reconcile.ProjectID == "" {
		return fmt.Errorf("%w: reconcile.project_id is required when reconcile is enabled", domain.ErrInvalidConfig)
	}
	if c.Remotes.Source == "" || c.Remotes.Dest == "" {
		return fmt.Errorf("%w: remotes.source and remotes.dest are required", domain.ErrInvalidConfig)
	}
	return nil
}

// Location returns the quota reference timezone. Validate guarantees it loads.
func (c *Config) Location() *time.Location {
	loc, err := time.LoadLocation(c.Quota.Timezone)
	if err != nil {
		return time.UTC
	}
	return loc
}

// findConfigPath locates the config file.
func findConfigPath(env string) string {
	filename := fmt.Sprintf("%s.yaml", env)

	// 1. Check ./config/
	if path := filepath.Join("config", filename); fileExists(path) {
		return path
	}

	// 2. Check relative to the source file
	_, b, _, _ := runtime.Caller(0)
	projectRoot := filepath.Dir(filepath.Dir(filepath.Dir(b))) // internal/config -> project root
	if path := filepath.Join(projectRoot, "config", filename); fileExists(path) {
		return path
	}

	// 3. Fallback to ./config/
	return filepath.Join("config", filename)
}

func fileExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}

func splitList(v string) []string {
	var out []string
	for _, s := range strings.Split(v, ",") {
		if s = strings.TrimSpace(s); s != "" {
			out = append(out, s)
		}
	}
	return out
}

func expandHome(p string) string {
	if !strings.HasPrefix(p, "~/") {
		return p
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return p
	}
	return filepath.Join(home, p[2:])
}

// expandEnvVars replaces ${VAR} and ${VAR:-default} with environment variable values.
var envVarRegex = regexp.MustCompile(`\$\{([^}]+)\}`)

func expandEnvVars(data []byte) []byte {
	return envVarRegex.ReplaceAllFunc(data, func(match []byte) []byte {
		expr := string(match[2 : len(match)-1]) // strip ${ and }
		varName, defaultVal, hasDefault := strings.Cut(expr, ":-")
		val := os.Getenv(varName)
		if val == "" && hasDefault {
			val = defaultVal
		}
		return []byte(val)
	})
}
