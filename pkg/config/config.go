// Package config provides layered configuration for registryflow.
// Priority: defaults < user file < project file < --config file < env < flags.
// Flags are applied by the CLI on top of what Load produces.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"sync"
	"time"

	"gopkg.in/yaml.v3"

	rferrors "github.com/registryflow/registryflow/pkg/errors"
)

// Config holds all registryflow configuration.
type Config struct {
	Version int `yaml:"version"`

	Output    OutputConfig    `yaml:"output"`
	Parser    ParserConfig    `yaml:"parser"`
	Snapshot  SnapshotConfig  `yaml:"snapshot"`
	Seed      SeedConfig      `yaml:"seed"`
	Parquet   ParquetConfig   `yaml:"parquet"`
	Run       RunConfig       `yaml:"run"`
	Watch     WatchConfig     `yaml:"watch"`
	Publish   PublishConfig   `yaml:"publish"`
	Telemetry TelemetryConfig `yaml:"telemetry"`
}

// OutputConfig controls where artifacts go.
type OutputConfig struct {
	Dir  string `yaml:"dir"`
	Name string `yaml:"name"`
}

// ParserConfig controls line splitting.
type ParserConfig struct {
	Delimiter      string `yaml:"delimiter"`       // one byte, or "tab"
	UnescapeQuotes bool   `yaml:"unescape_quotes"` // "" inside quotes becomes "
}

// SnapshotConfig controls the SQLite snapshot.
type SnapshotConfig struct {
	BatchSize  int    `yaml:"batch_size"`
	OnConflict string `yaml:"on_conflict"` // ignore | replace
}

// SeedConfig controls the seed script.
type SeedConfig struct {
	Cap int `yaml:"cap"`
}

// ParquetConfig controls the Parquet export.
type ParquetConfig struct {
	Compression string `yaml:"compression"` // snappy | zstd | gzip | lz4 | none
}

// RunConfig controls how passes execute.
type RunConfig struct {
	Parallel bool `yaml:"parallel"`
	ErrorLog bool `yaml:"error_log"`
	Progress bool `yaml:"progress"`
}

// WatchConfig controls the watch command.
type WatchConfig struct {
	Debounce time.Duration `yaml:"debounce"`
}

// PublishConfig controls uploads to S3-compatible storage.
type PublishConfig struct {
	Bucket    string `yaml:"bucket"`
	Prefix    string `yaml:"prefix"`
	Region    string `yaml:"region"`
	Endpoint  string `yaml:"endpoint"`
	PathStyle bool   `yaml:"path_style"`
}

// TelemetryConfig controls OTLP trace export.
type TelemetryConfig struct {
	Enabled     bool   `yaml:"enabled"`
	Endpoint    string `yaml:"endpoint"`
	ServiceName string `yaml:"service_name"`
	Insecure    bool   `yaml:"insecure"`
}

// Default returns the default configuration.
func Default() *Config {
	return &Config{
		Version: 1,
		Output: OutputConfig{
			Dir:  "output",
			Name: "contractors",
		},
		Parser: ParserConfig{
			Delimiter: ",",
		},
		Snapshot: SnapshotConfig{
			BatchSize:  1000,
			OnConflict: "ignore",
		},
		Seed: SeedConfig{
			Cap: 5000,
		},
		Parquet: ParquetConfig{
			Compression: "snappy",
		},
		Run: RunConfig{
			ErrorLog: true,
			Progress: true,
		},
		Watch: WatchConfig{
			Debounce: 500 * time.Millisecond,
		},
		Publish: PublishConfig{
			Region: "us-east-1",
		},
		Telemetry: TelemetryConfig{
			Endpoint:    "localhost:4317",
			ServiceName: "registryflow",
			Insecure:    true,
		},
	}
}

// Delimiter returns the parser delimiter as a byte.
func (c *Config) Delimiter() byte {
	switch c.Parser.Delimiter {
	case "tab", `\t`:
		return '\t'
	case "":
		return ','
	default:
		return c.Parser.Delimiter[0]
	}
}

// Validate rejects settings no run could use.
func (c *Config) Validate() error {
	if c.Snapshot.BatchSize < 1 {
		return rferrors.New(rferrors.CodeConfig, "snapshot batch size must be at least 1").
			WithContext("batch_size", c.Snapshot.BatchSize)
	}
	if c.Seed.Cap < 1 {
		return rferrors.New(rferrors.CodeConfig, "seed cap must be at least 1").
			WithContext("cap", c.Seed.Cap)
	}
	switch c.Snapshot.OnConflict {
	case "ignore", "replace":
	default:
		return rferrors.New(rferrors.CodeConfig, "unknown conflict policy").
			WithContext("on_conflict", c.Snapshot.OnConflict)
	}
	switch d := c.Parser.Delimiter; {
	case d == "tab" || d == `\t`:
	case len(d) != 1:
		return rferrors.New(rferrors.CodeConfig, "delimiter must be a single byte").
			WithContext("delimiter", d)
	case d == `"`:
		return rferrors.New(rferrors.CodeConfig, "delimiter cannot be the quote character")
	}
	if c.Output.Name == "" {
		return rferrors.New(rferrors.CodeConfig, "output name must not be empty")
	}
	return nil
}

// Manager handles configuration loading and merging.
type Manager struct {
	mu     sync.RWMutex
	config *Config
	paths  []string
}

// NewManager creates a new configuration manager.
func NewManager() *Manager {
	return &Manager{
		config: Default(),
	}
}

// Load loads configuration from all sources in priority order. explicit,
// when non-empty, must exist; the implicit user and project files are
// optional.
func (m *Manager) Load(explicit string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.config = Default()
	m.paths = nil

	for _, path := range configPaths() {
		if err := m.loadFile(path); err != nil {
			if os.IsNotExist(err) {
				continue
			}
			return rferrors.Wrapf(err, rferrors.CodeConfig, "load %s", path)
		}
		m.paths = append(m.paths, path)
	}

	if explicit != "" {
		if err := m.loadFile(explicit); err != nil {
			return rferrors.Wrapf(err, rferrors.CodeConfig, "load %s", explicit)
		}
		m.paths = append(m.paths, explicit)
	}

	return m.loadEnv()
}

// configPaths returns implicit config file paths in priority order.
func configPaths() []string {
	var paths []string

	if home, err := os.UserHomeDir(); err == nil {
		paths = append(paths, filepath.Join(home, ".registryflow", "config.yaml"))
	}
	if cwd, err := os.Getwd(); err == nil {
		paths = append(paths, filepath.Join(cwd, ".registryflow.yaml"))
	}
	return paths
}

// loadFile decodes path over the current config; keys absent from the
// file keep their value.
func (m *Manager) loadFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	return yaml.Unmarshal(data, m.config)
}

// loadEnv applies REGISTRYFLOW_* environment variables.
func (m *Manager) loadEnv() error {
	if v := os.Getenv("REGISTRYFLOW_OUT_DIR"); v != "" {
		m.config.Output.Dir = v
	}
	if v := os.Getenv("REGISTRYFLOW_BATCH_SIZE"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return rferrors.Wrap(err, rferrors.CodeConfig, "REGISTRYFLOW_BATCH_SIZE")
		}
		m.config.Snapshot.BatchSize = n
	}
	if v := os.Getenv("REGISTRYFLOW_SEED_CAP"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return rferrors.Wrap(err, rferrors.CodeConfig, "REGISTRYFLOW_SEED_CAP")
		}
		m.config.Seed.Cap = n
	}
	if v := os.Getenv("REGISTRYFLOW_ON_CONFLICT"); v != "" {
		m.config.Snapshot.OnConflict = v
	}
	if v := os.Getenv("REGISTRYFLOW_S3_BUCKET"); v != "" {
		m.config.Publish.Bucket = v
	}
	if v := os.Getenv("REGISTRYFLOW_S3_ENDPOINT"); v != "" {
		m.config.Publish.Endpoint = v
	}
	if v := os.Getenv("REGISTRYFLOW_OTLP_ENDPOINT"); v != "" {
		m.config.Telemetry.Endpoint = v
		m.config.Telemetry.Enabled = true
	}
	return nil
}

// Get returns the current configuration.
func (m *Manager) Get() *Config {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.config
}

// GetPaths returns the paths that were loaded.
func (m *Manager) GetPaths() []string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.paths
}

// Write saves cfg as YAML at path.
func Write(cfg *Config, path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}

	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("marshal config: %w", err)
	}
	return os.WriteFile(path, data, 0o644)
}
