// Package config loads jardin settings: defaults, then jardin.yaml, then
// .env / jardin.ini key=value files, then JARDIN_* environment variables.
package config

import (
	"fmt"
	"net"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"jardin/internal/archive"
	"jardin/internal/queue"
	"jardin/internal/store"
)

const DefaultPath = "jardin.yaml"

// EnvFiles are read after the yaml file; variables already set win.
var EnvFiles = []string{"jardin.ini", ".env"}

type Config struct {
	Server       ServerConfig       `yaml:"server"`
	Store        StoreConfig        `yaml:"store"`
	Queue        QueueConfig        `yaml:"queue"`
	Classifier   ClassifierConfig   `yaml:"classifier"`
	Catalog      CatalogConfig      `yaml:"catalog"`
	Connectivity ConnectivityConfig `yaml:"connectivity"`
	Archive      archive.COSConfig  `yaml:"archive"`
	Logging      LoggingConfig      `yaml:"logging"`
}

type ServerConfig struct {
	Host string `yaml:"host"`
	Port int    `yaml:"port"`
}

type StoreConfig struct {
	Engine string `yaml:"engine"`
	Path   string `yaml:"path"`
}

type QueueConfig struct {
	Slot string `yaml:"slot"`
}

type ClassifierConfig struct {
	BaseURL string `yaml:"base_url"`
	APIKey  string `yaml:"api_key"`
	// Timeout is a Go duration; empty or "0" means no limit.
	Timeout string `yaml:"timeout"`
}

type CatalogConfig struct {
	URL          string `yaml:"url"`
	File         string `yaml:"file"`
	PhotoBaseURL string `yaml:"photo_base_url"`
	Timeout      string `yaml:"timeout"`
}

type ConnectivityConfig struct {
	Probe         bool   `yaml:"probe"`
	ProbeInterval string `yaml:"probe_interval"`
	StartOnline   bool   `yaml:"start_online"`
}

type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

func DefaultConfig() *Config {
	return &Config{
		Server: ServerConfig{Port: 8787},
		Store: StoreConfig{
			Engine: store.EngineSQLite,
		},
		Queue: QueueConfig{Slot: queue.DefaultSlot},
		Classifier: ClassifierConfig{
			BaseURL: "http://127.0.0.1:8080",
		},
		Catalog: CatalogConfig{
			Timeout: "15s",
		},
		Connectivity: ConnectivityConfig{
			Probe:         true,
			ProbeInterval: "30s",
			StartOnline:   true,
		},
		Archive: archive.COSConfig{Region: "ap-hongkong"},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
		},
	}
}

// Load reads path over the defaults. A missing file is not an error.
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()

	data, err := os.ReadFile(path)
	switch {
	case err == nil:
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config: %w", err)
		}
	case os.IsNotExist(err):
	default:
		return nil, fmt.Errorf("failed to read config: %w", err)
	}

	for _, name := range EnvFiles {
		if err := LoadEnvFile(name); err != nil {
			return nil, fmt.Errorf("load %s: %w", name, err)
		}
	}
	cfg.applyEnvOverrides()
	cfg.normalize()
	return cfg, nil
}

func (c *Config) applyEnvOverrides() {
	if addr := os.Getenv("JARDIN_ADDR"); addr != "" {
		host, port := parseListenAddr(addr)
		c.Server.Host = host
		if port > 0 {
			c.Server.Port = port
		}
	}
	setString(&c.Server.Host, "JARDIN_HOST")
	c.Server.Port = parseEnvInt("JARDIN_PORT", c.Server.Port)

	setString(&c.Store.Engine, "JARDIN_STORE")
	setString(&c.Store.Path, "JARDIN_DATA_FILE")
	setString(&c.Queue.Slot, "JARDIN_QUEUE_SLOT")

	setString(&c.Classifier.BaseURL, "JARDIN_CLASSIFIER_URL")
	setString(&c.Classifier.APIKey, "JARDIN_CLASSIFIER_API_KEY")
	setString(&c.Classifier.Timeout, "JARDIN_CLASSIFIER_TIMEOUT")

	setString(&c.Catalog.URL, "JARDIN_CATALOG_URL")
	setString(&c.Catalog.File, "JARDIN_CATALOG_FILE")
	setString(&c.Catalog.PhotoBaseURL, "JARDIN_PHOTO_BASE_URL")

	setString(&c.Connectivity.ProbeInterval, "JARDIN_PROBE_INTERVAL")
	if raw := strings.TrimSpace(os.Getenv("JARDIN_PROBE")); raw != "" {
		if v, err := strconv.ParseBool(raw); err == nil {
			c.Connectivity.Probe = v
		}
	}

	setString(&c.Archive.SecretID, "JARDIN_COS_SECRET_ID")
	setString(&c.Archive.SecretKey, "JARDIN_COS_SECRET_KEY")
	setString(&c.Archive.Region, "JARDIN_COS_REGION")
	setString(&c.Archive.Bucket, "JARDIN_COS_BUCKET_NAME")
	setString(&c.Archive.PublicDomain, "JARDIN_COS_PUBLIC_DOMAIN")

	setString(&c.Logging.Level, "JARDIN_LOG_LEVEL")
	setString(&c.Logging.Format, "JARDIN_LOG_FORMAT")
}

func (c *Config) normalize() {
	c.Store.Engine = strings.ToLower(strings.TrimSpace(c.Store.Engine))
	if c.Store.Engine == "" {
		c.Store.Engine = store.EngineSQLite
	}
	if strings.TrimSpace(c.Store.Path) == "" {
		c.Store.Path = store.DefaultPath(c.Store.Engine)
	}
	if strings.TrimSpace(c.Queue.Slot) == "" {
		c.Queue.Slot = queue.DefaultSlot
	}
	if c.Server.Port <= 0 {
		c.Server.Port = 8787
	}
}

// ListenAddr joins the server host and port.
func (c *Config) ListenAddr() string {
	return joinListenAddr(strings.TrimSpace(c.Server.Host), c.Server.Port)
}

// ClassifierTimeout returns zero when no limit is configured.
func (c *Config) ClassifierTimeout() time.Duration {
	return parseDuration(c.Classifier.Timeout, 0)
}

func (c *Config) CatalogTimeout() time.Duration {
	return parseDuration(c.Catalog.Timeout, 15*time.Second)
}

func (c *Config) ProbeInterval() time.Duration {
	return parseDuration(c.Connectivity.ProbeInterval, 30*time.Second)
}

func parseDuration(raw string, fallback time.Duration) time.Duration {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return fallback
	}
	if raw == "0" {
		return 0
	}
	d, err := time.ParseDuration(raw)
	if err != nil || d < 0 {
		return fallback
	}
	return d
}

func setString(dst *string, key string) {
	if value := os.Getenv(key); value != "" {
		*dst = value
	}
}

func parseListenAddr(addr string) (string, int) {
	addr = strings.TrimSpace(addr)
	if addr == "" {
		return "", 0
	}
	if strings.HasPrefix(addr, ":") {
		return "", parseIntValue(strings.TrimPrefix(addr, ":"), 0)
	}
	if host, port, err := net.SplitHostPort(addr); err == nil {
		return host, parseIntValue(port, 0)
	}
	if portOnly := parseIntValue(addr, 0); portOnly > 0 {
		return "", portOnly
	}
	return addr, 0
}

func joinListenAddr(host string, port int) string {
	if port <= 0 {
		port = 8787
	}
	if host == "" {
		return fmt.Sprintf(":%d", port)
	}
	return net.JoinHostPort(host, strconv.Itoa(port))
}

func parseEnvInt(key string, fallback int) int {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return fallback
	}
	return parseIntValue(raw, fallback)
}

func parseIntValue(raw string, fallback int) int {
	value, err := strconv.Atoi(strings.TrimSpace(raw))
	if err != nil {
		return fallback
	}
	return value
}
