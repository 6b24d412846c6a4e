package config

import (
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

type Config struct {
	Server    ServerConfig    `yaml:"server"`
	Database  DatabaseConfig  `yaml:"database"`
	GitHub    GitHubConfig    `yaml:"github"`
	Collector CollectorConfig `yaml:"collector"`
	Webhook   WebhookConfig   `yaml:"webhook"`
	Alert     AlertConfig     `yaml:"alert"`
	SMTP      SMTPConfig      `yaml:"smtp"`
}

type ServerConfig struct {
	Host string `yaml:"host"`
	Port string `yaml:"port"`
	Mode string `yaml:"mode"` // debug, release, test
}

type DatabaseConfig struct {
	Driver string `yaml:"driver"` // sqlite, mysql, postgres
	DSN    string `yaml:"dsn"`
}

// GitHubConfig identifies the repository whose workflow runs are collected.
// Token is optional; unauthenticated calls are allowed but rate-limited upstream.
type GitHubConfig struct {
	Owner      string `yaml:"owner"`
	Repo       string `yaml:"repo"`
	Token      string `yaml:"token"`
	APIBaseURL string `yaml:"api_base_url"`
}

type CollectorConfig struct {
	Enabled      bool `yaml:"enabled"`
	IntervalMS   int  `yaml:"interval_ms"`
	PageSize     int  `yaml:"page_size"`
	LookbackDays int  `yaml:"lookback_days"`
}

type WebhookConfig struct {
	Secret string  `yaml:"secret"`
	RPS    float64 `yaml:"rps"`
	Burst  int     `yaml:"burst"`
}

type AlertConfig struct {
	From string `yaml:"from"`
	To   string `yaml:"to"`
}

type SMTPConfig struct {
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	Username string `yaml:"username"`
	Password string `yaml:"password"`
	UseTLS   bool   `yaml:"use_tls"`
}

var GlobalConfig *Config

func Load(configPath string) (*Config, error) {
	if configPath == "" {
		configPath = "config.yaml"
	}

	var cfg *Config

	if _, err := os.Stat(configPath); os.IsNotExist(err) {
		cfg = DefaultConfig()
	} else {
		data, err := os.ReadFile(configPath)
		if err != nil {
			return nil, err
		}

		cfg = DefaultConfig()
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, err
		}
	}

	cfg.overrideFromEnv()
	GlobalConfig = cfg
	return cfg, nil
}

func DefaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Host: "0.0.0.0",
			Port: "5000",
			Mode: "debug",
		},
		Database: DatabaseConfig{
			Driver: "sqlite",
			DSN:    "cipulse.db",
		},
		GitHub: GitHubConfig{
			APIBaseURL: "https://api.github.com",
		},
		Collector: CollectorConfig{
			Enabled:      true,
			IntervalMS:   60000,
			PageSize:     50,
			LookbackDays: 30,
		},
		Webhook: WebhookConfig{
			RPS:   10,
			Burst: 20,
		},
		SMTP: SMTPConfig{
			Port: 587,
		},
	}
}

func (c *Config) overrideFromEnv() {
	if host := os.Getenv("SERVER_HOST"); host != "" {
		c.Server.Host = host
	}
	if port := os.Getenv("PORT"); port != "" {
		c.Server.Port = port
	}
	if mode := os.Getenv("SERVER_MODE"); mode != "" {
		c.Server.Mode = mode
	}
	if driver := os.Getenv("DB_DRIVER"); driver != "" {
		c.Database.Driver = driver
	}
	if dsn := os.Getenv("DB_DSN"); dsn != "" {
		c.Database.DSN = dsn
	}
	if owner := os.Getenv("GITHUB_OWNER"); owner != "" {
		c.GitHub.Owner = owner
	}
	if repo := os.Getenv("GITHUB_REPO"); repo != "" {
		c.GitHub.Repo = repo
	}
	if token := os.Getenv("GITHUB_TOKEN"); token != "" {
		c.GitHub.Token = token
	}
	if baseURL := os.Getenv("GITHUB_API_BASE_URL"); baseURL != "" {
		c.GitHub.APIBaseURL = baseURL
	}
	if enabled := os.Getenv("POLL_ENABLED"); enabled != "" {
		c.Collector.Enabled = strings.ToLower(enabled) == "true"
	}
	if interval := os.Getenv("POLL_INTERVAL_MS"); interval != "" {
		if v, err := strconv.Atoi(interval); err == nil && v > 0 {
			c.Collector.IntervalMS = v
		}
	}
	if perPage := os.Getenv("POLL_PER_PAGE"); perPage != "" {
		if v, err := strconv.Atoi(perPage); err == nil && v > 0 {
			c.Collector.PageSize = v
		}
	}
	if lookback := os.Getenv("LOOKBACK_DAYS"); lookback != "" {
		if v, err := strconv.Atoi(lookback); err == nil && v > 0 {
			c.Collector.LookbackDays = v
		}
	}
	if secret := os.Getenv("WEBHOOK_SECRET"); secret != "" {
		c.Webhook.Secret = secret
	}
	if from := os.Getenv("ALERT_FROM"); from != "" {
		c.Alert.From = from
	}
	if to := os.Getenv("ALERT_TO"); to != "" {
		c.Alert.To = to
	}
	if host := os.Getenv("SMTP_HOST"); host != "" {
		c.SMTP.Host = host
	}
	if port := os.Getenv("SMTP_PORT"); port != "" {
		if v, err := strconv.Atoi(port); err == nil && v > 0 {
			c.SMTP.Port = v
		}
	}
	if user := os.Getenv("SMTP_USER"); user != "" {
		c.SMTP.Username = user
	}
	if pass := os.Getenv("SMTP_PASS"); pass != "" {
		c.SMTP.Password = pass
	}
	if secure := os.Getenv("SMTP_SECURE"); secure != "" {
		c.SMTP.UseTLS = strings.ToLower(secure) == "true"
	}
}

func (c *Config) Save(configPath string) error {
	if configPath == "" {
		configPath = "config.yaml"
	}

	dir := filepath.Dir(configPath)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return err
	}

	data, err := yaml.Marshal(c)
	if err != nil {
		return err
	}

	return os.WriteFile(configPath, data, 0644)
}
