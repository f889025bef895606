// Package config loads the patrol configuration from YAML, .env files and the environment.
package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/robfig/cron/v3"
	"github.com/spf13/viper"

	"github.com/yingtu35/deadlink-patrol/internal/export"
	"github.com/yingtu35/deadlink-patrol/internal/logger"
	"github.com/yingtu35/deadlink-patrol/internal/notify"
	"github.com/yingtu35/deadlink-patrol/internal/webscraper"
	"github.com/yingtu35/deadlink-patrol/pkg/domain"
)

// ErrInvalidConfig wraps every validation failure.
var ErrInvalidConfig = errors.New("invalid configuration")

const (
	RendererStatic  = "static"
	RendererBrowser = "browser"
)

// Config is the root configuration.
type Config struct {
	Crawl  CrawlConfig   `mapstructure:"crawl"`
	Store  StoreConfig   `mapstructure:"store"`
	Export ExportConfig  `mapstructure:"export"`
	Notify notify.Config `mapstructure:"notify"`
	Server ServerConfig  `mapstructure:"server"`
	Watch  WatchConfig   `mapstructure:"watch"`
	Logger logger.Config `mapstructure:"logger"`
}

// CrawlConfig configures the crawl scope and its politeness.
type CrawlConfig struct {
	AllowedPrefixes  []string      `mapstructure:"allowed_prefixes"`
	BaseDomain       string        `mapstructure:"base_domain"`
	ExcludedDomains  []string      `mapstructure:"excluded_domains"`
	MaxFindings      int           `mapstructure:"max_findings"`
	FetchTimeout     time.Duration `mapstructure:"fetch_timeout"`
	ProbeTimeout     time.Duration `mapstructure:"probe_timeout"`
	UserAgent        string        `mapstructure:"user_agent"`
	ProbeErrorPolicy string        `mapstructure:"probe_error_policy"`
	RequestDelay     time.Duration `mapstructure:"request_delay"`
	RespectRobots    bool          `mapstructure:"respect_robots"`
	Renderer         string        `mapstructure:"renderer"`
	MaxRedirects     int           `mapstructure:"max_redirects"`
}

// StoreConfig locates the ledger files.
type StoreConfig struct {
	Path            string `mapstructure:"path"`
	AnnotationsPath string `mapstructure:"annotations_path"`
}

// ExportConfig selects the report formats written after each run.
type ExportConfig struct {
	Formats  []string `mapstructure:"formats"`
	Basename string   `mapstructure:"basename"`
}

// ServerConfig configures the dashboard API.
type ServerConfig struct {
	Addr string `mapstructure:"addr"`
}

// WatchConfig configures recurring crawls.
type WatchConfig struct {
	Schedule string `mapstructure:"schedule"`
}

// Classifier builds the URL classifier for the crawl scope.
func (c CrawlConfig) Classifier() *domain.Classifier {
	return domain.NewClassifier(c.BaseDomain, c.ExcludedDomains, c.AllowedPrefixes)
}

// CheckerConfig returns the reachability checker settings.
func (c CrawlConfig) CheckerConfig() webscraper.CheckerConfig {
	policy, _ := webscraper.ParseProbeErrorPolicy(c.ProbeErrorPolicy)
	return webscraper.CheckerConfig{
		ProbeTimeout: c.ProbeTimeout,
		FetchTimeout: c.FetchTimeout,
		ErrorPolicy:  policy,
	}
}

// SetDefaults registers every default on v.
func SetDefaults(v *viper.Viper) {
	v.SetDefault("crawl.allowed_prefixes", []string{})
	v.SetDefault("crawl.base_domain", "")
	v.SetDefault("crawl.excluded_domains", []string{
		"twitter.com", "facebook.com", "instagram.com", "linkedin.com", "youtube.com",
	})
	v.SetDefault("crawl.max_findings", webscraper.DefaultMaxFindings)
	v.SetDefault("crawl.fetch_timeout", webscraper.DefaultFetchTimeout)
	v.SetDefault("crawl.probe_timeout", webscraper.DefaultProbeTimeout)
	v.SetDefault("crawl.user_agent", webscraper.DefaultUserAgent)
	v.SetDefault("crawl.probe_error_policy", string(webscraper.PolicyIgnore))
	v.SetDefault("crawl.request_delay", time.Duration(0))
	v.SetDefault("crawl.respect_robots", false)
	v.SetDefault("crawl.renderer", RendererStatic)
	v.SetDefault("crawl.max_redirects", webscraper.DefaultMaxRedirects)

	v.SetDefault("store.path", "broken_links.csv")
	v.SetDefault("store.annotations_path", "resolved_links.json")

	v.SetDefault("export.formats", []string{"json"})
	v.SetDefault("export.basename", "broken_links_report")

	v.SetDefault("notify.webhook_url", "")
	v.SetDefault("notify.schedule", "0 9 * * MON")
	v.SetDefault("notify.dashboard_url", "")
	v.SetDefault("notify.timeout", 10*time.Second)

	v.SetDefault("server.addr", ":8080")
	v.SetDefault("watch.schedule", "0 6 * * *")

	v.SetDefault("logger.level", "info")
	v.SetDefault("logger.development", false)
}

// Load reads configuration. With an empty path, config.yaml is searched for in the working
// directory and ./config; a missing file is not an error. .env is loaded first and
// environment variables override file values (CRAWL_MAX_FINDINGS for crawl.max_findings).
func Load(path string) (*Config, error) {
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		return nil, fmt.Errorf("load .env: %w", err)
	}

	v := viper.New()
	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("./config")
	}

	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	SetDefaults(v)
	if err := bindEnv(v); err != nil {
		return nil, err
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if path != "" || !errors.As(err, &notFound) {
			return nil, fmt.Errorf("read config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}
	cfg.applyDerived()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func bindEnv(v *viper.Viper) error {
	if err := v.BindEnv("notify.webhook_url", "SLACK_WEBHOOK_URL", "NOTIFY_WEBHOOK_URL"); err != nil {
		return fmt.Errorf("bind SLACK_WEBHOOK_URL: %w", err)
	}
	if err := v.BindEnv("notify.dashboard_url", "DASHBOARD_URL", "NOTIFY_DASHBOARD_URL"); err != nil {
		return fmt.Errorf("bind DASHBOARD_URL: %w", err)
	}
	if err := v.BindEnv("logger.level", "LOG_LEVEL"); err != nil {
		return fmt.Errorf("bind LOG_LEVEL: %w", err)
	}
	return nil
}

// applyDerived fills values computed from other settings.
func (c *Config) applyDerived() {
	if c.Crawl.BaseDomain == "" && len(c.Crawl.AllowedPrefixes) > 0 {
		if d, err := domain.GetDomain(c.Crawl.AllowedPrefixes[0]); err == nil {
			c.Crawl.BaseDomain = d
		}
	}
	c.Crawl.BaseDomain = strings.TrimPrefix(strings.ToLower(c.Crawl.BaseDomain), "www.")
}

// Validate checks the configuration and returns every problem found.
func (c *Config) Validate() error {
	var problems []string

	if len(c.Crawl.AllowedPrefixes) == 0 {
		problems = append(problems, "crawl.allowed_prefixes must not be empty")
	}
	for _, p := range c.Crawl.AllowedPrefixes {
		scheme, err := domain.GetProtocol(p)
		host, herr := domain.GetDomain(p)
		if err != nil || herr != nil || (scheme != "http" && scheme != "https") || host == "" {
			problems = append(problems, fmt.Sprintf("crawl.allowed_prefixes: %q is not an absolute http(s) URL", p))
		}
	}
	if c.Crawl.BaseDomain == "" {
		problems = append(problems, "crawl.base_domain is required")
	}
	if c.Crawl.MaxFindings < 0 {
		problems = append(problems, "crawl.max_findings must not be negative")
	}
	if c.Crawl.FetchTimeout <= 0 || c.Crawl.ProbeTimeout <= 0 {
		problems = append(problems, "crawl.fetch_timeout and crawl.probe_timeout must be positive")
	}
	if c.Crawl.RequestDelay < 0 {
		problems = append(problems, "crawl.request_delay must not be negative")
	}
	if _, err := webscraper.ParseProbeErrorPolicy(c.Crawl.ProbeErrorPolicy); err != nil {
		problems = append(problems, "crawl.probe_error_policy: "+err.Error())
	}
	if c.Crawl.Renderer != RendererStatic && c.Crawl.Renderer != RendererBrowser {
		problems = append(problems, fmt.Sprintf("crawl.renderer: %q (want static or browser)", c.Crawl.Renderer))
	}
	if c.Crawl.MaxRedirects < 0 {
		problems = append(problems, "crawl.max_redirects must not be negative")
	}

	if c.Store.Path == "" {
		problems = append(problems, "store.path is required")
	}
	for _, f := range c.Export.Formats {
		if _, err := export.New(f); err != nil {
			problems = append(problems, "export.formats: "+err.Error())
		}
	}
	if len(c.Export.Formats) > 0 && c.Export.Basename == "" {
		problems = append(problems, "export.basename is required when formats are set")
	}

	schedules := []struct{ key, expr string }{
		{"notify.schedule", c.Notify.Schedule},
		{"watch.schedule", c.Watch.Schedule},
	}
	for _, s := range schedules {
		if s.expr == "" {
			continue
		}
		if _, err := cron.ParseStandard(s.expr); err != nil {
			problems = append(problems, fmt.Sprintf("%s: %v", s.key, err))
		}
	}

	if len(problems) > 0 {
		return fmt.Errorf("%w: %s", ErrInvalidConfig, strings.Join(problems, "; "))
	}
	return nil
}
