package config

import (
	"path/filepath"
	"time"

	"github.com/adrg/xdg"
)

// Default configuration values.
const (
	// DefaultMaxLinks is the number of links a crawl discovers when the
	// caller does not ask for a specific amount.
	DefaultMaxLinks = 10

	// DefaultTimeout bounds each HTTP request.
	DefaultTimeout = 10 * time.Second

	// DefaultCrawlDelay is the fixed pause before every fetch, including the
	// first one.
	DefaultCrawlDelay = 2 * time.Second

	// DefaultBatchSize is the number of seeds crawled concurrently when more
	// than one seed is given. Seeds of the same domain never run concurrently.
	DefaultBatchSize = 4

	// AppName is the application name used for XDG directory paths.
	AppName = "linkharvest"

	// DefaultUserAgent identifies linkharvest in HTTP requests.
	DefaultUserAgent = "linkharvest/1.0 (+https://github.com/nao1215/linkharvest)"

	// DefaultMaxBodySize limits the response body size read per page.
	DefaultMaxBodySize = 5 * 1024 * 1024 // 5MB

	// DefaultStoreFileName is the JSON link store file name inside the data dir.
	DefaultStoreFileName = "scraped_links.json"

	// DefaultOutputFile receives the new links of the most recent crawl.
	DefaultOutputFile = "output_links.txt"

	// DefaultListenAddress is where the web front end listens.
	DefaultListenAddress = ":5000"

	// DefaultRedisAddress is used by the redis link store.
	DefaultRedisAddress = "127.0.0.1:6379"

	// DefaultRedisPrefix namespaces the keys of the redis link store.
	DefaultRedisPrefix = "linkharvest"
)

// Link store backends.
const (
	StoreJSON   = "json"
	StoreSQLite = "sqlite"
	StoreRedis  = "redis"
)

// Config holds all configuration options for linkharvest.
// It is populated from defaults, the config file and CLI flags, then passed
// explicitly to the components that need it.
type Config struct {
	// MaxLinks caps the number of same-domain links discovered per crawl.
	MaxLinks int

	// Timeout is the per-request HTTP timeout.
	Timeout time.Duration

	// CrawlDelay is the pause before each fetch.
	CrawlDelay time.Duration

	// UserAgent is the User-Agent header sent with every request.
	UserAgent string

	// MaxBodySize is the maximum response body size in bytes to read.
	MaxBodySize int64

	// Proxy is an optional SOCKS5 proxy address (host:port) that every
	// request is sent through.
	Proxy string

	// Verbose enables debug logging. When false only warnings and errors
	// are logged.
	Verbose bool

	// BatchSize is the number of seeds crawled concurrently.
	BatchSize int

	// ConfigFilePath is the path to the configuration file.
	// If empty, .linkharvest is searched in the current and home directory.
	ConfigFilePath string

	// SiteConfigs holds the per-site overrides loaded from the config file.
	SiteConfigs *File

	// Store selects the link store backend: json, sqlite or redis.
	Store string

	// StoreFile is the JSON link store path (json backend).
	StoreFile string

	// DBDir is the directory of the SQLite database. The database always
	// records crawl history and doubles as the sqlite link store.
	DBDir string

	// RedisAddr, RedisPassword and RedisDB configure the redis backend.
	RedisAddr     string
	RedisPassword string
	RedisDB       int

	// RedisPrefix namespaces the keys of the redis backend.
	RedisPrefix string

	// OutputFile receives the new links of each crawl, one per line.
	OutputFile string

	// JSONReport and MarkdownReport select the summary format printed to
	// stdout. They are mutually exclusive.
	JSONReport     bool
	MarkdownReport bool

	// Targets is the list of seed URLs to crawl.
	Targets []string
}

// NewConfig creates a new Config with default values.
func NewConfig() *Config {
	return &Config{
		MaxLinks:    DefaultMaxLinks,
		Timeout:     DefaultTimeout,
		CrawlDelay:  DefaultCrawlDelay,
		UserAgent:   DefaultUserAgent,
		MaxBodySize: DefaultMaxBodySize,
		BatchSize:   DefaultBatchSize,
		Store:       StoreJSON,
		StoreFile:   filepath.Join(XDGDataDir(), DefaultStoreFileName),
		DBDir:       XDGDataDir(),
		RedisAddr:   DefaultRedisAddress,
		RedisPrefix: DefaultRedisPrefix,
		OutputFile:  DefaultOutputFile,
		SiteConfigs: &File{Sites: make(map[string]SiteConfig)},
	}
}

// XDGDataDir returns the XDG data directory for linkharvest.
// On Linux: ~/.local/share/linkharvest
func XDGDataDir() string {
	return filepath.Join(xdg.DataHome, AppName)
}

// XDGConfigDir returns the XDG config directory for linkharvest.
func XDGConfigDir() string {
	return filepath.Join(xdg.ConfigHome, AppName)
}

// Validate checks if the configuration is valid.
// It returns the first problem found as a sentinel error.
func (c *Config) Validate() error {
	if len(c.Targets) == 0 {
		return ErrNoTarget
	}
	if err := c.ValidateCrawl(); err != nil {
		return err
	}
	if c.BatchSize <= 0 {
		return ErrInvalidBatchSize
	}
	if c.JSONReport && c.MarkdownReport {
		return ErrConflictingReportFormats
	}
	return nil
}

// ValidateCrawl checks the settings every crawl depends on, regardless of
// whether it was started from the CLI or the web front end.
func (c *Config) ValidateCrawl() error {
	if c.MaxLinks <= 0 {
		return ErrInvalidMaxLinks
	}
	if c.Timeout <= 0 {
		return ErrInvalidTimeout
	}
	if c.CrawlDelay < 0 {
		return ErrInvalidCrawlDelay
	}
	if c.MaxBodySize < 0 {
		return ErrInvalidMaxBodySize
	}
	switch c.Store {
	case StoreJSON, StoreSQLite, StoreRedis:
	default:
		return ErrUnknownStore
	}
	return nil
}

// ForDomain returns a copy of the config with the site overrides for domain
// applied. Targets and SiteConfigs are shared with the receiver.
func (c *Config) ForDomain(domain string) *Config {
	out := *c
	if c.SiteConfigs == nil {
		return &out
	}
	site := c.SiteConfigs.GetSiteConfig(domain)
	if site.MaxLinks > 0 {
		out.MaxLinks = site.MaxLinks
	}
	if site.Delay != nil {
		out.CrawlDelay = *site.Delay
	}
	if site.UserAgent != "" {
		out.UserAgent = site.UserAgent
	}
	return &out
}
