// SPDX-License-Identifier: MIT

package config

import "time"

// Config is the fully resolved runtime configuration for the composition
// server, produced by Load with precedence ENV > YAML file > defaults.
type Config struct {
	Version string `yaml:"-"`

	// Server
	ListenAddr  string `yaml:"listenAddr"`
	TemplateDir string `yaml:"templateDir"`
	TLSCert     string `yaml:"tlsCert,omitempty"`
	TLSKey      string `yaml:"tlsKey,omitempty"`

	// Composition
	PipeInstanceName    string        `yaml:"pipeInstanceName"`
	ForwardedHeaderOrg  string        `yaml:"forwardedHeaderOrg"`
	InlineTimeout       time.Duration `yaml:"inlineTimeout"`
	AsyncTimeout        time.Duration `yaml:"asyncTimeout"`
	ContextFetchTimeout time.Duration `yaml:"contextFetchTimeout"`

	// Outbound SSRF allowlist, forwarded to internal/netutil.OutboundPolicy.
	OutboundAllowlistEnabled bool     `yaml:"outboundAllowlistEnabled"`
	OutboundAllowedHosts     []string `yaml:"outboundAllowedHosts,omitempty"`
	OutboundAllowedCIDRs     []string `yaml:"outboundAllowedCIDRs,omitempty"`
	OutboundAllowedPorts     []int    `yaml:"outboundAllowedPorts,omitempty"`
	OutboundAllowedSchemes   []string `yaml:"outboundAllowedSchemes,omitempty"`

	// Outbound per-upstream-host throttle (internal/ratelimit).
	OutboundRatePerHost  float64 `yaml:"outboundRatePerHost"`
	OutboundBurstPerHost int     `yaml:"outboundBurstPerHost"`

	// Downstream, client-facing rate limit (internal/control/middleware).
	RateLimitEnabled   bool     `yaml:"rateLimitEnabled"`
	RateLimitRPS       int      `yaml:"rateLimitRPS"`
	RateLimitBurst     int      `yaml:"rateLimitBurst"`
	RateLimitWhitelist []string `yaml:"rateLimitWhitelist,omitempty"`

	// CORS / security headers
	AllowedOrigins     []string `yaml:"allowedOrigins,omitempty"`
	AllowCredentials   bool     `yaml:"allowCredentials"`
	ContentSecurityPol string   `yaml:"contentSecurityPolicy,omitempty"`
	TrustedProxyCIDRs  []string `yaml:"trustedProxyCIDRs,omitempty"`

	// Caching
	TemplateCacheTTL time.Duration `yaml:"templateCacheTTL"`
	ContextCacheTTL  time.Duration `yaml:"contextCacheTTL"`

	// Template store
	TemplateStoreDir    string `yaml:"templateStoreDir"`
	TemplateStoreBadger string `yaml:"templateStoreBadgerPath"`

	// Context store (redis-backed fetchContext overrides)
	RedisAddr     string `yaml:"redisAddr,omitempty"`
	RedisPassword string `yaml:"redisPassword,omitempty"`
	RedisDB       int    `yaml:"redisDB"`

	// Audit
	AuditDBPath    string `yaml:"auditDBPath"`
	AuditEnabled   bool   `yaml:"auditEnabled"`
	AuditRetention time.Duration `yaml:"auditRetention"`

	// Admin/introspection API
	AdminListenAddr string `yaml:"adminListenAddr,omitempty"`

	// Observability
	LogLevel        string `yaml:"logLevel"`
	LogService      string `yaml:"logService"`
	TracingEnabled  bool   `yaml:"tracingEnabled"`
	TracingEndpoint string `yaml:"tracingEndpoint,omitempty"`

	// ConfigPath is the file this config was loaded from, if any. Empty
	// means ENV/defaults only; the file watcher is then a no-op.
	ConfigPath string `yaml:"-"`
}

// FileConfig is the strict YAML shape accepted from a config file. Fields
// mirror Config; pointers distinguish "unset" from "explicit zero value" so
// the merge step knows whether to override a default.
type FileConfig struct {
	ListenAddr  string `yaml:"listenAddr,omitempty"`
	TemplateDir string `yaml:"templateDir,omitempty"`
	TLSCert     string `yaml:"tlsCert,omitempty"`
	TLSKey      string `yaml:"tlsKey,omitempty"`

	PipeInstanceName    string `yaml:"pipeInstanceName,omitempty"`
	ForwardedHeaderOrg  string `yaml:"forwardedHeaderOrg,omitempty"`
	InlineTimeout       string `yaml:"inlineTimeout,omitempty"`
	AsyncTimeout        string `yaml:"asyncTimeout,omitempty"`
	ContextFetchTimeout string `yaml:"contextFetchTimeout,omitempty"`

	OutboundAllowlistEnabled *bool    `yaml:"outboundAllowlistEnabled,omitempty"`
	OutboundAllowedHosts     []string `yaml:"outboundAllowedHosts,omitempty"`
	OutboundAllowedCIDRs     []string `yaml:"outboundAllowedCIDRs,omitempty"`
	OutboundAllowedPorts     []int    `yaml:"outboundAllowedPorts,omitempty"`
	OutboundAllowedSchemes   []string `yaml:"outboundAllowedSchemes,omitempty"`

	OutboundRatePerHost  *float64 `yaml:"outboundRatePerHost,omitempty"`
	OutboundBurstPerHost *int     `yaml:"outboundBurstPerHost,omitempty"`

	RateLimitEnabled   *bool    `yaml:"rateLimitEnabled,omitempty"`
	RateLimitRPS       *int     `yaml:"rateLimitRPS,omitempty"`
	RateLimitBurst     *int     `yaml:"rateLimitBurst,omitempty"`
	RateLimitWhitelist []string `yaml:"rateLimitWhitelist,omitempty"`

	AllowedOrigins     []string `yaml:"allowedOrigins,omitempty"`
	AllowCredentials   *bool    `yaml:"allowCredentials,omitempty"`
	ContentSecurityPol string   `yaml:"contentSecurityPolicy,omitempty"`
	TrustedProxyCIDRs  []string `yaml:"trustedProxyCIDRs,omitempty"`

	TemplateCacheTTL string `yaml:"templateCacheTTL,omitempty"`
	ContextCacheTTL  string `yaml:"contextCacheTTL,omitempty"`

	TemplateStoreDir    string `yaml:"templateStoreDir,omitempty"`
	TemplateStoreBadger string `yaml:"templateStoreBadgerPath,omitempty"`

	RedisAddr     string `yaml:"redisAddr,omitempty"`
	RedisPassword string `yaml:"redisPassword,omitempty"`
	RedisDB       *int   `yaml:"redisDB,omitempty"`

	AuditDBPath    string `yaml:"auditDBPath,omitempty"`
	AuditEnabled   *bool  `yaml:"auditEnabled,omitempty"`
	AuditRetention string `yaml:"auditRetention,omitempty"`

	AdminListenAddr string `yaml:"adminListenAddr,omitempty"`

	LogLevel        string `yaml:"logLevel,omitempty"`
	LogService      string `yaml:"logService,omitempty"`
	TracingEnabled  *bool  `yaml:"tracingEnabled,omitempty"`
	TracingEndpoint string `yaml:"tracingEndpoint,omitempty"`
}

// Default returns the built-in defaults, applied before file/env overrides.
func Default() Config {
	return Config{
		ListenAddr:               ":8080",
		TemplateDir:              "./templates",
		PipeInstanceName:         "p",
		ForwardedHeaderOrg:       "X-Zalando-",
		InlineTimeout:            1 * time.Second,
		AsyncTimeout:             10 * time.Second,
		ContextFetchTimeout:      1500 * time.Millisecond,
		OutboundAllowlistEnabled: false,
		OutboundAllowedSchemes:   []string{"http", "https"},
		OutboundAllowedPorts:     []int{80, 443},
		OutboundRatePerHost:      10,
		OutboundBurstPerHost:     20,
		RateLimitEnabled:         true,
		RateLimitRPS:             100,
		RateLimitBurst:           50,
		ContentSecurityPol:       "",
		TemplateCacheTTL:         30 * time.Second,
		ContextCacheTTL:          5 * time.Second,
		TemplateStoreDir:         "./data/templates",
		TemplateStoreBadger:      "./data/templates/meta.badger",
		RedisDB:                  0,
		AuditDBPath:              "./data/audit.db",
		AuditEnabled:             false,
		AuditRetention:           30 * 24 * time.Hour,
		AdminListenAddr:          ":9090",
		LogLevel:                 "info",
		LogService:               "layoutd",
		TracingEnabled:           false,
	}
}
