// SPDX-License-Identifier: MIT

package config

import (
	"bytes"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Loader loads Config with precedence ENV > YAML file > defaults.
type Loader struct {
	configPath string
	version    string
}

// NewLoader creates a Loader. configPath may be empty, meaning ENV-only.
func NewLoader(configPath, version string) *Loader {
	return &Loader{configPath: configPath, version: version}
}

// Load resolves the final Config following Strict Validated Order: defaults,
// then file (strict YAML, unknown fields rejected), then env overrides,
// then validation.
func (l *Loader) Load() (Config, error) {
	cfg := Default()
	cfg.Version = l.version
	cfg.ConfigPath = l.configPath

	if l.configPath != "" {
		fileCfg, err := l.loadFile(l.configPath)
		if err != nil {
			return cfg, fmt.Errorf("load config file: %w", err)
		}
		if err := mergeFileConfig(&cfg, fileCfg); err != nil {
			return cfg, fmt.Errorf("merge file config: %w", err)
		}
	}

	mergeEnvConfig(&cfg)

	if abs, err := filepath.Abs(cfg.TemplateDir); err == nil {
		cfg.TemplateDir = abs
	}

	if err := Validate(cfg); err != nil {
		return cfg, fmt.Errorf("config validation failed: %w", err)
	}

	return cfg, nil
}

// loadFile reads and strictly decodes a YAML config file. Unknown fields
// are rejected to catch typos and stale keys early.
func (l *Loader) loadFile(path string) (*FileConfig, error) {
	path = filepath.Clean(path)
	ext := strings.ToLower(filepath.Ext(path))
	if ext != ".yaml" && ext != ".yml" {
		return nil, fmt.Errorf("unsupported config format: %s (only YAML supported)", ext)
	}

	// #nosec G304 -- configuration file path is provided by the operator via CLI/ENV
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read file: %w", err)
	}

	var fileCfg FileConfig
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&fileCfg); err != nil {
		if err == io.EOF {
			return &FileConfig{}, nil
		}
		return nil, fmt.Errorf("strict config parse error: %w", err)
	}
	if err := dec.Decode(&struct{}{}); err != io.EOF {
		return nil, fmt.Errorf("config file contains multiple documents or trailing content")
	}

	return &fileCfg, nil
}

func mergeFileConfig(cfg *Config, f *FileConfig) error {
	if f == nil {
		return nil
	}
	if f.ListenAddr != "" {
		cfg.ListenAddr = f.ListenAddr
	}
	if f.TemplateDir != "" {
		cfg.TemplateDir = f.TemplateDir
	}
	if f.TLSCert != "" {
		cfg.TLSCert = f.TLSCert
	}
	if f.TLSKey != "" {
		cfg.TLSKey = f.TLSKey
	}
	if f.PipeInstanceName != "" {
		cfg.PipeInstanceName = f.PipeInstanceName
	}
	if f.ForwardedHeaderOrg != "" {
		cfg.ForwardedHeaderOrg = f.ForwardedHeaderOrg
	}

	var err error
	if cfg.InlineTimeout, err = mergeDuration(f.InlineTimeout, cfg.InlineTimeout); err != nil {
		return fmt.Errorf("inlineTimeout: %w", err)
	}
	if cfg.AsyncTimeout, err = mergeDuration(f.AsyncTimeout, cfg.AsyncTimeout); err != nil {
		return fmt.Errorf("asyncTimeout: %w", err)
	}
	if cfg.ContextFetchTimeout, err = mergeDuration(f.ContextFetchTimeout, cfg.ContextFetchTimeout); err != nil {
		return fmt.Errorf("contextFetchTimeout: %w", err)
	}
	if cfg.TemplateCacheTTL, err = mergeDuration(f.TemplateCacheTTL, cfg.TemplateCacheTTL); err != nil {
		return fmt.Errorf("templateCacheTTL: %w", err)
	}
	if cfg.ContextCacheTTL, err = mergeDuration(f.ContextCacheTTL, cfg.ContextCacheTTL); err != nil {
		return fmt.Errorf("contextCacheTTL: %w", err)
	}
	if cfg.AuditRetention, err = mergeDuration(f.AuditRetention, cfg.AuditRetention); err != nil {
		return fmt.Errorf("auditRetention: %w", err)
	}

	if f.OutboundAllowlistEnabled != nil {
		cfg.OutboundAllowlistEnabled = *f.OutboundAllowlistEnabled
	}
	if len(f.OutboundAllowedHosts) > 0 {
		cfg.OutboundAllowedHosts = f.OutboundAllowedHosts
	}
	if len(f.OutboundAllowedCIDRs) > 0 {
		cfg.OutboundAllowedCIDRs = f.OutboundAllowedCIDRs
	}
	if len(f.OutboundAllowedPorts) > 0 {
		cfg.OutboundAllowedPorts = f.OutboundAllowedPorts
	}
	if len(f.OutboundAllowedSchemes) > 0 {
		cfg.OutboundAllowedSchemes = f.OutboundAllowedSchemes
	}
	if f.OutboundRatePerHost != nil {
		cfg.OutboundRatePerHost = *f.OutboundRatePerHost
	}
	if f.OutboundBurstPerHost != nil {
		cfg.OutboundBurstPerHost = *f.OutboundBurstPerHost
	}

	if f.RateLimitEnabled != nil {
		cfg.RateLimitEnabled = *f.RateLimitEnabled
	}
	if f.RateLimitRPS != nil {
		cfg.RateLimitRPS = *f.RateLimitRPS
	}
	if f.RateLimitBurst != nil {
		cfg.RateLimitBurst = *f.RateLimitBurst
	}
	if len(f.RateLimitWhitelist) > 0 {
		cfg.RateLimitWhitelist = f.RateLimitWhitelist
	}

	if len(f.AllowedOrigins) > 0 {
		cfg.AllowedOrigins = f.AllowedOrigins
	}
	if f.AllowCredentials != nil {
		cfg.AllowCredentials = *f.AllowCredentials
	}
	if f.ContentSecurityPol != "" {
		cfg.ContentSecurityPol = f.ContentSecurityPol
	}
	if len(f.TrustedProxyCIDRs) > 0 {
		cfg.TrustedProxyCIDRs = f.TrustedProxyCIDRs
	}

	if f.TemplateStoreDir != "" {
		cfg.TemplateStoreDir = f.TemplateStoreDir
	}
	if f.TemplateStoreBadger != "" {
		cfg.TemplateStoreBadger = f.TemplateStoreBadger
	}

	if f.RedisAddr != "" {
		cfg.RedisAddr = f.RedisAddr
	}
	if f.RedisPassword != "" {
		cfg.RedisPassword = f.RedisPassword
	}
	if f.RedisDB != nil {
		cfg.RedisDB = *f.RedisDB
	}

	if f.AuditDBPath != "" {
		cfg.AuditDBPath = f.AuditDBPath
	}
	if f.AuditEnabled != nil {
		cfg.AuditEnabled = *f.AuditEnabled
	}

	if f.AdminListenAddr != "" {
		cfg.AdminListenAddr = f.AdminListenAddr
	}

	if f.LogLevel != "" {
		cfg.LogLevel = f.LogLevel
	}
	if f.LogService != "" {
		cfg.LogService = f.LogService
	}
	if f.TracingEnabled != nil {
		cfg.TracingEnabled = *f.TracingEnabled
	}
	if f.TracingEndpoint != "" {
		cfg.TracingEndpoint = f.TracingEndpoint
	}

	return nil
}

func mergeDuration(raw string, fallback time.Duration) (time.Duration, error) {
	if raw == "" {
		return fallback, nil
	}
	return time.ParseDuration(raw)
}

// mergeEnvConfig overrides cfg with any LAYOUTD_* environment variables
// present. Environment always wins over file and defaults.
func mergeEnvConfig(cfg *Config) {
	cfg.ListenAddr = ParseString("LAYOUTD_LISTEN_ADDR", cfg.ListenAddr)
	cfg.TemplateDir = ParseString("LAYOUTD_TEMPLATE_DIR", cfg.TemplateDir)
	cfg.TLSCert = ParseString("LAYOUTD_TLS_CERT", cfg.TLSCert)
	cfg.TLSKey = ParseString("LAYOUTD_TLS_KEY", cfg.TLSKey)

	cfg.PipeInstanceName = ParseString("LAYOUTD_PIPE_INSTANCE_NAME", cfg.PipeInstanceName)
	cfg.ForwardedHeaderOrg = ParseString("LAYOUTD_FORWARDED_HEADER_ORG", cfg.ForwardedHeaderOrg)
	cfg.InlineTimeout = ParseDuration("LAYOUTD_INLINE_TIMEOUT", cfg.InlineTimeout)
	cfg.AsyncTimeout = ParseDuration("LAYOUTD_ASYNC_TIMEOUT", cfg.AsyncTimeout)
	cfg.ContextFetchTimeout = ParseDuration("LAYOUTD_CONTEXT_FETCH_TIMEOUT", cfg.ContextFetchTimeout)

	cfg.OutboundAllowlistEnabled = ParseBool("LAYOUTD_OUTBOUND_ALLOWLIST_ENABLED", cfg.OutboundAllowlistEnabled)
	cfg.OutboundAllowedHosts = ParseStringSlice("LAYOUTD_OUTBOUND_ALLOWED_HOSTS", cfg.OutboundAllowedHosts)
	cfg.OutboundAllowedCIDRs = ParseStringSlice("LAYOUTD_OUTBOUND_ALLOWED_CIDRS", cfg.OutboundAllowedCIDRs)
	cfg.OutboundAllowedPorts = ParseIntSlice("LAYOUTD_OUTBOUND_ALLOWED_PORTS", cfg.OutboundAllowedPorts)
	cfg.OutboundAllowedSchemes = ParseStringSlice("LAYOUTD_OUTBOUND_ALLOWED_SCHEMES", cfg.OutboundAllowedSchemes)
	cfg.OutboundRatePerHost = ParseFloat("LAYOUTD_OUTBOUND_RATE_PER_HOST", cfg.OutboundRatePerHost)
	cfg.OutboundBurstPerHost = ParseInt("LAYOUTD_OUTBOUND_BURST_PER_HOST", cfg.OutboundBurstPerHost)

	cfg.RateLimitEnabled = ParseBool("LAYOUTD_RATE_LIMIT_ENABLED", cfg.RateLimitEnabled)
	cfg.RateLimitRPS = ParseInt("LAYOUTD_RATE_LIMIT_RPS", cfg.RateLimitRPS)
	cfg.RateLimitBurst = ParseInt("LAYOUTD_RATE_LIMIT_BURST", cfg.RateLimitBurst)
	cfg.RateLimitWhitelist = ParseStringSlice("LAYOUTD_RATE_LIMIT_WHITELIST", cfg.RateLimitWhitelist)

	cfg.AllowedOrigins = ParseStringSlice("LAYOUTD_ALLOWED_ORIGINS", cfg.AllowedOrigins)
	cfg.AllowCredentials = ParseBool("LAYOUTD_ALLOW_CREDENTIALS", cfg.AllowCredentials)
	cfg.ContentSecurityPol = ParseString("LAYOUTD_CSP", cfg.ContentSecurityPol)
	cfg.TrustedProxyCIDRs = ParseStringSlice("LAYOUTD_TRUSTED_PROXY_CIDRS", cfg.TrustedProxyCIDRs)

	cfg.TemplateCacheTTL = ParseDuration("LAYOUTD_TEMPLATE_CACHE_TTL", cfg.TemplateCacheTTL)
	cfg.ContextCacheTTL = ParseDuration("LAYOUTD_CONTEXT_CACHE_TTL", cfg.ContextCacheTTL)
	cfg.TemplateStoreDir = ParseString("LAYOUTD_TEMPLATE_STORE_DIR", cfg.TemplateStoreDir)
	cfg.TemplateStoreBadger = ParseString("LAYOUTD_TEMPLATE_STORE_BADGER_PATH", cfg.TemplateStoreBadger)

	cfg.RedisAddr = ParseString("LAYOUTD_REDIS_ADDR", cfg.RedisAddr)
	cfg.RedisPassword = ParseString("LAYOUTD_REDIS_PASSWORD", cfg.RedisPassword)
	cfg.RedisDB = ParseInt("LAYOUTD_REDIS_DB", cfg.RedisDB)

	cfg.AuditDBPath = ParseString("LAYOUTD_AUDIT_DB_PATH", cfg.AuditDBPath)
	cfg.AuditEnabled = ParseBool("LAYOUTD_AUDIT_ENABLED", cfg.AuditEnabled)
	cfg.AuditRetention = ParseDuration("LAYOUTD_AUDIT_RETENTION", cfg.AuditRetention)

	cfg.AdminListenAddr = ParseString("LAYOUTD_ADMIN_LISTEN_ADDR", cfg.AdminListenAddr)

	cfg.LogLevel = ParseString("LOG_LEVEL", cfg.LogLevel)
	cfg.LogService = ParseString("LOG_SERVICE", cfg.LogService)
	cfg.TracingEnabled = ParseBool("LAYOUTD_TRACING_ENABLED", cfg.TracingEnabled)
	cfg.TracingEndpoint = ParseString("LAYOUTD_TRACING_ENDPOINT", cfg.TracingEndpoint)
}
