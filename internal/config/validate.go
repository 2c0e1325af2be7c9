// SPDX-License-Identifier: MIT

package config

import (
	"fmt"
	"net"
	"strings"
)

// Validate checks a resolved Config for internally-consistent, safe values.
// It aggregates every problem found rather than failing on the first one, so
// an operator sees the full list of misconfigurations in a single pass.
func Validate(cfg Config) error {
	var errs []string

	if strings.TrimSpace(cfg.ListenAddr) == "" {
		errs = append(errs, "listenAddr: must not be empty")
	}
	if strings.TrimSpace(cfg.TemplateDir) == "" {
		errs = append(errs, "templateDir: must not be empty")
	}
	if strings.TrimSpace(cfg.PipeInstanceName) == "" {
		errs = append(errs, "pipeInstanceName: must not be empty")
	}
	if !strings.HasPrefix(cfg.ForwardedHeaderOrg, "X-") {
		errs = append(errs, fmt.Sprintf("forwardedHeaderOrg: must start with \"X-\", got %q", cfg.ForwardedHeaderOrg))
	}

	if cfg.InlineTimeout <= 0 {
		errs = append(errs, "inlineTimeout: must be positive")
	}
	if cfg.AsyncTimeout <= 0 {
		errs = append(errs, "asyncTimeout: must be positive")
	}
	if cfg.ContextFetchTimeout <= 0 {
		errs = append(errs, "contextFetchTimeout: must be positive")
	}

	if cfg.OutboundAllowlistEnabled {
		if len(cfg.OutboundAllowedHosts) == 0 && len(cfg.OutboundAllowedCIDRs) == 0 {
			errs = append(errs, "outboundAllowedHosts/outboundAllowedCIDRs: at least one must be set when outboundAllowlistEnabled is true")
		}
		for _, c := range cfg.OutboundAllowedCIDRs {
			if _, _, err := net.ParseCIDR(c); err != nil {
				errs = append(errs, fmt.Sprintf("outboundAllowedCIDRs: invalid CIDR %q", c))
			}
		}
		for _, s := range cfg.OutboundAllowedSchemes {
			if s != "http" && s != "https" {
				errs = append(errs, fmt.Sprintf("outboundAllowedSchemes: unsupported scheme %q", s))
			}
		}
	}
	if cfg.OutboundRatePerHost <= 0 {
		errs = append(errs, "outboundRatePerHost: must be positive")
	}

	if cfg.RateLimitEnabled {
		if cfg.RateLimitRPS <= 0 {
			errs = append(errs, "rateLimitRPS: must be positive when rateLimitEnabled is true")
		}
		for _, entry := range cfg.RateLimitWhitelist {
			if !validIPOrCIDR(entry) {
				errs = append(errs, fmt.Sprintf("rateLimitWhitelist: %q is not a valid IP or CIDR", entry))
			}
		}
	}

	for _, c := range cfg.TrustedProxyCIDRs {
		if _, _, err := net.ParseCIDR(c); err != nil {
			errs = append(errs, fmt.Sprintf("trustedProxyCIDRs: invalid CIDR %q", c))
		}
	}

	if (cfg.TLSCert == "") != (cfg.TLSKey == "") {
		errs = append(errs, "tlsCert/tlsKey: both or neither must be set")
	}

	if cfg.TemplateCacheTTL < 0 {
		errs = append(errs, "templateCacheTTL: must not be negative")
	}
	if cfg.ContextCacheTTL < 0 {
		errs = append(errs, "contextCacheTTL: must not be negative")
	}

	if cfg.AuditEnabled && strings.TrimSpace(cfg.AuditDBPath) == "" {
		errs = append(errs, "auditDBPath: must be set when auditEnabled is true")
	}

	if len(errs) > 0 {
		return fmt.Errorf("invalid configuration:\n  - %s", strings.Join(errs, "\n  - "))
	}
	return nil
}

func validIPOrCIDR(entry string) bool {
	entry = strings.TrimSpace(entry)
	if entry == "" {
		return false
	}
	if net.ParseIP(entry) != nil {
		return true
	}
	_, _, err := net.ParseCIDR(entry)
	return err == nil
}
