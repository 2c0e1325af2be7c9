// SPDX-License-Identifier: MIT

package config

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func validConfig() Config {
	cfg := Default()
	cfg.OutboundAllowlistEnabled = true
	cfg.OutboundAllowedHosts = []string{"fragment.example.com"}
	return cfg
}

func TestValidate_DefaultsAreValid(t *testing.T) {
	require.NoError(t, Validate(validConfig()))
}

func TestValidate_RejectsEmptyListenAddr(t *testing.T) {
	cfg := validConfig()
	cfg.ListenAddr = ""
	require.Error(t, Validate(cfg))
}

func TestValidate_RejectsOutboundAllowlistWithNoEntries(t *testing.T) {
	cfg := validConfig()
	cfg.OutboundAllowedHosts = nil
	cfg.OutboundAllowedCIDRs = nil
	require.Error(t, Validate(cfg))
}

func TestValidate_AllowsDisabledOutboundAllowlistWithNoEntries(t *testing.T) {
	cfg := validConfig()
	cfg.OutboundAllowlistEnabled = false
	cfg.OutboundAllowedHosts = nil
	cfg.OutboundAllowedCIDRs = nil
	require.NoError(t, Validate(cfg))
}

func TestValidate_RejectsBadCIDR(t *testing.T) {
	cfg := validConfig()
	cfg.OutboundAllowedCIDRs = []string{"not-a-cidr"}
	require.Error(t, Validate(cfg))
}

func TestValidate_RejectsMismatchedTLSPair(t *testing.T) {
	cfg := validConfig()
	cfg.TLSCert = "/tmp/cert.pem"
	cfg.TLSKey = ""
	require.Error(t, Validate(cfg))
}

func TestValidate_RejectsInvalidRateLimitWhitelistEntry(t *testing.T) {
	cfg := validConfig()
	cfg.RateLimitWhitelist = []string{"not-an-ip"}
	require.Error(t, Validate(cfg))
}

func TestValidate_RejectsAuditEnabledWithoutPath(t *testing.T) {
	cfg := validConfig()
	cfg.AuditEnabled = true
	cfg.AuditDBPath = ""
	require.Error(t, Validate(cfg))
}
