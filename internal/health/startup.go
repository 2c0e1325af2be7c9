// SPDX-License-Identifier: MIT

package health

import (
	"context"
	"fmt"
	"net"
	"os"
	"strconv"

	"github.com/harborlane/layoutd/internal/config"
	"github.com/harborlane/layoutd/internal/log"
	"github.com/rs/zerolog"
)

// PerformStartupChecks validates the environment and configuration before
// the composition server starts accepting traffic.
func PerformStartupChecks(ctx context.Context, cfg config.Config) error {
	logger := log.WithComponent("startup-check")
	logger.Info().Msg("running pre-flight startup checks")

	if err := checkTemplateDir(logger, cfg.TemplateDir); err != nil {
		return fmt.Errorf("template directory check failed: %w", err)
	}
	if err := checkListenAddr(logger, cfg.ListenAddr); err != nil {
		return fmt.Errorf("listen address check failed: %w", err)
	}
	if err := checkOutboundAllowlist(logger, cfg); err != nil {
		return fmt.Errorf("outbound allowlist check failed: %w", err)
	}
	if err := checkTLSPair(logger, cfg.TLSCert, cfg.TLSKey); err != nil {
		return fmt.Errorf("TLS configuration check failed: %w", err)
	}

	logger.Info().Msg("all startup checks passed")
	return nil
}

func checkTemplateDir(logger zerolog.Logger, path string) error {
	if path == "" {
		return fmt.Errorf("template directory not configured")
	}
	info, err := os.Stat(path)
	if err != nil {
		if os.IsNotExist(err) {
			return fmt.Errorf("directory does not exist: %s", path)
		}
		return err
	}
	if !info.IsDir() {
		return fmt.Errorf("path is not a directory: %s", path)
	}
	logger.Info().Str("path", path).Msg("template directory is readable")
	return nil
}

func checkListenAddr(logger zerolog.Logger, addr string) error {
	if addr == "" {
		return fmt.Errorf("listen address not configured")
	}
	_, port, err := net.SplitHostPort(addr)
	if err != nil {
		return fmt.Errorf("invalid listen address %q: %w", addr, err)
	}
	portNum, err := strconv.Atoi(port)
	if err != nil || portNum < 0 || portNum > 65535 {
		return fmt.Errorf("invalid listen port %q in %q", port, addr)
	}
	logger.Info().Str("addr", addr).Msg("listen address is valid")
	return nil
}

func checkOutboundAllowlist(logger zerolog.Logger, cfg config.Config) error {
	if !cfg.OutboundAllowlistEnabled {
		logger.Warn().Msg("outbound allowlist disabled; fragment fetches may reach any host (SSRF exposure)")
		return nil
	}
	if len(cfg.OutboundAllowedHosts) == 0 && len(cfg.OutboundAllowedCIDRs) == 0 {
		return fmt.Errorf("outbound allowlist enabled but no hosts or CIDRs configured")
	}
	logger.Info().
		Int("hosts", len(cfg.OutboundAllowedHosts)).
		Int("cidrs", len(cfg.OutboundAllowedCIDRs)).
		Msg("outbound allowlist configured")
	return nil
}

func checkTLSPair(logger zerolog.Logger, cert, key string) error {
	if cert == "" && key == "" {
		return nil
	}
	if cert == "" || key == "" {
		return fmt.Errorf("TLS configuration requires both cert and key to be set")
	}
	if err := checkFileReadable(cert); err != nil {
		return fmt.Errorf("TLS cert error: %w", err)
	}
	if err := checkFileReadable(key); err != nil {
		return fmt.Errorf("TLS key error: %w", err)
	}
	logger.Info().Msg("TLS configuration is valid")
	return nil
}

func checkFileReadable(path string) error {
	f, err := os.Open(path) // #nosec G304 -- path comes from operator config
	if err != nil {
		return err
	}
	return f.Close()
}

