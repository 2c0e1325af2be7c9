// SPDX-License-Identifier: MIT

// Package config resolves the composition server's runtime configuration
// with precedence ENV > YAML file > defaults, and supports hot reload of
// the YAML file via fsnotify.
package config
