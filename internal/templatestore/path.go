// SPDX-License-Identifier: MIT

package templatestore

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"golang.org/x/text/unicode/norm"
)

var (
	errNotFound    = errors.New("templatestore: not found")
	errPathEscape  = errors.New("templatestore: path escapes template directory")
	errIsDirectory = errors.New("templatestore: path is a directory")
)

// resolve turns a request path into an absolute, symlink-resolved file path
// strictly beneath dir, rejecting any traversal or escape attempt.
func resolve(dir, requestPath string) (string, error) {
	absDir, err := filepath.Abs(dir)
	if err != nil {
		return "", fmt.Errorf("resolve template dir: %w", err)
	}

	clean := filepath.Clean(strings.TrimPrefix(requestPath, "/"))
	fullPath := filepath.Join(absDir, clean)

	realPath, err := filepath.EvalSymlinks(fullPath)
	if err != nil {
		if os.IsNotExist(err) {
			return fullPath, fmt.Errorf("%w: %s", errNotFound, fullPath)
		}
		return fullPath, fmt.Errorf("eval symlinks: %w", err)
	}

	realDir, err := filepath.EvalSymlinks(absDir)
	if err != nil {
		return realPath, fmt.Errorf("eval symlinks for template dir: %w", err)
	}

	rel, err := filepath.Rel(realDir, realPath)
	if err != nil || strings.HasPrefix(rel, "..") || filepath.IsAbs(rel) {
		return realPath, fmt.Errorf("%w: %s", errPathEscape, realPath)
	}

	info, err := os.Stat(realPath)
	if err != nil {
		if os.IsNotExist(err) {
			return realPath, fmt.Errorf("%w: %s", errNotFound, realPath)
		}
		return realPath, fmt.Errorf("stat: %w", err)
	}
	if info.IsDir() {
		return realPath, fmt.Errorf("%w: %s", errIsDirectory, realPath)
	}

	return realPath, nil
}

// cacheKey normalizes a request path to NFC so visually identical paths that
// differ only in Unicode composition (e.g. a decomposed vs. precomposed
// accented character) share one singleflight/metadata entry.
func cacheKey(requestPath string) string {
	return norm.NFC.String(requestPath)
}
