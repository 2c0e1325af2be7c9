// SPDX-License-Identifier: MIT

// Package templatestore is the default coordinator.TemplateFetcher: a
// directory of template files on disk, hot-reloaded via fsnotify, with a
// Badger-backed metadata index and singleflight-deduplicated loads so a
// burst of requests for the same path during a cold cache never issues more
// than one disk read.
package templatestore
