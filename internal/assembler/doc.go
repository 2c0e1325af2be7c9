// SPDX-License-Identifier: MIT

// Package assembler linearizes a template event stream and its fragments'
// resolved bodies into one ordered byte stream, parking async fragments
// until after the template's closing event.
package assembler
