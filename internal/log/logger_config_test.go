// SPDX-License-Identifier: MIT

package log

import (
	"testing"

	"github.com/rs/zerolog"
)

func TestWithComponent(t *testing.T) {
	l := WithComponent("fetcher")
	if l.GetLevel() > zerolog.PanicLevel {
		t.Fatal("expected a usable logger")
	}
}

func TestDeriveWithNilBuilder(t *testing.T) {
	l := Derive(nil)
	if l.GetLevel() > zerolog.PanicLevel {
		t.Fatal("expected a usable logger")
	}
}

func TestBaseReturnsConfiguredLogger(t *testing.T) {
	l := Base()
	if l.GetLevel() > zerolog.PanicLevel {
		t.Fatal("expected a usable logger")
	}
}
