// SPDX-License-Identifier: MIT

package upstream

import (
	"reflect"
	"testing"
)

func TestExtractAssetHints(t *testing.T) {
	css, script := extractAssetHints(`<http://link>; rel="stylesheet",<http://link2>; rel="fragment-script"`)
	if !reflect.DeepEqual(css, []string{"http://link"}) {
		t.Errorf("unexpected css links: %v", css)
	}
	if script != "http://link2" {
		t.Errorf("unexpected script link: %q", script)
	}
}

func TestExtractAssetHints_MultipleStylesheetsOrderPreserved(t *testing.T) {
	css, _ := extractAssetHints(`<http://a>; rel="stylesheet", <http://b>; rel="stylesheet"`)
	if !reflect.DeepEqual(css, []string{"http://a", "http://b"}) {
		t.Errorf("expected order preserved, got %v", css)
	}
}

func TestExtractAssetHints_FirstScriptLinkWins(t *testing.T) {
	_, script := extractAssetHints(`<http://first>; rel="fragment-script", <http://second>; rel="fragment-script"`)
	if script != "http://first" {
		t.Errorf("expected first fragment-script link to win, got %q", script)
	}
}

func TestExtractAssetHints_CombinesBothHeaders(t *testing.T) {
	css, script := extractAssetHints(
		`<http://link>; rel="stylesheet"`,
		`<http://link2>; rel="fragment-script"`,
	)
	if len(css) != 1 || css[0] != "http://link" {
		t.Errorf("unexpected css links: %v", css)
	}
	if script != "http://link2" {
		t.Errorf("unexpected script link: %q", script)
	}
}

func TestExtractAssetHints_IgnoresOtherRels(t *testing.T) {
	css, script := extractAssetHints(`<http://x>; rel="preload"`)
	if len(css) != 0 || script != "" {
		t.Errorf("expected no hints, got css=%v script=%q", css, script)
	}
}
