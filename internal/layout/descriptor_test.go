// SPDX-License-Identifier: MIT

package layout

import "testing"

func TestMerge_DoesNotMutateInputs(t *testing.T) {
	raw := map[string]string{"src": "https://default/no", "primary": ""}
	override := map[string]string{"src": "https://fragment/yes", "primary": "false", "async": "true"}

	merged := Merge(raw, override)

	if merged["src"] != "https://fragment/yes" {
		t.Errorf("expected override src to win, got %q", merged["src"])
	}
	if _, ok := raw["async"]; ok {
		t.Fatalf("Merge must not mutate raw map, got %+v", raw)
	}
	if raw["src"] != "https://default/no" {
		t.Errorf("raw map was mutated: %+v", raw)
	}
}

func TestBuildDescriptor_DefaultTimeouts(t *testing.T) {
	inline := BuildDescriptor(0, map[string]string{"src": "https://f/1"}, nil, 1000, 10000)
	if inline.TimeoutMs != 1000 {
		t.Errorf("expected inline default 1000ms, got %d", inline.TimeoutMs)
	}

	async := BuildDescriptor(1, map[string]string{"src": "https://f/2", "async": ""}, nil, 1000, 10000)
	if !async.Async {
		t.Fatalf("expected async=true")
	}
	if async.TimeoutMs != 10000 {
		t.Errorf("expected async default 10000ms, got %d", async.TimeoutMs)
	}
}

func TestBuildDescriptor_ExplicitTimeoutOverridesDefault(t *testing.T) {
	d := BuildDescriptor(0, map[string]string{"src": "https://f/1", "timeout": "100"}, nil, 1000, 10000)
	if d.TimeoutMs != 100 {
		t.Errorf("expected explicit timeout 100, got %d", d.TimeoutMs)
	}
}

func TestBuildDescriptor_AsyncFalseValueDisables(t *testing.T) {
	d := BuildDescriptor(0, map[string]string{"src": "https://f/1", "async": "false"}, nil, 1000, 10000)
	if d.Async {
		t.Errorf("expected async=false when attribute value is \"false\"")
	}
}

func TestBuildDescriptor_ContextOverrideChangesBehaviorWithoutMutatingRaw(t *testing.T) {
	raw := map[string]string{"async": "false", "primary": "", "id": "f-1", "src": "https://default/no"}
	override := map[string]string{"src": "https://fragment/yes", "primary": "false", "async": "true"}

	overridden := BuildDescriptor(0, raw, override, 1000, 10000)
	if overridden.Primary || !overridden.Async || overridden.Src != "https://fragment/yes" {
		t.Fatalf("unexpected overridden descriptor: %+v", overridden)
	}

	restored := BuildDescriptor(0, raw, nil, 1000, 10000)
	if !restored.Primary || restored.Async || restored.Src != "https://default/no" {
		t.Fatalf("raw attrs were mutated by prior merge: %+v", restored)
	}
}
