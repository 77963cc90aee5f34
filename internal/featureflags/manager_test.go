package featureflags

import "testing"

func TestEnabled_BooleanValues(t *testing.T) {
	m := NewManager("a=on,b=off,c=true,d=false,e=1,f=0")

	if !m.Enabled("a", 1) || !m.Enabled("c", 1) || !m.Enabled("e", 1) {
		t.Fatal("expected enabled boolean values to evaluate true")
	}
	if m.Enabled("b", 1) || m.Enabled("d", 1) || m.Enabled("f", 1) {
		t.Fatal("expected disabled boolean values to evaluate false")
	}
	if m.Enabled("missing", 1) {
		t.Fatal("unknown flags are off")
	}
}

func TestEnabled_PercentageValues(t *testing.T) {
	m := NewManager("always=100%,never=0%,canary=25%,junk=x%")

	if !m.Enabled("always", 1) {
		t.Fatal("100% rollout should always be enabled")
	}
	if m.Enabled("never", 1) {
		t.Fatal("0% rollout should always be disabled")
	}
	if m.Enabled("junk", 1) {
		t.Fatal("malformed percentage should be disabled")
	}

	first := m.Enabled("canary", 42)
	for i := 0; i < 5; i++ {
		if got := m.Enabled("canary", 42); got != first {
			t.Fatal("rollout evaluation must be deterministic per user")
		}
	}

	if m.Enabled("canary", 0) {
		t.Fatal("percentage rollout requires non-zero userID")
	}
}

func TestDefaults(t *testing.T) {
	m := NewManager("")
	if !m.Enabled(Markdown, 0) || !m.Enabled(Registration, 0) {
		t.Fatal("known flags default to on")
	}

	m = NewManager("registration=off, MARKDOWN = Off")
	if m.Enabled(Registration, 7) {
		t.Fatal("registration should be closed")
	}
	if m.Enabled(Markdown, 7) {
		t.Fatal("flag names and values are case-insensitive")
	}

	var nilManager *Manager
	if !nilManager.Enabled(Markdown, 1) {
		t.Fatal("nil manager should use defaults")
	}
}

func TestRaw(t *testing.T) {
	m := NewManager(" bad ,x=on, y = 20% ,z=off ")

	raw := m.Raw()
	if len(raw) != 3+len(defaults) {
		t.Fatalf("expected %d flags, got %d", 3+len(defaults), len(raw))
	}
	if raw["x"] != "on" || raw["y"] != "20%" || raw["z"] != "off" || raw[Markdown] != "on" {
		t.Fatalf("unexpected raw flags: %#v", raw)
	}

	raw["x"] = "off"
	if !m.Enabled("x", 1) {
		t.Fatal("Raw must return a copy")
	}
}
