package featureflags

import "testing"

func TestEnabled_BooleanValues(t *testing.T) {
	m := NewManager("a=on,b=off,c=true,d=false,e=1,f=0")

	if !m.Enabled("a", "") || !m.Enabled("c", "") || !m.Enabled("e", "") {
		t.Fatal("expected enabled boolean values to evaluate true")
	}
	if m.Enabled("b", "") || m.Enabled("d", "") || m.Enabled("f", "") {
		t.Fatal("expected disabled boolean values to evaluate false")
	}
	if m.Enabled("missing", "") {
		t.Fatal("unknown flags must be disabled")
	}
}

func TestEnabled_PercentageValues(t *testing.T) {
	m := NewManager("always=100%,never=0%,canary=25%,broken=x%")

	if !m.Enabled("always", "") {
		t.Fatal("100% rollout should always be enabled")
	}
	if m.Enabled("never", "10.0.0.1") {
		t.Fatal("0% rollout should always be disabled")
	}
	if m.Enabled("broken", "10.0.0.1") {
		t.Fatal("unparseable percentage should be disabled")
	}

	first := m.Enabled("canary", "10.0.0.1")
	for i := 0; i < 5; i++ {
		if got := m.Enabled("canary", "10.0.0.1"); got != first {
			t.Fatal("rollout evaluation must be deterministic per subject")
		}
	}

	if m.Enabled("canary", "") {
		t.Fatal("percentage rollout requires a subject")
	}
}

func TestParseAndSnapshot(t *testing.T) {
	m := NewManager(" bad ,x=on, Y = 20% ,z=off,=on ")

	raw := m.Raw()
	if len(raw) != 3 {
		t.Fatalf("expected 3 parsed flags, got %d", len(raw))
	}
	if raw["x"] != "on" || raw["y"] != "20%" || raw["z"] != "off" {
		t.Fatalf("unexpected raw flags: %#v", raw)
	}
	if !m.IsSet("Y") || m.IsSet("bad") {
		t.Fatal("IsSet should follow normalized configured keys")
	}

	snap := m.Snapshot("client-1")
	if len(snap) != 3 {
		t.Fatalf("expected snapshot size 3, got %d", len(snap))
	}
	if !snap["x"] || snap["z"] {
		t.Fatalf("unexpected snapshot: %#v", snap)
	}
}

func TestNilManager(t *testing.T) {
	var m *Manager
	if m.Enabled(CascadeTransactions, "") || m.IsSet(EventFeed) {
		t.Fatal("nil manager must report everything disabled")
	}
	if len(m.Raw()) != 0 || len(m.Snapshot("")) != 0 {
		t.Fatal("nil manager must return empty maps")
	}
}
