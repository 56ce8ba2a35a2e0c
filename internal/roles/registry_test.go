package roles

import "testing"

func TestRegistryValidIsCaseInsensitive(t *testing.T) {
	reg, err := NewRegistry(Defaults())
	if err != nil {
		t.Fatalf("registry: %v", err)
	}
	for _, code := range []string{"ADMIN", "admin", " Admin "} {
		if !reg.Valid(code) {
			t.Fatalf("expected %q to be valid", code)
		}
	}
	if reg.Valid("BOGUS_ROLE") {
		t.Fatal("expected unknown code to be invalid")
	}
}

func TestRegistryPreservesDeclarationOrder(t *testing.T) {
	reg, err := NewRegistry([]Role{{Code: "zulu"}, {Code: "Alpha"}, {Code: "MIKE"}})
	if err != nil {
		t.Fatalf("registry: %v", err)
	}
	codes := reg.Codes()
	want := []string{"ZULU", "ALPHA", "MIKE"}
	if len(codes) != len(want) {
		t.Fatalf("expected %d codes, got %d", len(want), len(codes))
	}
	for i := range want {
		if codes[i] != want[i] {
			t.Fatalf("expected %s at %d, got %s", want[i], i, codes[i])
		}
	}
}

func TestRegistryRejectsDuplicates(t *testing.T) {
	if _, err := NewRegistry([]Role{{Code: "ADMIN"}, {Code: "admin"}}); err == nil {
		t.Fatal("expected duplicate code error")
	}
}

func TestParseSpec(t *testing.T) {
	reg, err := ParseSpec("ADMIN:Server administrator, cas : CAS pilot")
	if err != nil {
		t.Fatalf("parse spec: %v", err)
	}
	role, ok := reg.Lookup("CAS")
	if !ok {
		t.Fatal("expected CAS to resolve")
	}
	if role.Description != "CAS pilot" {
		t.Fatalf("unexpected description %q", role.Description)
	}

	def, err := ParseSpec("  ")
	if err != nil {
		t.Fatalf("parse empty spec: %v", err)
	}
	if len(def.Codes()) != len(Defaults()) {
		t.Fatal("empty spec should fall back to defaults")
	}
}
