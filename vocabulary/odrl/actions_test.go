package odrl

import (
	"testing"
)

func TestActionSubsumes(t *testing.T) {
	tests := []struct {
		name string
		a, b Action
		want bool
	}{
		{"action subsumes itself", ActionRead, ActionRead, true},
		{"use subsumes read", ActionUse, ActionRead, true},
		{"use subsumes transitively", ActionUse, ActionShare, true},
		{"distribute subsumes share", ActionDistribute, ActionShare, true},
		{"distribute subsumes sell", ActionDistribute, ActionSell, true},
		{"modify subsumes adapt", ActionModify, ActionAdapt, true},
		{"read does not subsume use", ActionRead, ActionUse, false},
		{"siblings do not subsume", ActionRead, ActionModify, false},
		{"share does not subsume sell", ActionShare, ActionSell, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.a.Subsumes(tt.b); got != tt.want {
				t.Errorf("%s.Subsumes(%s) = %v, want %v", tt.a, tt.b, got, tt.want)
			}
		})
	}
}

func TestActionIsValid(t *testing.T) {
	for _, a := range Actions() {
		if !a.IsValid() {
			t.Errorf("expected %s to be valid", a)
		}
	}
	if Action("download").IsValid() {
		t.Error("expected download to be invalid")
	}
	if Action("").IsValid() {
		t.Error("expected empty action to be invalid")
	}
}

func TestParseAction(t *testing.T) {
	if a, ok := ParseAction("read"); !ok || a != ActionRead {
		t.Errorf("ParseAction(read) = %v, %v", a, ok)
	}
	if _, ok := ParseAction("teleport"); ok {
		t.Error("expected teleport to be rejected")
	}
}

func TestActionIRI(t *testing.T) {
	if got := ActionRead.IRI(); got != "http://www.w3.org/ns/odrl/2/read" {
		t.Errorf("unexpected IRI: %s", got)
	}
}
