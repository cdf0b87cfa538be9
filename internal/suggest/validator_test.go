package suggest

import (
	"strings"
	"testing"
)

func TestParseVerdict(t *testing.T) {
	cases := []struct {
		name string
		raw  string
		want bool
	}{
		{"bare json", `{"SameEvent": true, "Reason": "same race"}`, true},
		{"negative", `{"SameEvent": false, "Reason": "different deadlines"}`, false},
		{"fenced", "```json\n{\"SameEvent\": true, \"Reason\": \"ok\"}\n```", true},
		{"chatty preamble", "Sure, here is the verdict:\n{\"SameEvent\": false, \"Reason\": \"different entities\"}", false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			outcome, err := parseVerdict(tc.raw)
			if err != nil {
				t.Fatalf("parse: %v", err)
			}
			if outcome.SameEvent != tc.want {
				t.Errorf("SameEvent = %v, want %v", outcome.SameEvent, tc.want)
			}
			if outcome.Reason == "" {
				t.Error("reason not carried through")
			}
		})
	}
}

func TestParseVerdictRejectsNonJSON(t *testing.T) {
	if _, err := parseVerdict("I cannot decide."); err == nil {
		t.Error("plain-text answer accepted")
	}
	if _, err := parseVerdict(""); err == nil {
		t.Error("empty answer accepted")
	}
}

func TestVerdictKeyIsOrderIndependent(t *testing.T) {
	a, b := "Zohran wins NYC", "NYC Mayor: Zohran"
	if verdictKey(a, b) != verdictKey(b, a) {
		t.Error("key depends on label order")
	}
	if verdictKey(a, b) == verdictKey(a, "something else") {
		t.Error("distinct pairs share a key")
	}
}

func TestNewValidatorRequiresClient(t *testing.T) {
	_, err := NewValidator(nil, nil)
	if err == nil || !strings.Contains(err.Error(), "required") {
		t.Errorf("error = %v", err)
	}
}
