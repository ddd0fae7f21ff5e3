package llmjson

import (
	"encoding/json"
	"testing"

	"pgregory.net/rapid"
)

type verdict struct {
	Relevant bool     `json:"relevant"`
	IDs      []string `json:"ids"`
}

func TestExtract(t *testing.T) {
	tests := []struct {
		name   string
		input  string
		want   string
		wantOK bool
	}{
		{"bare", `{"a":1}`, `{"a":1}`, true},
		{"fenced json", "```json\n{\"a\":1}\n```", `{"a":1}`, true},
		{"fenced plain", "```\n{\"a\":1}\n```", `{"a":1}`, true},
		{"prose around", `Sure! Here it is: {"a":1} hope that helps {"b":2}`, `{"a":1}`, true},
		{"nested", `x {"a":{"b":[1,{"c":2}]}} y`, `{"a":{"b":[1,{"c":2}]}}`, true},
		{"brace in string", `{"a":"}{", "b":"\"}"}`, `{"a":"}{", "b":"\"}"}`, true},
		{"no object", "I could not decide.", "", false},
		{"unbalanced", `{"a":1`, "", false},
		{"fence without object", "```json\nnope\n``` then {\"a\":2}", `{"a":2}`, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := Extract(tt.input)
			if ok != tt.wantOK {
				t.Fatalf("Extract() ok = %v, want %v", ok, tt.wantOK)
			}
			if got != tt.want {
				t.Errorf("Extract() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestParseOrDefault(t *testing.T) {
	def := verdict{IDs: []string{"fallback"}}

	got, ok := ParseOrDefault("```json\n{\"relevant\":true,\"ids\":[\"b1\"]}\n```", def)
	if !ok {
		t.Fatal("expected parse success")
	}
	if !got.Relevant || len(got.IDs) != 1 || got.IDs[0] != "b1" {
		t.Errorf("ParseOrDefault() = %+v", got)
	}

	got, ok = ParseOrDefault("the model refused", def)
	if ok {
		t.Fatal("expected parse failure")
	}
	if len(got.IDs) != 1 || got.IDs[0] != "fallback" {
		t.Errorf("expected default, got %+v", got)
	}

	// Shape mismatch counts as failure.
	if _, ok := ParseOrDefault(`{"relevant":"yes"}`, def); ok {
		t.Error("expected type mismatch to fail")
	}
}

func TestExtract_RoundTripsEmbeddedObjects(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		v := verdict{
			Relevant: rapid.Bool().Draw(t, "relevant"),
			IDs:      rapid.SliceOf(rapid.String()).Draw(t, "ids"),
		}
		b, err := json.Marshal(v)
		if err != nil {
			t.Fatalf("marshal: %v", err)
		}
		prefix := rapid.StringMatching(`[a-zA-Z .:!\n]*`).Draw(t, "prefix")
		suffix := rapid.StringMatching(`[a-zA-Z .:!\n]*`).Draw(t, "suffix")

		got, ok := ParseOrDefault(prefix+string(b)+suffix, verdict{})
		if !ok {
			t.Fatalf("failed to parse %q", prefix+string(b)+suffix)
		}
		if got.Relevant != v.Relevant || len(got.IDs) != len(v.IDs) {
			t.Fatalf("got %+v, want %+v", got, v)
		}
		for i := range v.IDs {
			if got.IDs[i] != v.IDs[i] {
				t.Fatalf("ids[%d] = %q, want %q", i, got.IDs[i], v.IDs[i])
			}
		}
	})
}
