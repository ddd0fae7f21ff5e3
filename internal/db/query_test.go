package db

import (
	"reflect"
	"testing"
)

func TestTagFilter(t *testing.T) {
	tests := []struct {
		value string
		want  string
	}{
		{"acoustics", "@project_id:{acoustics}"},
		{"school-2024", `@project_id:{school\-2024}`},
		{"a b.c", `@project_id:{a\ b\.c}`},
	}
	for _, tt := range tests {
		if got := TagFilter("project_id", tt.value); got != tt.want {
			t.Errorf("TagFilter(%q) = %q, want %q", tt.value, got, tt.want)
		}
	}
}

func TestTextMatch(t *testing.T) {
	tests := []struct {
		name, in, want string
	}{
		{"words are intersected", "classroom acoustics, reverberation?", "@searchable_text:(classroom acoustics reverberation)"},
		{"quoted phrase", `"open plan" offices`, `@searchable_text:("open plan" offices)`},
		{"negated word", `"open plan" -office`, `@searchable_text:("open plan" -office)`},
		{"negated phrase", `daylight -"north facing"`, `@searchable_text:(daylight -"north facing")`},
		{"or between groups", "daylight glare or acoustics", "@searchable_text:((daylight glare) | acoustics)"},
		{"or is case insensitive", "glare OR acoustics", "@searchable_text:(glare | acoustics)"},
		{"single word phrase", `"acoustics"`, "@searchable_text:(acoustics)"},
		{"unterminated quote", `"mass timber`, `@searchable_text:("mass timber")`},
		{"inner dash escaped", "co-op housing", `@searchable_text:(co\-op housing)`},
		{"lone dash dropped", "timber - carbon", "@searchable_text:(timber carbon)"},
		{"dangling or dropped", "or timber or", "@searchable_text:(timber)"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := TextMatch("searchable_text", tt.in); got != tt.want {
				t.Errorf("TextMatch(%q) = %q, want %q", tt.in, got, tt.want)
			}
		})
	}

	for _, blank := range []string{"", "  ,. ", "or", `""`, "-"} {
		if got := TextMatch("f", blank); got != "" {
			t.Errorf("TextMatch(%q) = %q, want empty clause", blank, got)
		}
	}
}

func TestInfixMatch(t *testing.T) {
	if got := InfixMatch("searchable_text", " Acoustic "); got != "@searchable_text:(*acoustic*)" {
		t.Errorf("InfixMatch() = %q", got)
	}
	if got := InfixMatch("f", "co-op"); got != `@f:(*co\-op*)` {
		t.Errorf("InfixMatch() escaping = %q", got)
	}
	if InfixMatch("f", "   ") != "" {
		t.Error("expected empty clause for blank term")
	}
}

func TestTerms(t *testing.T) {
	got := Terms("hello (world) foo@bar")
	want := []string{"hello", `\(world\)`, `foo\@bar`}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("Terms() = %v, want %v", got, want)
	}
}

func TestAnd(t *testing.T) {
	if got := And("", "@a:{x}", "", "@b:(y)"); got != "@a:{x} @b:(y)" {
		t.Errorf("And() = %q", got)
	}
	if got := And("", ""); got != "*" {
		t.Errorf("And() of nothing = %q, want *", got)
	}
}

func TestEscapeQuery(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{"simple", "simple"},
		{"hello-world", `hello\-world`},
		{"a@b", `a\@b`},
		{"x|y", `x\|y`},
		{`back\slash`, `back\\slash`},
		{"ratio:2", `ratio\:2`},
	}
	for _, tt := range tests {
		if got := EscapeQuery(tt.in); got != tt.want {
			t.Errorf("EscapeQuery(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}
