package db

import (
	"fmt"
	"strings"
	"unicode"
)

// TagFilter builds an exact-match TAG clause: @field:{value}.
func TagFilter(field, value string) string {
	return fmt.Sprintf("@%s:{%s}", field, tagEscaper.Replace(value))
}

// TextMatch builds a full-text clause over field from web-search style text,
// the same dialect as Postgres websearch_to_tsquery: words are intersected,
// "quoted text" is a phrase, a leading - excludes a word or phrase and a bare
// "or" between operands makes a union.
func TextMatch(field, text string) string {
	var (
		groups [][]string
		cur    []string
	)
	for _, tok := range webTokens(text) {
		if tok.or {
			if len(cur) > 0 {
				groups = append(groups, cur)
				cur = nil
			}
			continue
		}
		if op := tok.operand(); op != "" {
			cur = append(cur, op)
		}
	}
	if len(cur) > 0 {
		groups = append(groups, cur)
	}
	if len(groups) == 0 {
		return ""
	}

	alts := make([]string, len(groups))
	for i, g := range groups {
		alts[i] = strings.Join(g, " ")
		if len(groups) > 1 && len(g) > 1 {
			alts[i] = "(" + alts[i] + ")"
		}
	}
	return fmt.Sprintf("@%s:(%s)", field, strings.Join(alts, " | "))
}

type webToken struct {
	text   string
	phrase bool
	negate bool
	or     bool
}

// operand renders the token as an escaped query operand, "" when nothing is left.
func (t webToken) operand() string {
	terms := Terms(t.text)
	if len(terms) == 0 {
		return ""
	}
	var op string
	switch {
	case t.phrase && len(terms) > 1:
		op = `"` + strings.Join(terms, " ") + `"`
	case len(terms) > 1:
		op = "(" + strings.Join(terms, " ") + ")"
	default:
		op = terms[0]
	}
	if t.negate {
		return "-" + op
	}
	return op
}

// webTokens splits text into words and quoted phrases. An unterminated quote
// runs to the end of the text.
func webTokens(text string) []webToken {
	var out []webToken
	rs := []rune(text)
	for i := 0; i < len(rs); {
		if unicode.IsSpace(rs[i]) {
			i++
			continue
		}
		negate := false
		if rs[i] == '-' {
			negate = true
			i++
			if i == len(rs) || unicode.IsSpace(rs[i]) {
				continue
			}
		}
		if rs[i] == '"' {
			end := i + 1
			for end < len(rs) && rs[end] != '"' {
				end++
			}
			out = append(out, webToken{text: string(rs[i+1 : end]), phrase: true, negate: negate})
			i = min(end+1, len(rs))
			continue
		}
		end := i
		for end < len(rs) && !unicode.IsSpace(rs[end]) && rs[end] != '"' {
			end++
		}
		word := string(rs[i:end])
		i = end
		if !negate && strings.EqualFold(word, "or") {
			out = append(out, webToken{or: true})
			continue
		}
		out = append(out, webToken{text: word, negate: negate})
	}
	return out
}

// InfixMatch builds a case-insensitive substring clause: @field:(*term*).
func InfixMatch(field, term string) string {
	term = strings.ToLower(strings.TrimSpace(term))
	if term == "" {
		return ""
	}
	return fmt.Sprintf("@%s:(*%s*)", field, EscapeQuery(term))
}

// Terms splits free text into escaped query terms, dropping empty tokens.
func Terms(text string) []string {
	fields := strings.FieldsFunc(text, func(r rune) bool {
		return r == ' ' || r == '\t' || r == '\n' || r == ',' || r == '.' || r == '?' || r == '!'
	})
	out := make([]string, 0, len(fields))
	for _, f := range fields {
		if f = EscapeQuery(f); f != "" {
			out = append(out, f)
		}
	}
	return out
}

// And joins non-empty clauses with implicit intersection.
func And(clauses ...string) string {
	parts := make([]string, 0, len(clauses))
	for _, c := range clauses {
		if c != "" {
			parts = append(parts, c)
		}
	}
	if len(parts) == 0 {
		return "*"
	}
	return strings.Join(parts, " ")
}

// EscapeQuery escapes FT.SEARCH query syntax characters.
func EscapeQuery(s string) string {
	return queryEscaper.Replace(s)
}

var tagEscaper = strings.NewReplacer(
	",", "\\,",
	".", "\\.",
	"<", "\\<",
	">", "\\>",
	"{", "\\{",
	"}", "\\}",
	"\"", "\\\"",
	"'", "\\'",
	":", "\\:",
	";", "\\;",
	"!", "\\!",
	"@", "\\@",
	"#", "\\#",
	"$", "\\$",
	"%", "\\%",
	"^", "\\^",
	"&", "\\&",
	"*", "\\*",
	"(", "\\(",
	")", "\\)",
	"-", "\\-",
	"+", "\\+",
	"=", "\\=",
	"~", "\\~",
	" ", "\\ ",
)

var queryEscaper = strings.NewReplacer(
	`\`, `\\`,
	`'`, `\'`,
	`"`, `\"`,
	`@`, `\@`,
	`{`, `\{`,
	`}`, `\}`,
	`(`, `\(`,
	`)`, `\)`,
	`|`, `\|`,
	`-`, `\-`,
	`~`, `\~`,
	`*`, `\*`,
	`[`, `\[`,
	`]`, `\]`,
	`!`, `\!`,
	`%`, `\%`,
	`^`, `\^`,
	`$`, `\$`,
	`<`, `\<`,
	`>`, `\>`,
	`=`, `\=`,
	`;`, `\;`,
	`+`, `\+`,
	`:`, `\:`,
)
