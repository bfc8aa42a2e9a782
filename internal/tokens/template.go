// Package tokens resolves ${scope.field} placeholders found in plan names
// and flags.
package tokens

import (
	"regexp"
	"strings"
)

var tokenPattern = regexp.MustCompile(`!?\$\{([a-zA-Z][a-zA-Z0-9_\.\-]*)\}`)

// Token is a single placeholder of a template
type Token struct {
	Scope ScopeKind
	Field string
	// Raw is the text between the braces, ex subscription.name
	Raw     string
	Negated bool
}

type segment struct {
	literal string
	token   *Token
}

// Template is a string compiled into literal and token segments
type Template struct {
	source   string
	segments []segment
}

// Compile splits text into segments. Text that does not match the token
// pattern is kept verbatim.
func Compile(text string) *Template {
	t := &Template{source: text}
	if text == "" {
		return t
	}

	last := 0
	for _, m := range tokenPattern.FindAllStringSubmatchIndex(text, -1) {
		if m[0] > last {
			t.segments = append(t.segments, segment{literal: text[last:m[0]]})
		}
		raw := text[m[2]:m[3]]
		tok := parseToken(raw)
		tok.Negated = text[m[0]] == '!'
		t.segments = append(t.segments, segment{token: &tok})
		last = m[1]
	}
	if last < len(text) {
		t.segments = append(t.segments, segment{literal: text[last:]})
	}
	return t
}

func parseToken(raw string) Token {
	if key, ok := computedAliases[strings.ToLower(raw)]; ok {
		return Token{Scope: ScopeComputed, Field: key, Raw: raw}
	}
	scope, field, found := strings.Cut(raw, ".")
	if !found {
		return Token{Scope: ScopeUnknown, Raw: raw}
	}
	return Token{Scope: parseScopeKind(scope), Field: field, Raw: raw}
}

// Source returns the text the template was compiled from
func (t *Template) Source() string {
	if t == nil {
		return ""
	}
	return t.source
}

// HasTokens reports whether the template needs a scope to render
func (t *Template) HasTokens() bool {
	if t == nil {
		return false
	}
	for _, s := range t.segments {
		if s.token != nil {
			return true
		}
	}
	return false
}

// Tokens lists the placeholders of the template in order
func (t *Template) Tokens() []Token {
	if t == nil {
		return nil
	}
	var out []Token
	for _, s := range t.segments {
		if s.token != nil {
			out = append(out, *s.token)
		}
	}
	return out
}

// Render substitutes every token with its value in scope. Tokens that cannot
// be resolved render as the empty string and are returned so the caller can
// report them. A leading ! is kept in the output.
func (t *Template) Render(scope Scope) (string, []string) {
	if t == nil {
		return "", nil
	}
	if len(t.segments) == 0 {
		return t.source, nil
	}

	var (
		b          strings.Builder
		unresolved []string
	)
	for _, s := range t.segments {
		if s.token == nil {
			b.WriteString(s.literal)
			continue
		}
		if s.token.Negated {
			b.WriteByte('!')
		}
		v, ok := scope.Lookup(*s.token)
		if !ok {
			unresolved = append(unresolved, s.token.Raw)
			continue
		}
		b.WriteString(v)
	}
	return b.String(), unresolved
}

// Bool renders the template and reads it as a flag: "true" in any case is
// true, a leading ! negates. A template with unresolved tokens is false.
func (t *Template) Bool(scope Scope) (bool, []string) {
	rendered, unresolved := t.Render(scope)
	if len(unresolved) > 0 {
		return false, unresolved
	}

	v := strings.TrimSpace(rendered)
	negated := strings.HasPrefix(v, "!")
	v = strings.TrimPrefix(v, "!")

	result := strings.EqualFold(strings.TrimSpace(v), "true")
	if negated {
		return !result, nil
	}
	return result, nil
}
