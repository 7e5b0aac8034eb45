// Package params pulls values out of ticket text and binds them into a case's
// query template.
package params

import (
	"regexp"
	"strings"

	"pqrs/internal/domain"
)

// Credito is the parameter holding a credit/account number.
const Credito = "credito"

var (
	creditoRe     = regexp.MustCompile(`[0-9]{13,}`)
	placeholderRe = regexp.MustCompile(`'\[([A-Z][A-Z0-9_]*)\]'|\[([A-Z][A-Z0-9_]*)\]`)
)

// Extract returns the parameters found in text. The first run of 13 or more
// digits is the credit number. Text with nothing recognizable yields an
// empty map.
func Extract(text string) map[string]string {
	values := map[string]string{}
	if m := creditoRe.FindString(text); m != "" {
		values[Credito] = m
	}
	return values
}

// Placeholders lists the distinct placeholder names in template, in order of
// first appearance.
func Placeholders(template string) []string {
	var names []string
	seen := map[string]struct{}{}
	for _, m := range placeholderRe.FindAllStringSubmatch(template, -1) {
		name := m[1] + m[2]
		if _, ok := seen[name]; ok {
			continue
		}
		seen[name] = struct{}{}
		names = append(names, name)
	}
	return names
}

// UnsafeFill pastes values into template: [NAME] becomes values[lower(NAME)].
// Placeholders without a value are left verbatim for a human to fill. Values
// are not escaped, so the result is a suggestion to review and must never be
// executed as is.
func UnsafeFill(template string, values map[string]string) string {
	return placeholderRe.ReplaceAllStringFunc(template, func(tok string) string {
		quoted := strings.HasPrefix(tok, "'")
		name := strings.Trim(tok, "'[]")
		v, ok := values[strings.ToLower(name)]
		if !ok {
			return tok
		}
		if quoted {
			return "'" + v + "'"
		}
		return v
	})
}

// Parameterize turns bound placeholders into "?" bind markers and returns the
// values as arguments in marker order. A quoted placeholder ('[NAME]') loses
// its quotes along with the brackets. Unbound placeholders stay verbatim and
// are reported in Missing.
func Parameterize(template string, values map[string]string) domain.Statement {
	var st domain.Statement
	missing := map[string]struct{}{}
	st.Text = placeholderRe.ReplaceAllStringFunc(template, func(tok string) string {
		name := strings.Trim(tok, "'[]")
		v, ok := values[strings.ToLower(name)]
		if !ok {
			if _, dup := missing[name]; !dup {
				missing[name] = struct{}{}
				st.Missing = append(st.Missing, name)
			}
			return tok
		}
		st.Args = append(st.Args, v)
		return "?"
	})
	return st
}
