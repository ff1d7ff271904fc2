package query

import "strings"

// Clause builders for the backend filter language. Values are always quoted
// and embedded quotes escaped, so user text can never break out of a clause.

func quote(value string) string {
	value = strings.ReplaceAll(value, `\`, `\\`)
	value = strings.ReplaceAll(value, `"`, `\"`)
	return `"` + value + `"`
}

// Eq builds field="value".
func Eq(field, value string) string {
	return field + "=" + quote(value)
}

// Contains builds field~"value", a case-insensitive substring match.
func Contains(field, value string) string {
	return field + "~" + quote(value)
}

// And conjoins the non-empty clauses with &&. No clauses means no filter.
func And(clauses ...string) string {
	var parts []string
	for _, c := range clauses {
		if c = strings.TrimSpace(c); c != "" {
			parts = append(parts, c)
		}
	}
	return strings.Join(parts, "&&")
}

// Or disjoins the non-empty clauses with || inside parentheses.
func Or(clauses ...string) string {
	var parts []string
	for _, c := range clauses {
		if c = strings.TrimSpace(c); c != "" {
			parts = append(parts, c)
		}
	}
	switch len(parts) {
	case 0:
		return ""
	case 1:
		return parts[0]
	default:
		return "(" + strings.Join(parts, "||") + ")"
	}
}

// SearchClause matches text against any of the given fields. Blank text
// yields an empty clause.
func SearchClause(text string, fields ...string) string {
	text = strings.TrimSpace(text)
	if text == "" {
		return ""
	}
	clauses := make([]string, 0, len(fields))
	for _, f := range fields {
		clauses = append(clauses, Contains(f, text))
	}
	return Or(clauses...)
}
