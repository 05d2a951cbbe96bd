// Package sqlfields discovers the column and alias names projected by a
// SELECT statement so filter builders can offer them. It is a regex
// heuristic, not a SQL parser: commas inside function calls split the
// projection and CTE bodies are skipped by jumping to the last SELECT.
package sqlfields

import (
	"regexp"
	"strings"
)

var (
	lineComment  = regexp.MustCompile(`--[^\n]*`)
	blockComment = regexp.MustCompile(`(?s)/\*.*?\*/`)
	whitespace   = regexp.MustCompile(`\s+`)
	selectClause = regexp.MustCompile(`(?is)\bSELECT\b(.*?)\bFROM\b`)

	quotedAlias   = regexp.MustCompile("(?i)\\bAS\\s+[\"'`]([^\"'`]+)[\"'`]\\s*$")
	bareAlias     = regexp.MustCompile(`(?i)\bAS\s+([A-Za-z0-9_]+)\s*$`)
	quotedLiteral = regexp.MustCompile("[\"'`]([^\"'`]+)[\"'`]\\s*$")
	identifier    = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)
	dotNotation   = regexp.MustCompile(`[A-Za-z_][A-Za-z0-9_]*\.([A-Za-z_][A-Za-z0-9_]*|\*)\s*$`)
	leadingIdent  = regexp.MustCompile(`^([A-Za-z_][A-Za-z0-9_]*)`)
)

// keywords never count as an implicit alias
var keywords = map[string]bool{
	"SELECT": true, "FROM": true, "WHERE": true, "AND": true, "OR": true,
	"NOT": true, "AS": true, "ON": true, "IN": true, "IS": true, "NULL": true,
	"CASE": true, "WHEN": true, "THEN": true, "ELSE": true, "END": true,
	"DISTINCT": true, "ALL": true, "ASC": true, "DESC": true, "BY": true,
	"LIKE": true, "ILIKE": true, "BETWEEN": true, "TRUE": true, "FALSE": true,
	"OVER": true, "PARTITION": true, "INTERVAL": true, "DIV": true, "MOD": true,
}

// aggregates are dropped when they are the whole derived name
var aggregates = map[string]bool{
	"COUNT": true, "SUM": true, "AVG": true, "MIN": true, "MAX": true, "DISTINCT": true,
}

// Extract returns the field names projected by the outer SELECT of sql.
// It never panics and returns an empty, non-nil slice when nothing can be
// derived.
func Extract(sql string) (fields []string) {
	defer func() {
		if r := recover(); r != nil {
			fields = []string{}
		}
	}()

	fields = []string{}
	clean := normalize(sql)
	if clean == "" {
		return fields
	}

	if strings.HasPrefix(strings.ToUpper(clean), "WITH") {
		idx := strings.LastIndex(strings.ToUpper(clean), "SELECT")
		if idx < 0 {
			return fields
		}
		clean = clean[idx:]
	}

	match := selectClause.FindStringSubmatch(clean)
	if match == nil {
		return fields
	}

	seen := make(map[string]bool)
	for _, expr := range splitTopLevel(match[1]) {
		name, ok := deriveName(strings.TrimSpace(expr))
		if !ok || name == "*" || aggregates[strings.ToUpper(name)] {
			continue
		}
		if seen[name] {
			continue
		}
		seen[name] = true
		fields = append(fields, name)
	}
	return fields
}

// ExtractAll returns the de-duplicated union of Extract over every statement
func ExtractAll(sqls ...string) []string {
	out := []string{}
	seen := make(map[string]bool)
	for _, sql := range sqls {
		for _, f := range Extract(sql) {
			if !seen[f] {
				seen[f] = true
				out = append(out, f)
			}
		}
	}
	return out
}

// Contains reports whether name is among the fields of sql
func Contains(sql, name string) bool {
	for _, f := range Extract(sql) {
		if f == name {
			return true
		}
	}
	return false
}

func normalize(sql string) string {
	sql = lineComment.ReplaceAllString(sql, " ")
	sql = blockComment.ReplaceAllString(sql, " ")
	sql = whitespace.ReplaceAllString(sql, " ")
	return strings.TrimSpace(sql)
}

// splitTopLevel splits on commas outside quoted spans. Parentheses are not
// tracked.
func splitTopLevel(s string) []string {
	var parts []string
	var current strings.Builder
	var quote rune

	for _, ch := range s {
		switch {
		case quote != 0:
			if ch == quote {
				quote = 0
			}
			current.WriteRune(ch)
		case ch == '\'' || ch == '"' || ch == '`':
			quote = ch
			current.WriteRune(ch)
		case ch == ',':
			parts = append(parts, current.String())
			current.Reset()
		default:
			current.WriteRune(ch)
		}
	}
	if current.Len() > 0 {
		parts = append(parts, current.String())
	}
	return parts
}

// deriveName applies the naming rules in priority order; first match wins.
func deriveName(expr string) (string, bool) {
	if expr == "" {
		return "", false
	}
	if m := quotedAlias.FindStringSubmatch(expr); m != nil {
		return m[1], true
	}
	if m := bareAlias.FindStringSubmatch(expr); m != nil {
		return m[1], true
	}
	if m := quotedLiteral.FindStringSubmatch(expr); m != nil {
		return m[1], true
	}
	tokens := strings.Fields(expr)
	if last := tokens[len(tokens)-1]; identifier.MatchString(last) && !keywords[strings.ToUpper(last)] {
		return last, true
	}
	if m := dotNotation.FindStringSubmatch(expr); m != nil {
		return m[1], true
	}
	if m := leadingIdent.FindStringSubmatch(expr); m != nil {
		return m[1], true
	}
	return "", false
}
