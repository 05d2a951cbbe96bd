package filters

import (
	"regexp"
	"strings"

	"github.com/your-username/click-lite-reports/internal/models"
)

var fieldToken = regexp.MustCompile(`\{\{\s*([A-Za-z0-9_]+)\s*\}\}`)

// InjectRow replaces every {{field}} token whose field exists in row with
// the single-quoted row value. Tokens without a matching field, and the
// dynamic filters placeholder, are left in place. Nil cells render as NULL.
func InjectRow(sql string, row map[string]interface{}) string {
	return defaultRenderer.InjectRow(sql, row)
}

// InjectRow is the renderer-aware form of the package InjectRow
func (r Renderer) InjectRow(sql string, row map[string]interface{}) string {
	return fieldToken.ReplaceAllStringFunc(sql, func(token string) string {
		name := fieldToken.FindStringSubmatch(token)[1]
		if name == "dynamic_filters" {
			return token
		}
		val, ok := row[name]
		if !ok {
			return token
		}
		if val == nil {
			return "NULL"
		}
		return "'" + r.literal(Stringify(val)) + "'"
	})
}

// Tokens lists the distinct {{field}} placeholders referenced by sql,
// excluding the dynamic filters placeholder.
func Tokens(sql string) []string {
	var out []string
	seen := make(map[string]bool)
	for _, m := range fieldToken.FindAllStringSubmatch(sql, -1) {
		name := m[1]
		if name == "dynamic_filters" || seen[name] {
			continue
		}
		seen[name] = true
		out = append(out, name)
	}
	return out
}

// OptionsSQL prepares a dropdown query. When the filter depends on a parent
// selection, {{<parent field>}} is replaced with the quoted parent value (a
// comma-separated quoted list for multi-value parents).
func OptionsSQL(f models.FilterConfig, parent *models.FilterConfig, parentValue Value) string {
	return defaultRenderer.OptionsSQL(f, parent, parentValue)
}

// OptionsSQL is the renderer-aware form of the package OptionsSQL
func (r Renderer) OptionsSQL(f models.FilterConfig, parent *models.FilterConfig, parentValue Value) string {
	sql := strings.TrimSpace(f.DropdownQuery)
	if parent == nil || parentValue.IsEmpty() {
		return sql
	}
	token := "{{" + parent.FieldName + "}}"
	return strings.ReplaceAll(sql, token, r.QuotedList(parentValue.Items()))
}
