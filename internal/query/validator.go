// Package query guards preview SQL before it reaches an executor.
package query

import (
	"errors"
	"fmt"
	"regexp"
	"strings"
)

// ErrRejected is wrapped by every validation failure
var ErrRejected = errors.New("query rejected")

// Validator validates SQL queries for safety. Previews are read-only.
type Validator struct {
	allowedStatements []string
	deniedStatements  []string
	maxQueryLength    int
	patterns          map[string]*regexp.Regexp
}

// NewValidator creates a new query validator
func NewValidator() *Validator {
	v := &Validator{
		allowedStatements: []string{"SELECT", "WITH", "SHOW", "DESCRIBE", "DESC", "EXPLAIN"},
		deniedStatements:  []string{"INSERT", "UPDATE", "DELETE", "DROP", "CREATE", "ALTER", "TRUNCATE", "GRANT", "REVOKE", "RENAME", "OPTIMIZE", "ATTACH", "DETACH", "KILL"},
		maxQueryLength:    50000,
		patterns:          make(map[string]*regexp.Regexp),
	}

	v.patterns["comments"] = regexp.MustCompile(`--[^\n]*|/\*[\s\S]*?\*/`)
	v.patterns["system_tables"] = regexp.MustCompile(`(?i)\b(system|information_schema)\s*\.`)
	v.patterns["dangerous_functions"] = regexp.MustCompile(`(?i)\b(file|url|remote|remoteSecure|s3|hdfs|jdbc|odbc|mysql|postgresql|executable)\s*\(`)
	v.patterns["denied"] = regexp.MustCompile(`(?i)\b(` + strings.Join(v.deniedStatements, "|") + `)\b`)

	return v
}

// Validate checks if a query is safe to execute
func (v *Validator) Validate(query string) error {
	if strings.TrimSpace(query) == "" {
		return fmt.Errorf("%w: empty query", ErrRejected)
	}

	if len(query) > v.maxQueryLength {
		return fmt.Errorf("%w: query too long: %d bytes (max %d)", ErrRejected, len(query), v.maxQueryLength)
	}

	cleanQuery := v.removeComments(query)
	code := stripLiterals(cleanQuery)

	if v.hasMultipleStatements(cleanQuery) {
		return fmt.Errorf("%w: multiple statements not allowed", ErrRejected)
	}

	statementType := v.getStatementType(code)
	if statementType == "" {
		return fmt.Errorf("%w: unable to determine query type", ErrRejected)
	}
	if !v.isStatementAllowed(statementType) {
		return fmt.Errorf("%w: statement type '%s' not allowed", ErrRejected, statementType)
	}

	return v.checkDangerousPatterns(code)
}

// removeComments removes SQL comments from the query
func (v *Validator) removeComments(query string) string {
	return v.patterns["comments"].ReplaceAllString(query, " ")
}

// hasMultipleStatements checks for a semicolon outside quotes that is
// followed by more SQL. A trailing semicolon is fine.
func (v *Validator) hasMultipleStatements(query string) bool {
	inQuote := false
	quoteChar := rune(0)

	for i, char := range query {
		if !inQuote {
			if char == '\'' || char == '"' || char == '`' {
				inQuote = true
				quoteChar = char
			} else if char == ';' {
				if strings.TrimSpace(strings.Trim(query[i+1:], "; \t\n")) != "" {
					return true
				}
			}
		} else if char == quoteChar && (i == 0 || query[i-1] != '\\') {
			inQuote = false
		}
	}

	return false
}

// getStatementType returns the first keyword; a CTE counts as its main statement
func (v *Validator) getStatementType(query string) string {
	fields := strings.Fields(strings.ToUpper(strings.TrimSpace(query)))
	if len(fields) == 0 {
		return ""
	}
	first := strings.TrimLeft(fields[0], "(")
	if first == "WITH" {
		return "SELECT"
	}
	return first
}

// isStatementAllowed checks if a statement type is allowed
func (v *Validator) isStatementAllowed(statementType string) bool {
	for _, allowed := range v.allowedStatements {
		if statementType == allowed {
			return true
		}
	}
	return false
}

// checkDangerousPatterns looks for write keywords, system tables and table
// functions that reach outside the database
func (v *Validator) checkDangerousPatterns(code string) error {
	if m := v.patterns["denied"].FindString(code); m != "" {
		return fmt.Errorf("%w: statement contains denied operation: %s", ErrRejected, strings.ToUpper(m))
	}

	if v.patterns["system_tables"].MatchString(code) {
		return fmt.Errorf("%w: access to system tables not allowed", ErrRejected)
	}

	if v.patterns["dangerous_functions"].MatchString(code) {
		return fmt.Errorf("%w: potentially dangerous functions not allowed", ErrRejected)
	}

	return nil
}

// stripLiterals blanks single-quoted strings so their contents never match
// a keyword
func stripLiterals(query string) string {
	var b strings.Builder
	b.Grow(len(query))
	inQuote := false
	for i := 0; i < len(query); i++ {
		c := query[i]
		switch {
		case !inQuote && c == '\'':
			inQuote = true
			b.WriteByte(c)
		case inQuote && c == '\\' && i+1 < len(query):
			i++
		case inQuote && c == '\'':
			if i+1 < len(query) && query[i+1] == '\'' {
				i++
				continue
			}
			inQuote = false
			b.WriteByte(c)
		case inQuote:
			b.WriteByte(' ')
		default:
			b.WriteByte(c)
		}
	}
	return b.String()
}
