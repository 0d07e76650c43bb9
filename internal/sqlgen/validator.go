// Package sqlgen turns user questions into validated, per-source SELECT
// statements using a text-generation provider and the source's dialect.
package sqlgen

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/hyperjump/toiawase/internal/dialect"
	"github.com/hyperjump/toiawase/internal/models"
)

// ValidationError aggregates the blocking problems found in one statement.
type ValidationError struct {
	Errors []string
}

func (e *ValidationError) Error() string {
	return "sql validation failed: " + strings.Join(e.Errors, "; ")
}

// destructiveKeywords are verbs that modify data or schema. A generated
// statement containing any of them as a standalone word is rejected.
var destructiveKeywords = []string{
	"INSERT", "UPDATE", "DELETE", "DROP", "ALTER", "CREATE",
	"TRUNCATE", "MERGE", "REPLACE", "GRANT", "REVOKE", "EXEC", "EXECUTE",
	"ATTACH", "PRAGMA", "VACUUM",
}

var identPattern = regexp.MustCompile(`[A-Za-z_][A-Za-z0-9_]*`)

// sqlKeywords are tokens the identifier scan must not mistake for table or
// column references.
var sqlKeywords = map[string]bool{
	"SELECT": true, "FROM": true, "WHERE": true, "AND": true, "OR": true,
	"NOT": true, "NULL": true, "IS": true, "IN": true, "LIKE": true,
	"ILIKE": true, "BETWEEN": true, "AS": true, "ON": true, "JOIN": true,
	"INNER": true, "LEFT": true, "RIGHT": true, "OUTER": true, "CROSS": true,
	"GROUP": true, "BY": true, "ORDER": true, "HAVING": true, "LIMIT": true,
	"OFFSET": true, "TOP": true, "FETCH": true, "FIRST": true, "NEXT": true,
	"ROWS": true, "ONLY": true, "ASC": true, "DESC": true, "DISTINCT": true,
	"COUNT": true, "SUM": true, "AVG": true, "MIN": true, "MAX": true,
	"WITH": true, "UNION": true, "ALL": true, "CASE": true, "WHEN": true,
	"THEN": true, "ELSE": true, "END": true, "EXISTS": true, "CAST": true,
	"COALESCE": true, "LOWER": true, "UPPER": true, "SUBSTR": true,
	"LENGTH": true, "ROUND": true, "DATE": true, "STRFTIME": true,
	"CURRENT_DATE": true, "CURRENT_TIMESTAMP": true, "NOW": true,
	"INTERVAL": true, "TRUE": true, "FALSE": true, "USING": true,
	"EXTRACT": true, "YEAR": true, "MONTH": true, "DAY": true,
}

// Validate checks a formatted statement against the dialect and the source
// schema. Blocking problems (destructive verbs, structural faults, unknown
// tables) come back as a ValidationError; soft findings such as unknown
// identifiers that may be aliases come back as warnings.
func Validate(sql string, d dialect.Dialect, schema *models.DatabaseSchemaInfo) (warnings []string, err error) {
	var errs []string

	if structErr := d.ValidateSyntax(sql); structErr != nil {
		errs = append(errs, structErr.Error())
	}
	if kw := findDestructive(sql); kw != "" {
		errs = append(errs, fmt.Sprintf("destructive keyword %s is not allowed", kw))
	}

	if schema != nil && len(errs) == 0 {
		tableErrs, warns := checkIdentifiers(sql, schema)
		errs = append(errs, tableErrs...)
		warnings = append(warnings, warns...)
	}

	if len(errs) > 0 {
		return warnings, &ValidationError{Errors: errs}
	}
	return warnings, nil
}

// findDestructive returns the first destructive keyword occurring outside
// string literals, or "".
func findDestructive(sql string) string {
	stripped := stripLiterals(sql)
	upper := strings.ToUpper(stripped)
	for _, kw := range destructiveKeywords {
		idx := 0
		for {
			i := strings.Index(upper[idx:], kw)
			if i < 0 {
				break
			}
			start := idx + i
			end := start + len(kw)
			if isWordBoundary(upper, start-1) && isWordBoundary(upper, end) {
				return kw
			}
			idx = end
		}
	}
	return ""
}

func isWordBoundary(s string, i int) bool {
	if i < 0 || i >= len(s) {
		return true
	}
	c := s[i]
	return !(c == '_' || (c >= 'A' && c <= 'Z') || (c >= 'a' && c <= 'z') || (c >= '0' && c <= '9'))
}

// stripLiterals blanks out single-quoted string contents so literal text
// cannot trip keyword or identifier checks.
func stripLiterals(sql string) string {
	var b strings.Builder
	inString := false
	for _, r := range sql {
		switch {
		case r == '\'':
			inString = !inString
			b.WriteRune(' ')
		case inString:
			b.WriteRune(' ')
		default:
			b.WriteRune(r)
		}
	}
	return b.String()
}

// checkIdentifiers scans the statement for table references after FROM/JOIN
// and flags those missing from the schema as errors. Other identifiers that
// match no table or column produce warnings only, since they may be aliases.
func checkIdentifiers(sql string, schema *models.DatabaseSchemaInfo) (errs, warnings []string) {
	stripped := stripLiterals(sql)
	tokens := identPattern.FindAllStringIndex(stripped, -1)

	columns := map[string]bool{}
	for _, t := range schema.Tables {
		for _, c := range t.Columns {
			columns[strings.ToLower(c.Name)] = true
		}
	}

	// First pass collects aliases: "x AS alias" and the bare "FROM table alias"
	// form, so references ahead of the declaration are not flagged.
	aliases := map[string]bool{}
	prev := ""
	prevWasTable := false
	for _, span := range tokens {
		word := stripped[span[0]:span[1]]
		upper := strings.ToUpper(word)
		switch {
		case prev == "AS" && !sqlKeywords[upper]:
			aliases[strings.ToLower(word)] = true
			prevWasTable = false
		case prev == "FROM" || prev == "JOIN":
			prevWasTable = schema.Table(word) != nil
		case prevWasTable && !sqlKeywords[upper]:
			aliases[strings.ToLower(word)] = true
			prevWasTable = false
		default:
			prevWasTable = false
		}
		prev = upper
	}

	prev = ""
	for _, span := range tokens {
		word := stripped[span[0]:span[1]]
		upper := strings.ToUpper(word)
		lower := strings.ToLower(word)
		switch {
		case prev == "FROM" || prev == "JOIN":
			if schema.Table(word) == nil && !aliases[lower] {
				errs = append(errs, fmt.Sprintf("unknown table: %s", word))
			}
		case sqlKeywords[upper]:
		default:
			if !columns[lower] && schema.Table(word) == nil && !aliases[lower] {
				warnings = append(warnings, fmt.Sprintf("identifier not found in schema: %s", word))
			}
		}
		prev = upper
	}
	return errs, dedupe(warnings)
}

func dedupe(in []string) []string {
	seen := map[string]bool{}
	var out []string
	for _, s := range in {
		if !seen[s] {
			seen[s] = true
			out = append(out, s)
		}
	}
	return out
}
