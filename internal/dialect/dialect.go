// Package dialect implements per-engine SQL conventions as a closed set of
// strategies selected by source type.
package dialect

import (
	"fmt"
	"strings"

	"github.com/hyperjump/toiawase/internal/models"
)

// SourceType tags a relational engine family.
type SourceType string

const (
	// SourceSQLite is the file-based embedded engine.
	SourceSQLite SourceType = "sqlite"
	// SourcePostgres is PostgreSQL.
	SourcePostgres SourceType = "postgres"
	// SourceMySQL is MySQL/MariaDB.
	SourceMySQL SourceType = "mysql"
	// SourceSQLServer is Microsoft SQL Server.
	SourceSQLServer SourceType = "sqlserver"
)

// Dialect produces, checks, and formats query text for one engine family.
type Dialect interface {
	// Type returns the source type tag this dialect serves.
	Type() SourceType
	// BuildPromptContext renders the generation prompt: schema description,
	// engine-specific conventions, and the user query.
	BuildPromptContext(schema *models.DatabaseSchemaInfo, userQuery string) string
	// ValidateSyntax performs structural validation: a single read statement
	// with balanced quoting. It does not parse SQL.
	ValidateSyntax(sql string) error
	// FormatSQL normalizes generated query text: strips markdown fences and
	// trailing semicolons, and appends the dialect's limit clause when the
	// statement has none.
	FormatSQL(sql string, maxRows int) string
	// LimitClause returns the dialect's row-limit clause for n rows.
	LimitClause(n int) string
	// QuoteIdentifier quotes an identifier for this engine.
	QuoteIdentifier(name string) string
}

// For returns the dialect for a source type. The set is closed; unknown
// types are an error.
func For(t SourceType) (Dialect, error) {
	switch t {
	case SourceSQLite:
		return sqliteDialect{}, nil
	case SourcePostgres:
		return postgresDialect{}, nil
	case SourceMySQL:
		return mysqlDialect{}, nil
	case SourceSQLServer:
		return sqlserverDialect{}, nil
	default:
		return nil, fmt.Errorf("unknown source type: %s", t)
	}
}

// DriverName maps a source type to its database/sql driver.
func DriverName(t SourceType) (string, error) {
	switch t {
	case SourceSQLite:
		return "sqlite3", nil
	case SourcePostgres:
		return "pgx", nil
	case SourceMySQL:
		return "mysql", nil
	case SourceSQLServer:
		return "sqlserver", nil
	default:
		return "", fmt.Errorf("unknown source type: %s", t)
	}
}

// CleanGenerated strips markdown code fences and surrounding whitespace from
// model-generated SQL, and drops a single trailing semicolon.
func CleanGenerated(sql string) string {
	s := strings.TrimSpace(sql)
	if strings.HasPrefix(s, "```") {
		s = strings.TrimPrefix(s, "```sql")
		s = strings.TrimPrefix(s, "```")
		if i := strings.LastIndex(s, "```"); i >= 0 {
			s = s[:i]
		}
		s = strings.TrimSpace(s)
	}
	return strings.TrimSuffix(s, ";")
}

// checkStructure rejects empty, non-read, multi-statement, or unbalanced SQL.
// Shared by all dialects.
func checkStructure(sql string) error {
	s := strings.TrimSpace(sql)
	if s == "" {
		return fmt.Errorf("empty statement")
	}
	upper := strings.ToUpper(s)
	if !strings.HasPrefix(upper, "SELECT") && !strings.HasPrefix(upper, "WITH") {
		return fmt.Errorf("only SELECT statements are allowed")
	}
	if strings.ContainsRune(s, ';') {
		return fmt.Errorf("multiple statements are not allowed")
	}
	depth := 0
	inSingle, inDouble := false, false
	for _, r := range s {
		switch {
		case r == '\'' && !inDouble:
			inSingle = !inSingle
		case r == '"' && !inSingle:
			inDouble = !inDouble
		case inSingle || inDouble:
		case r == '(':
			depth++
		case r == ')':
			depth--
			if depth < 0 {
				return fmt.Errorf("unbalanced parentheses")
			}
		}
	}
	if depth != 0 {
		return fmt.Errorf("unbalanced parentheses")
	}
	if inSingle || inDouble {
		return fmt.Errorf("unterminated string literal")
	}
	return nil
}

// hasLimit reports whether the statement already bounds its result size.
// Tokenizing on whitespace catches clauses split across lines in generated
// multi-line SQL, which a space-padded substring check would miss.
func hasLimit(sql string) bool {
	tokens := strings.Fields(strings.ToUpper(sql))
	for i, tok := range tokens {
		switch {
		case tok == "LIMIT" || tok == "TOP" || strings.HasPrefix(tok, "TOP("):
			return true
		case tok == "FETCH" && i+1 < len(tokens) &&
			(tokens[i+1] == "FIRST" || tokens[i+1] == "NEXT"):
			return true
		}
	}
	return false
}

// describeSchema renders table/column metadata as prompt text.
func describeSchema(schema *models.DatabaseSchemaInfo) string {
	var b strings.Builder
	for _, t := range schema.Tables {
		b.WriteString("Table ")
		b.WriteString(t.Name)
		b.WriteString(" (")
		for i, c := range t.Columns {
			if i > 0 {
				b.WriteString(", ")
			}
			b.WriteString(c.Name)
			b.WriteString(" ")
			b.WriteString(c.DataType)
			if c.IsPrimaryKey {
				b.WriteString(" PRIMARY KEY")
			}
		}
		b.WriteString(")\n")
	}
	return b.String()
}

// buildPrompt assembles the shared prompt skeleton with dialect conventions.
func buildPrompt(engine, conventions string, schema *models.DatabaseSchemaInfo, userQuery string) string {
	var b strings.Builder
	b.WriteString("You translate a question into a single read-only ")
	b.WriteString(engine)
	b.WriteString(" SELECT statement.\n\nSchema:\n")
	b.WriteString(describeSchema(schema))
	b.WriteString("\nRules:\n")
	b.WriteString("- Output only the SQL statement, no explanation and no markdown.\n")
	b.WriteString("- Use only tables and columns from the schema.\n")
	b.WriteString("- Never modify data: no INSERT, UPDATE, DELETE, DROP, ALTER, CREATE or TRUNCATE.\n")
	b.WriteString(conventions)
	b.WriteString("\nQuestion: ")
	b.WriteString(userQuery)
	b.WriteString("\n")
	return b.String()
}
