package dialect

import (
	"fmt"
	"strings"

	"github.com/hyperjump/toiawase/internal/models"
)

// postgresDialect targets PostgreSQL.
type postgresDialect struct{}

func (postgresDialect) Type() SourceType { return SourcePostgres }

func (postgresDialect) BuildPromptContext(schema *models.DatabaseSchemaInfo, userQuery string) string {
	conventions := "- Use PostgreSQL syntax. Bound the result with LIMIT.\n" +
		"- Case-insensitive matching uses ILIKE.\n" +
		"- Quote mixed-case identifiers with double quotes.\n"
	return buildPrompt("PostgreSQL", conventions, schema, userQuery)
}

func (postgresDialect) ValidateSyntax(sql string) error {
	return checkStructure(sql)
}

func (d postgresDialect) FormatSQL(sql string, maxRows int) string {
	s := CleanGenerated(sql)
	if maxRows > 0 && !hasLimit(s) {
		s += " " + d.LimitClause(maxRows)
	}
	return s
}

func (postgresDialect) LimitClause(n int) string {
	return fmt.Sprintf("LIMIT %d", n)
}

func (postgresDialect) QuoteIdentifier(name string) string {
	return `"` + strings.ReplaceAll(name, `"`, `""`) + `"`
}
