package dialect

import (
	"fmt"
	"strings"

	"github.com/hyperjump/toiawase/internal/models"
)

// sqliteDialect targets SQLite.
type sqliteDialect struct{}

func (sqliteDialect) Type() SourceType { return SourceSQLite }

func (sqliteDialect) BuildPromptContext(schema *models.DatabaseSchemaInfo, userQuery string) string {
	conventions := "- Use SQLite syntax. Bound the result with LIMIT.\n" +
		"- Date arithmetic uses date() and strftime().\n"
	return buildPrompt("SQLite", conventions, schema, userQuery)
}

func (sqliteDialect) ValidateSyntax(sql string) error {
	return checkStructure(sql)
}

func (d sqliteDialect) FormatSQL(sql string, maxRows int) string {
	s := CleanGenerated(sql)
	if maxRows > 0 && !hasLimit(s) {
		s += " " + d.LimitClause(maxRows)
	}
	return s
}

func (sqliteDialect) LimitClause(n int) string {
	return fmt.Sprintf("LIMIT %d", n)
}

func (sqliteDialect) QuoteIdentifier(name string) string {
	return `"` + strings.ReplaceAll(name, `"`, `""`) + `"`
}
