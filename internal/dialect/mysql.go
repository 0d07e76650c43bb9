package dialect

import (
	"fmt"
	"strings"

	"github.com/hyperjump/toiawase/internal/models"
)

// mysqlDialect targets MySQL and MariaDB.
type mysqlDialect struct{}

func (mysqlDialect) Type() SourceType { return SourceMySQL }

func (mysqlDialect) BuildPromptContext(schema *models.DatabaseSchemaInfo, userQuery string) string {
	conventions := "- Use MySQL syntax. Bound the result with LIMIT.\n" +
		"- Quote identifiers with backticks when they collide with keywords.\n"
	return buildPrompt("MySQL", conventions, schema, userQuery)
}

func (mysqlDialect) ValidateSyntax(sql string) error {
	return checkStructure(sql)
}

func (d mysqlDialect) FormatSQL(sql string, maxRows int) string {
	s := CleanGenerated(sql)
	if maxRows > 0 && !hasLimit(s) {
		s += " " + d.LimitClause(maxRows)
	}
	return s
}

func (mysqlDialect) LimitClause(n int) string {
	return fmt.Sprintf("LIMIT %d", n)
}

func (mysqlDialect) QuoteIdentifier(name string) string {
	return "`" + strings.ReplaceAll(name, "`", "``") + "`"
}
