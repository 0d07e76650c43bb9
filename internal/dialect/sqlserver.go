package dialect

import (
	"fmt"
	"strings"

	"github.com/hyperjump/toiawase/internal/models"
)

// sqlserverDialect targets Microsoft SQL Server. Row limiting uses TOP, which
// must be spliced after the SELECT keyword rather than appended.
type sqlserverDialect struct{}

func (sqlserverDialect) Type() SourceType { return SourceSQLServer }

func (sqlserverDialect) BuildPromptContext(schema *models.DatabaseSchemaInfo, userQuery string) string {
	conventions := "- Use T-SQL syntax. Bound the result with SELECT TOP (n).\n" +
		"- LIMIT is not valid; use TOP or OFFSET/FETCH.\n" +
		"- Quote identifiers with square brackets when needed.\n"
	return buildPrompt("SQL Server", conventions, schema, userQuery)
}

func (sqlserverDialect) ValidateSyntax(sql string) error {
	if err := checkStructure(sql); err != nil {
		return err
	}
	for _, tok := range strings.Fields(strings.ToUpper(sql)) {
		if tok == "LIMIT" {
			return fmt.Errorf("LIMIT is not valid T-SQL; use TOP")
		}
	}
	return nil
}

func (d sqlserverDialect) FormatSQL(sql string, maxRows int) string {
	s := CleanGenerated(sql)
	if maxRows <= 0 || hasLimit(s) {
		return s
	}
	upper := strings.ToUpper(s)
	if strings.HasPrefix(upper, "SELECT") {
		return "SELECT " + d.LimitClause(maxRows) + " " + strings.TrimSpace(s[len("SELECT"):])
	}
	// CTEs get OFFSET/FETCH appended instead.
	return s + fmt.Sprintf(" OFFSET 0 ROWS FETCH FIRST %d ROWS ONLY", maxRows)
}

func (sqlserverDialect) LimitClause(n int) string {
	return fmt.Sprintf("TOP (%d)", n)
}

func (sqlserverDialect) QuoteIdentifier(name string) string {
	return "[" + strings.ReplaceAll(name, "]", "]]") + "]"
}
