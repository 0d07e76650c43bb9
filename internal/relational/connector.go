// Package relational executes read-only queries against configured SQL
// sources and introspects their schemas.
package relational

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "github.com/go-sql-driver/mysql"
	_ "github.com/jackc/pgx/v5/stdlib"
	_ "github.com/mattn/go-sqlite3"
	_ "github.com/microsoft/go-mssqldb"
	"go.uber.org/zap"

	"github.com/hyperjump/toiawase/internal/config"
	"github.com/hyperjump/toiawase/internal/dialect"
	"github.com/hyperjump/toiawase/internal/models"
)

// Connector wraps one relational source. It only ever reads: queries are
// validated upstream and the pool is capped small since usage is bursty.
type Connector struct {
	name    string
	srcType dialect.SourceType
	maxRows int
	db      *sql.DB
	logger  *zap.Logger
}

// Open connects to the source described by cfg. The connection is verified
// with a ping before use.
func Open(cfg config.SourceConfig, logger *zap.Logger) (*Connector, error) {
	srcType := dialect.SourceType(cfg.Type)
	driver, err := dialect.DriverName(srcType)
	if err != nil {
		return nil, err
	}
	db, err := sql.Open(driver, cfg.DSN)
	if err != nil {
		return nil, fmt.Errorf("open source %s: %w", cfg.Name, err)
	}
	db.SetMaxOpenConns(4)
	db.SetMaxIdleConns(2)
	db.SetConnMaxLifetime(30 * time.Minute)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping source %s: %w", cfg.Name, err)
	}
	return &Connector{
		name:    cfg.Name,
		srcType: srcType,
		maxRows: cfg.MaxRows,
		db:      db,
		logger:  logger,
	}, nil
}

// Name returns the configured source name.
func (c *Connector) Name() string { return c.name }

// Type returns the source's engine family.
func (c *Connector) Type() dialect.SourceType { return c.srcType }

// MaxRows returns the configured per-query row cap.
func (c *Connector) MaxRows() int { return c.maxRows }

// Query runs a validated SELECT and returns rows as maps keyed by column
// name. Row count is capped at MaxRows even if the statement's own limit is
// larger.
func (c *Connector) Query(ctx context.Context, query string) ([]map[string]interface{}, []string, error) {
	rows, err := c.db.QueryContext(ctx, query)
	if err != nil {
		return nil, nil, fmt.Errorf("query source %s: %w", c.name, err)
	}
	defer rows.Close()

	cols, err := rows.Columns()
	if err != nil {
		return nil, nil, fmt.Errorf("read columns: %w", err)
	}

	var out []map[string]interface{}
	values := make([]interface{}, len(cols))
	ptrs := make([]interface{}, len(cols))
	for i := range values {
		ptrs[i] = &values[i]
	}
	for rows.Next() {
		if c.maxRows > 0 && len(out) >= c.maxRows {
			break
		}
		if err := rows.Scan(ptrs...); err != nil {
			return nil, nil, fmt.Errorf("scan row: %w", err)
		}
		row := make(map[string]interface{}, len(cols))
		for i, col := range cols {
			row[col] = normalizeValue(values[i])
		}
		out = append(out, row)
	}
	if err := rows.Err(); err != nil {
		return nil, nil, fmt.Errorf("iterate rows: %w", err)
	}
	return out, cols, nil
}

// normalizeValue converts driver byte slices to strings so rows serialize as
// text instead of base64.
func normalizeValue(v interface{}) interface{} {
	if b, ok := v.([]byte); ok {
		return string(b)
	}
	return v
}

// IntrospectSchema reads table and column metadata from the source.
func (c *Connector) IntrospectSchema(ctx context.Context) (*models.DatabaseSchemaInfo, error) {
	var (
		tables []models.TableInfo
		err    error
	)
	switch c.srcType {
	case dialect.SourceSQLite:
		tables, err = c.introspectSQLite(ctx)
	case dialect.SourcePostgres, dialect.SourceMySQL, dialect.SourceSQLServer:
		tables, err = c.introspectInformationSchema(ctx)
	default:
		err = fmt.Errorf("unknown source type: %s", c.srcType)
	}
	if err != nil {
		return nil, err
	}
	c.logger.Debug("schema introspected",
		zap.String("source", c.name), zap.Int("tables", len(tables)))
	return &models.DatabaseSchemaInfo{
		SourceName:  c.name,
		SourceType:  string(c.srcType),
		Tables:      tables,
		RefreshedAt: time.Now().UTC(),
	}, nil
}

func (c *Connector) introspectSQLite(ctx context.Context) ([]models.TableInfo, error) {
	rows, err := c.db.QueryContext(ctx,
		`SELECT name FROM sqlite_master WHERE type = 'table' AND name NOT LIKE 'sqlite_%' ORDER BY name`)
	if err != nil {
		return nil, fmt.Errorf("list tables: %w", err)
	}
	defer rows.Close()

	var names []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, err
		}
		names = append(names, name)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	var tables []models.TableInfo
	for _, name := range names {
		cols, err := c.sqliteColumns(ctx, name)
		if err != nil {
			return nil, err
		}
		tables = append(tables, models.TableInfo{Name: name, Columns: cols})
	}
	return tables, nil
}

func (c *Connector) sqliteColumns(ctx context.Context, table string) ([]models.ColumnInfo, error) {
	rows, err := c.db.QueryContext(ctx,
		fmt.Sprintf(`SELECT name, type, "notnull", pk FROM pragma_table_info(%s)`,
			quoteLiteral(table)))
	if err != nil {
		return nil, fmt.Errorf("columns of %s: %w", table, err)
	}
	defer rows.Close()

	var cols []models.ColumnInfo
	for rows.Next() {
		var (
			name, dataType string
			notNull, pk    int
		)
		if err := rows.Scan(&name, &dataType, &notNull, &pk); err != nil {
			return nil, err
		}
		cols = append(cols, models.ColumnInfo{
			Name:         name,
			DataType:     dataType,
			IsNullable:   notNull == 0,
			IsPrimaryKey: pk > 0,
		})
	}
	return cols, rows.Err()
}

// introspectInformationSchema covers engines exposing the standard
// information_schema views. Primary keys come from key_column_usage.
func (c *Connector) introspectInformationSchema(ctx context.Context) ([]models.TableInfo, error) {
	query := `
		SELECT c.table_name, c.column_name, c.data_type, c.is_nullable,
		       CASE WHEN k.column_name IS NULL THEN 0 ELSE 1 END AS is_pk
		FROM information_schema.columns c
		LEFT JOIN (
			SELECT kcu.table_name, kcu.column_name
			FROM information_schema.table_constraints tc
			JOIN information_schema.key_column_usage kcu
			  ON kcu.constraint_name = tc.constraint_name
			 AND kcu.table_name = tc.table_name
			WHERE tc.constraint_type = 'PRIMARY KEY'
		) k ON k.table_name = c.table_name AND k.column_name = c.column_name
		WHERE c.table_schema NOT IN ('information_schema', 'pg_catalog', 'mysql', 'performance_schema', 'sys')
		ORDER BY c.table_name, c.ordinal_position`

	rows, err := c.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("introspect %s: %w", c.name, err)
	}
	defer rows.Close()

	var tables []models.TableInfo
	byName := map[string]int{}
	for rows.Next() {
		var (
			table, column, dataType, nullable string
			isPK                              int
		)
		if err := rows.Scan(&table, &column, &dataType, &nullable, &isPK); err != nil {
			return nil, err
		}
		idx, ok := byName[table]
		if !ok {
			tables = append(tables, models.TableInfo{Name: table})
			idx = len(tables) - 1
			byName[table] = idx
		}
		tables[idx].Columns = append(tables[idx].Columns, models.ColumnInfo{
			Name:         column,
			DataType:     dataType,
			IsNullable:   nullable == "YES",
			IsPrimaryKey: isPK == 1,
		})
	}
	return tables, rows.Err()
}

// quoteLiteral quotes a string literal for embedding in introspection SQL.
// Table names come from the catalog itself, never from users.
func quoteLiteral(s string) string {
	out := make([]byte, 0, len(s)+2)
	out = append(out, '\'')
	for i := 0; i < len(s); i++ {
		if s[i] == '\'' {
			out = append(out, '\'')
		}
		out = append(out, s[i])
	}
	out = append(out, '\'')
	return string(out)
}

// Close releases the connection pool.
func (c *Connector) Close() error {
	return c.db.Close()
}
