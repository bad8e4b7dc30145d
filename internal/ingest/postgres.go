package ingest

import (
	"context"
	"database/sql"
	"fmt"
	"math"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/lib/pq"

	apierrors "dataviz-backend/internal/errors"
	"dataviz-backend/internal/frame"
)

// PostgresConfig holds connection details for a table import.
type PostgresConfig struct {
	Host     string
	Port     int
	User     string
	Password string
	DBName   string
	SSLMode  string // "disable", "require"
}

// DSN renders the config as a lib/pq connection string.
func (c PostgresConfig) DSN() string {
	sslMode := c.SSLMode
	if sslMode == "" {
		sslMode = "disable"
	}
	parts := []string{
		"host=" + quoteDSNValue(c.Host),
		"port=" + strconv.Itoa(c.Port),
		"user=" + quoteDSNValue(c.User),
		"dbname=" + quoteDSNValue(c.DBName),
		"sslmode=" + quoteDSNValue(sslMode),
	}
	if c.Password != "" {
		parts = append(parts, "password="+quoteDSNValue(c.Password))
	}
	return strings.Join(parts, " ")
}

func quoteDSNValue(v string) string {
	v = strings.ReplaceAll(v, `\`, `\\`)
	v = strings.ReplaceAll(v, `'`, `\'`)
	return "'" + v + "'"
}

var tableNamePattern = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*(\.[A-Za-z_][A-Za-z0-9_]*)?$`)

// TableQuery builds the SELECT for table, quoting each identifier part.
func TableQuery(table string, limit int) (string, error) {
	if !tableNamePattern.MatchString(table) {
		return "", apierrors.Validation("table", "invalid table name %q", table)
	}
	if limit <= 0 {
		return "", apierrors.Validation("limit", "must be positive")
	}
	parts := strings.Split(table, ".")
	for i, p := range parts {
		parts[i] = pq.QuoteIdentifier(p)
	}
	return fmt.Sprintf("SELECT * FROM %s LIMIT %d", strings.Join(parts, "."), limit), nil
}

// PostgresSource loads tables from a PostgreSQL database.
type PostgresSource struct {
	db *sql.DB
}

// OpenPostgres connects and pings the database.
func OpenPostgres(ctx context.Context, cfg PostgresConfig) (*PostgresSource, error) {
	db, err := sql.Open("postgres", cfg.DSN())
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to connect: %w", err)
	}
	return &PostgresSource{db: db}, nil
}

// Close releases the connection pool.
func (p *PostgresSource) Close() error {
	if p.db != nil {
		return p.db.Close()
	}
	return nil
}

// LoadTable reads up to limit rows of table into a DataFrame.
func (p *PostgresSource) LoadTable(ctx context.Context, table string, limit int) (*frame.DataFrame, error) {
	query, err := TableQuery(table, limit)
	if err != nil {
		return nil, err
	}

	rows, err := p.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to query %s: %w", table, err)
	}
	defer rows.Close()

	columns, err := rows.Columns()
	if err != nil {
		return nil, err
	}

	var data [][]interface{}
	for rows.Next() {
		values := make([]interface{}, len(columns))
		valuePtrs := make([]interface{}, len(columns))
		for i := range values {
			valuePtrs[i] = &values[i]
		}
		if err := rows.Scan(valuePtrs...); err != nil {
			return nil, err
		}
		data = append(data, values)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	return frameFromSQL(columns, data)
}

// frameFromSQL types columns from driver values: a column whose non-null
// values are all numbers is numeric, anything else is categorical.
func frameFromSQL(columns []string, data [][]interface{}) (*frame.DataFrame, error) {
	cols := make([]*frame.Column, len(columns))
	for j, name := range columns {
		floats := make([]float64, len(data))
		numeric, present := true, false
		for i, row := range data {
			f, isNum, isNull := sqlNumber(row[j])
			switch {
			case isNull:
				floats[i] = math.NaN()
			case isNum:
				floats[i] = f
				present = true
			default:
				numeric = false
				present = true
			}
		}
		if numeric && present {
			cols[j] = frame.NewNumeric(name, floats)
			continue
		}

		values := make([]string, len(data))
		valid := make([]bool, len(data))
		for i, row := range data {
			if s, ok := sqlString(row[j]); ok {
				values[i], valid[i] = s, true
			}
		}
		cols[j] = frame.NewCategorical(name, values, valid)
	}
	return frame.New(cols...)
}

func sqlNumber(v interface{}) (f float64, isNum, isNull bool) {
	switch x := v.(type) {
	case nil:
		return 0, false, true
	case int64:
		return float64(x), true, false
	case float64:
		return x, true, false
	case []byte:
		// NUMERIC columns arrive as text.
		if f, err := strconv.ParseFloat(string(x), 64); err == nil {
			return f, true, false
		}
	}
	return 0, false, false
}

func sqlString(v interface{}) (string, bool) {
	switch x := v.(type) {
	case nil:
		return "", false
	case []byte:
		return string(x), true
	case string:
		return x, true
	case time.Time:
		return x.Format(time.RFC3339), true
	default:
		return fmt.Sprint(x), true
	}
}
