package database

import (
	"context"
	"errors"
	"fmt"
	"math"
	"net"
	"reflect"
	"strconv"
	"time"

	"github.com/ClickHouse/clickhouse-go/v2"
	"github.com/ClickHouse/clickhouse-go/v2/lib/driver"
	"github.com/rs/zerolog/log"

	"github.com/your-username/click-lite-reports/internal/config"
	"github.com/your-username/click-lite-reports/internal/models"
	"github.com/your-username/click-lite-reports/internal/pagination"
)

// DB runs preview queries directly against ClickHouse over the native protocol
type DB struct {
	conn driver.Conn
}

func New(cfg config.DatabaseConfig) (*DB, error) {
	addr := net.JoinHostPort(cfg.Host, cfg.Port)
	log.Info().Str("addr", addr).Str("database", cfg.Database).Str("username", cfg.Username).Msg("Connecting to ClickHouse")

	conn, err := clickhouse.Open(&clickhouse.Options{
		Addr: []string{addr},
		Auth: clickhouse.Auth{
			Database: cfg.Database,
			Username: cfg.Username,
			Password: cfg.Password,
		},
		Settings: clickhouse.Settings{
			// previews never write
			"readonly": 2,
		},
		DialTimeout: 10 * time.Second,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to open ClickHouse connection: %w", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := conn.Ping(ctx); err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to test ClickHouse connection: %w", err)
	}

	log.Info().Msg("Connected to ClickHouse")
	return &DB{conn: conn}, nil
}

func (db *DB) Close() error {
	return db.conn.Close()
}

func (db *DB) Health(ctx context.Context) error {
	return db.conn.Ping(ctx)
}

// Preview executes sql capped at limit rows. Server-side query errors come
// back as a failed result; only transport problems are returned as errors.
func (db *DB) Preview(ctx context.Context, sql string, limit int) (*models.QueryResult, error) {
	start := time.Now()
	rows, err := db.conn.Query(ctx, pagination.ApplyLimit(sql, limit))
	if err != nil {
		return failedOrError(err, start)
	}
	defer rows.Close()

	res, err := scanRows(rows)
	if err != nil {
		return failedOrError(err, start)
	}
	res.ExecutionTimeMs = time.Since(start).Milliseconds()
	return res, nil
}

func failedOrError(err error, start time.Time) (*models.QueryResult, error) {
	var exception *clickhouse.Exception
	if errors.As(err, &exception) {
		return &models.QueryResult{
			Columns:         []string{},
			Data:            [][]interface{}{},
			ExecutionTimeMs: time.Since(start).Milliseconds(),
			Success:         false,
			Message:         exception.Message,
		}, nil
	}
	return nil, fmt.Errorf("clickhouse query: %w", err)
}

// rowScanner is the part of driver.Rows used for previews
type rowScanner interface {
	Next() bool
	Scan(dest ...any) error
	ColumnTypes() []driver.ColumnType
	Err() error
}

func scanRows(rows rowScanner) (*models.QueryResult, error) {
	types := rows.ColumnTypes()
	columns := make([]string, len(types))
	for i, ct := range types {
		columns[i] = ct.Name()
	}

	data := make([][]interface{}, 0)
	for rows.Next() {
		dest := make([]any, len(types))
		for i, ct := range types {
			dest[i] = reflect.New(ct.ScanType()).Interface()
		}
		if err := rows.Scan(dest...); err != nil {
			return nil, fmt.Errorf("scan row: %w", err)
		}

		row := make([]interface{}, len(dest))
		for i, d := range dest {
			row[i] = convertValue(reflect.ValueOf(d).Elem())
		}
		data = append(data, row)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	return &models.QueryResult{
		Columns:   columns,
		Data:      data,
		TotalRows: len(data),
		Success:   true,
	}, nil
}

// convertValue unwraps Nullable pointers into JSON friendly values
func convertValue(v reflect.Value) interface{} {
	for v.Kind() == reflect.Pointer {
		if v.IsNil() {
			return nil
		}
		v = v.Elem()
	}
	if !v.IsValid() {
		return nil
	}
	switch val := v.Interface().(type) {
	case time.Time:
		return val.Format("2006-01-02 15:04:05")
	case []byte:
		return string(val)
	case float64:
		return finiteOrString(val, 64)
	case float32:
		return finiteOrString(float64(val), 32)
	case fmt.Stringer:
		if v.Kind() == reflect.Struct {
			return val.String()
		}
		return val
	default:
		return val
	}
}

// finiteOrString keeps NaN and infinities out of JSON, which cannot encode them
func finiteOrString(f float64, bits int) interface{} {
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return strconv.FormatFloat(f, 'g', -1, bits)
	}
	if bits == 32 {
		return float32(f)
	}
	return f
}
