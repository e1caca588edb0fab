package datarecording

import (
	"context"
	"fmt"
	"reflect"
	"strings"
	"sync"
	"time"

	"github.com/ClickHouse/clickhouse-go/v2"
	"github.com/fatih/structs"
	"github.com/tebeka/atexit"
)

// ClickHouseOptions tells where a ClickHouse recorder connects.
type ClickHouseOptions struct {
	Host      string
	Port      int
	Database  string
	Username  string
	Password  string
	BatchSize int
}

// clickHouseRecorder writes entries to ClickHouse in batches.
type clickHouseRecorder struct {
	conn      clickhouse.Conn
	lock      sync.Mutex
	batchSize int

	tables     map[string]*table
	tableOrder []string
	entryCount int

	execRecorder *execRecorder
}

// NewClickHouseRecorder connects to a ClickHouse server. It panics if the
// server cannot be reached.
func NewClickHouseRecorder(opts ClickHouseOptions) DataRecorder {
	if opts.BatchSize == 0 {
		opts.BatchSize = 100000
	}

	conn, err := clickhouse.Open(&clickhouse.Options{
		Addr: []string{fmt.Sprintf("%s:%d", opts.Host, opts.Port)},
		Auth: clickhouse.Auth{
			Database: opts.Database,
			Username: opts.Username,
			Password: opts.Password,
		},
		Settings: clickhouse.Settings{
			"max_execution_time": 60,
		},
		DialTimeout:      time.Second * 30,
		MaxOpenConns:     5,
		MaxIdleConns:     5,
		ConnMaxLifetime:  time.Hour,
		ConnOpenStrategy: clickhouse.ConnOpenInOrder,
	})
	if err != nil {
		panic(fmt.Errorf("failed to connect to ClickHouse: %w", err))
	}

	if err := conn.Ping(context.Background()); err != nil {
		panic(fmt.Errorf("failed to ping ClickHouse: %w", err))
	}

	r := &clickHouseRecorder{
		conn:      conn,
		batchSize: opts.BatchSize,
		tables:    make(map[string]*table),
	}

	r.execRecorder = newExecRecorder(r)
	r.execRecorder.Start()

	atexit.Register(func() { r.Close() })

	return r
}

// clickHouseType maps a Go field kind to a ClickHouse column type.
func clickHouseType(kind reflect.Kind) string {
	switch kind {
	case reflect.Bool:
		return "Bool"
	case reflect.Int8:
		return "Int8"
	case reflect.Int16:
		return "Int16"
	case reflect.Int32:
		return "Int32"
	case reflect.Int, reflect.Int64:
		return "Int64"
	case reflect.Uint8:
		return "UInt8"
	case reflect.Uint16:
		return "UInt16"
	case reflect.Uint32:
		return "UInt32"
	case reflect.Uint, reflect.Uint64:
		return "UInt64"
	case reflect.Float32:
		return "Float32"
	case reflect.Float64:
		return "Float64"
	default:
		return "String"
	}
}

func createTableSQL(tableName string, sampleEntry any) string {
	t := reflect.TypeOf(sampleEntry)
	columns := make([]string, 0, t.NumField())

	for _, name := range structs.Names(sampleEntry) {
		field, _ := t.FieldByName(name)
		columns = append(columns,
			name+" "+clickHouseType(field.Type.Kind()))
	}

	return fmt.Sprintf(
		"CREATE TABLE IF NOT EXISTS %s (\n\t%s\n) ENGINE = MergeTree() ORDER BY tuple()",
		tableName, strings.Join(columns, ",\n\t"))
}

func (r *clickHouseRecorder) CreateTable(tableName string, sampleEntry any) {
	if err := checkStructFields(sampleEntry); err != nil {
		panic(err)
	}

	r.lock.Lock()
	defer r.lock.Unlock()

	err := r.conn.Exec(context.Background(),
		createTableSQL(tableName, sampleEntry))
	if err != nil {
		panic(fmt.Errorf("failed to create table %s: %w", tableName, err))
	}

	r.tables[tableName] = &table{structType: reflect.TypeOf(sampleEntry)}
	r.tableOrder = append(r.tableOrder, tableName)
}

func (r *clickHouseRecorder) InsertData(tableName string, entry any) {
	r.lock.Lock()
	defer r.lock.Unlock()

	table, exists := r.tables[tableName]
	if !exists {
		panic(fmt.Sprintf("table %s does not exist", tableName))
	}

	table.entries = append(table.entries, entry)

	r.entryCount++
	if r.entryCount >= r.batchSize {
		r.flush()
	}
}

func (r *clickHouseRecorder) ListTables() []string {
	r.lock.Lock()
	defer r.lock.Unlock()

	return append([]string(nil), r.tableOrder...)
}

func (r *clickHouseRecorder) Flush() {
	r.lock.Lock()
	defer r.lock.Unlock()

	r.flush()
}

func (r *clickHouseRecorder) flush() {
	if r.entryCount == 0 {
		return
	}

	ctx := context.Background()

	for _, tableName := range r.tableOrder {
		table := r.tables[tableName]
		if len(table.entries) == 0 {
			continue
		}

		batch, err := r.conn.PrepareBatch(ctx, "INSERT INTO "+tableName)
		if err != nil {
			panic(fmt.Errorf("failed to prepare batch for %s: %w", tableName, err))
		}

		for _, entry := range table.entries {
			if err := batch.Append(fieldValues(entry)...); err != nil {
				panic(fmt.Errorf("failed to append to %s: %w", tableName, err))
			}
		}

		if err := batch.Send(); err != nil {
			panic(fmt.Errorf("failed to send batch to %s: %w", tableName, err))
		}

		table.entries = nil
	}

	r.entryCount = 0
}

func (r *clickHouseRecorder) Close() error {
	if r.execRecorder != nil {
		r.execRecorder.End()
		r.execRecorder = nil
	}

	r.Flush()

	return r.conn.Close()
}
