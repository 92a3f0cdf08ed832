package operator

import (
	"fmt"

	"github.com/apache/arrow/go/v13/arrow"
	"github.com/apache/arrow/go/v13/arrow/array"
	"github.com/apache/arrow/go/v13/arrow/memory"
)

// DefaultBatchSize is the row capacity used when a caller has no opinion.
const DefaultBatchSize = 1024

// batchBytesTarget caps how much variable-length data a single batch
// accumulates before it is emitted, independent of its row capacity.
const batchBytesTarget = 1 << 20

type lifecycle int

const (
	lifecycleRunning lifecycle = iota
	lifecycleFinishing
	lifecycleDone
)

// RecordProjectOperator pulls rows from a RowSource, copies a declared
// subset/order of their column values into an in-progress Arrow record
// builder and emits the builder as an immutable record once it is full or
// the source is drained. It is a source stage: it never needs input from an
// upstream operator.
//
// Finish is a cooperative request, not a cancellation. A finishing operator
// still flushes whatever rows it has buffered before IsFinished reports
// true, so no pulled row is ever dropped.
type RecordProjectOperator struct {
	context   Context
	source    RowSource
	mapping   []int
	arity     int
	schema    *arrow.Schema
	builder   *array.RecordBuilder
	rowCount  int
	bytes     int64
	maxRows   int
	state     lifecycle
	exhausted bool
}

// NewRecordProjectOperator builds an operator projecting the source columns
// named by mapping, in mapping order, into batches of at most maxRows rows.
// An invalid capacity or mapping is a wiring bug and panics.
func NewRecordProjectOperator(allocator memory.Allocator, context Context, source RowSource, mapping []int, maxRows int) *RecordProjectOperator {
	if maxRows < 1 {
		panic(fmt.Sprintf("record project operator needs a positive batch capacity, got: %d", maxRows))
	}

	sourceSchema := source.Schema()
	fields := make([]arrow.Field, len(mapping))
	for index, column := range mapping {
		if column < 0 || column >= len(sourceSchema.Fields()) {
			panic(fmt.Sprintf("projection refers to column %d of a %d column source", column, len(sourceSchema.Fields())))
		}

		fields[index] = sourceSchema.Field(column)
	}

	schema := arrow.NewSchema(fields, nil)

	return &RecordProjectOperator{
		context: context,
		source:  source,
		mapping: mapping,
		arity:   len(sourceSchema.Fields()),
		schema:  schema,
		builder: array.NewRecordBuilder(allocator, schema),
		maxRows: maxRows,
	}
}

// Schema is the projected output schema.
func (operator *RecordProjectOperator) Schema() *arrow.Schema {
	return operator.schema
}

func (operator *RecordProjectOperator) NeedsInput() bool {
	return false
}

func (operator *RecordProjectOperator) AddInput(batch arrow.Record) {
	panic("record project operator is a source stage and takes no input")
}

func (operator *RecordProjectOperator) Finish() {
	if operator.state == lifecycleRunning {
		operator.state = lifecycleFinishing
	}
}

func (operator *RecordProjectOperator) IsFinished() bool {
	return operator.state == lifecycleDone
}

// GetOutput pulls from the source at most until the builder is full or the
// source answers not-ready or end-of-data, then emits the builder if it is
// full or a drain is pending. It never blocks waiting for a slow source:
// not-ready ends the pull for this tick with the partial builder intact.
func (operator *RecordProjectOperator) GetOutput() arrow.Record {
	if operator.state == lifecycleDone {
		return nil
	}

	if operator.state == lifecycleRunning {
		for !operator.exhausted && !operator.builderFull() {
			row, result := operator.source.Advance()
			if result == CursorNotReady {
				break
			}

			if result == CursorEndOfData {
				operator.exhausted = true
				break
			}

			operator.appendRow(row)
		}
	}

	mustDrain := operator.exhausted || operator.state == lifecycleFinishing
	if operator.builderFull() || (mustDrain && operator.rowCount > 0) {
		return operator.flush()
	}

	if mustDrain {
		// nothing buffered and nothing left to pull
		operator.state = lifecycleDone
	}

	return nil
}

func (operator *RecordProjectOperator) builderFull() bool {
	return operator.rowCount >= operator.maxRows || operator.bytes >= batchBytesTarget
}

func (operator *RecordProjectOperator) flush() arrow.Record {
	record := operator.builder.NewRecord()
	operator.context.SetMemoryReservation(0)
	operator.context.RecordGeneratedOutput(operator.bytes, record.NumRows())
	operator.rowCount = 0
	operator.bytes = 0

	if operator.exhausted || operator.state == lifecycleFinishing {
		operator.state = lifecycleDone
	}

	return record
}

func (operator *RecordProjectOperator) appendRow(row Row) {
	if len(row) != operator.arity {
		panic(fmt.Sprintf("source declared %d columns but produced a row with %d values", operator.arity, len(row)))
	}

	for index, column := range operator.mapping {
		operator.bytes += appendValue(operator.builder.Field(index), row[column])
	}

	operator.rowCount++
	operator.context.SetMemoryReservation(operator.bytes)
}

func appendValue(builder array.Builder, value any) int64 {
	if value == nil {
		builder.AppendNull()
		return 0
	}

	// a mismatched value panics on the type assertion, naming both sides
	switch typed := builder.(type) {
	case *array.BooleanBuilder:
		typed.Append(value.(bool))
		return 1
	case *array.Int8Builder:
		typed.Append(value.(int8))
		return 1
	case *array.Int16Builder:
		typed.Append(value.(int16))
		return 2
	case *array.Int32Builder:
		typed.Append(value.(int32))
		return 4
	case *array.Int64Builder:
		typed.Append(value.(int64))
		return 8
	case *array.Uint8Builder:
		typed.Append(value.(uint8))
		return 1
	case *array.Uint16Builder:
		typed.Append(value.(uint16))
		return 2
	case *array.Uint32Builder:
		typed.Append(value.(uint32))
		return 4
	case *array.Uint64Builder:
		typed.Append(value.(uint64))
		return 8
	case *array.Float32Builder:
		typed.Append(value.(float32))
		return 4
	case *array.Float64Builder:
		typed.Append(value.(float64))
		return 8
	case *array.StringBuilder:
		projected := value.(string)
		typed.Append(projected)
		return int64(len(projected))
	case *array.BinaryBuilder:
		projected := value.([]byte)
		typed.Append(projected)
		return int64(len(projected))
	default:
		panic(fmt.Sprintf("column type '%s' is not projectable", builder.Type().Name()))
	}
}
