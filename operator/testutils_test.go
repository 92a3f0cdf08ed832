package operator

import (
	"testing"

	"github.com/apache/arrow/go/v13/arrow"
	"github.com/apache/arrow/go/v13/arrow/array"
	"github.com/apache/arrow/go/v13/arrow/memory"
)

func utf8Schema() *arrow.Schema {
	return arrow.NewSchema([]arrow.Field{
		{Name: "value", Type: arrow.BinaryTypes.String},
	}, nil)
}

func utf8LongSchema() *arrow.Schema {
	return arrow.NewSchema([]arrow.Field{
		{Name: "name", Type: arrow.BinaryTypes.String},
		{Name: "count", Type: arrow.PrimitiveTypes.Int64},
	}, nil)
}

func identityMapping(schema *arrow.Schema) []int {
	mapping := make([]int, len(schema.Fields()))
	for index := range mapping {
		mapping[index] = index
	}

	return mapping
}

func newTestOperator(source RowSource, mapping []int, maxRows int) (*RecordProjectOperator, *MemoryTracker) {
	tracker := NewMemoryTracker()
	return NewRecordProjectOperator(memory.DefaultAllocator, tracker, source, mapping, maxRows), tracker
}

// stutterSource answers not-ready on every other advance, starting with
// not-ready, which makes the retry schedule of a slow source deterministic.
type stutterSource struct {
	inner RowSource
	tick  int
}

func (source *stutterSource) Schema() *arrow.Schema {
	return source.inner.Schema()
}

func (source *stutterSource) Advance() (Row, CursorResult) {
	source.tick++
	if source.tick%2 == 1 {
		return nil, CursorNotReady
	}

	return source.inner.Advance()
}

// drain polls the operator until it reports finished, failing the test if
// that takes more than limit calls.
func drain(t *testing.T, operator *RecordProjectOperator, limit int) []arrow.Record {
	t.Helper()

	var records []arrow.Record
	for calls := 0; !operator.IsFinished(); calls++ {
		if calls > limit {
			t.Fatalf("operator still not finished after %d calls", limit)
		}

		record := operator.GetOutput()
		if record != nil {
			records = append(records, record)
		}
	}

	return records
}

func recordRows(t *testing.T, record arrow.Record) []Row {
	t.Helper()

	rows := make([]Row, record.NumRows())
	for rowIndex := range rows {
		row := make(Row, record.NumCols())
		for columnIndex := 0; columnIndex < int(record.NumCols()); columnIndex++ {
			row[columnIndex] = columnValue(t, record.Column(columnIndex), rowIndex)
		}

		rows[rowIndex] = row
	}

	return rows
}

func columnValue(t *testing.T, column arrow.Array, row int) any {
	t.Helper()

	if column.IsNull(row) {
		return nil
	}

	switch typed := column.(type) {
	case *array.Boolean:
		return typed.Value(row)
	case *array.Int16:
		return typed.Value(row)
	case *array.Int64:
		return typed.Value(row)
	case *array.Float64:
		return typed.Value(row)
	case *array.String:
		return typed.Value(row)
	default:
		t.Fatalf("unexpected column type in test data: %T", column)
		return nil
	}
}

func assertRows(t *testing.T, records []arrow.Record, expected []Row) {
	t.Helper()

	var produced []Row
	for _, record := range records {
		produced = append(produced, recordRows(t, record)...)
	}

	if len(produced) != len(expected) {
		t.Fatalf("expected %d rows, got: %d", len(expected), len(produced))
	}

	for rowIndex, row := range expected {
		if len(produced[rowIndex]) != len(row) {
			t.Fatalf("expected row %d to have %d values, got: %d", rowIndex, len(row), len(produced[rowIndex]))
		}

		for columnIndex, value := range row {
			if produced[rowIndex][columnIndex] != value {
				t.Errorf("expected row %d column %d to be %v, got: %v", rowIndex, columnIndex, value, produced[rowIndex][columnIndex])
			}
		}
	}
}

func releaseAll(records []arrow.Record) {
	for _, record := range records {
		record.Release()
	}
}
