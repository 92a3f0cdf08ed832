package operator

import (
	"github.com/apache/arrow/go/v13/arrow"
)

// Row is one row of source values, in declared column order. Rows are
// transient: a source may reuse or drop them once Advance has returned.
type Row []any

// CursorResult distinguishes "no row on this call" from "no more rows ever".
// The two must never be conflated: a source is allowed to answer
// CursorNotReady many times before producing a row or ending.
type CursorResult int

const (
	// CursorHasRow means Advance produced a row.
	CursorHasRow CursorResult = iota

	// CursorNotReady means the source is still working. The caller must
	// yield and retry on a later tick, never spin.
	CursorNotReady

	// CursorEndOfData is terminal; every later Advance answers it again.
	CursorEndOfData
)

// RowSource is a sequential row cursor, exclusively owned and advanced by a
// single operator.
type RowSource interface {
	// Schema declares the column types, fixed for the source's lifetime.
	Schema() *arrow.Schema

	// Advance attempts to produce the next row.
	Advance() (Row, CursorResult)
}

// InMemoryRowSource serves a fixed slice of rows and is always ready.
type InMemoryRowSource struct {
	schema   *arrow.Schema
	rows     []Row
	position int
}

func NewInMemoryRowSource(schema *arrow.Schema, rows []Row) *InMemoryRowSource {
	return &InMemoryRowSource{schema: schema, rows: rows}
}

func (source *InMemoryRowSource) Schema() *arrow.Schema {
	return source.schema
}

func (source *InMemoryRowSource) Advance() (Row, CursorResult) {
	if source.position >= len(source.rows) {
		return nil, CursorEndOfData
	}

	row := source.rows[source.position]
	source.position++

	return row, CursorHasRow
}

// RepeatingRowSource yields the same row forever and never reaches end of
// data. It exists to exercise the finish-then-drain path against an
// unbounded source.
type RepeatingRowSource struct {
	schema *arrow.Schema
	row    Row
}

func NewRepeatingRowSource(schema *arrow.Schema, row Row) *RepeatingRowSource {
	return &RepeatingRowSource{schema: schema, row: row}
}

func (source *RepeatingRowSource) Schema() *arrow.Schema {
	return source.schema
}

func (source *RepeatingRowSource) Advance() (Row, CursorResult) {
	return source.row, CursorHasRow
}
