package services

import (
	"encoding/base64"
	"fmt"
	"log"
	"sync"

	"github.com/apache/arrow/go/v13/arrow"
	"github.com/goccy/go-json"
	"github.com/johnwonder/presto/common"
	"github.com/johnwonder/presto/operator"
	"github.com/substrait-io/substrait-go/types"
)

// Leaf consumes a tailer channel, decodes each record into a typed row and
// appends it to an in-memory row log. Readers get the log back as row
// sources: a bounded snapshot, or a live cursor that reports not-ready while
// it has caught up with ingestion.
type Leaf struct {
	Name   string
	Schema *common.Schema

	arrowSchema *arrow.Schema
	input       chan Message
	quit        chan struct{}
	mutex       sync.RWMutex
	rows        []operator.Row
	stopped     bool
}

func NewLeaf(name string, schema *common.Schema, input chan Message) (*Leaf, error) {
	arrowSchema, err := common.ToArrowSchema(schema)
	if err != nil {
		return nil, err
	}

	leaf := Leaf{
		Name:        name,
		Schema:      schema,
		arrowSchema: arrowSchema,
		input:       input,
		quit:        make(chan struct{}),
	}

	return &leaf, nil
}

func (leaf *Leaf) Start() {
	go leaf.process()
}

func (leaf *Leaf) Stop() {
	close(leaf.quit)

	leaf.mutex.Lock()
	leaf.stopped = true
	leaf.mutex.Unlock()
}

func (leaf *Leaf) process() {
	for {
		select {
		case <-leaf.quit:
			return
		case message := <-leaf.input:
			if len(message.Errors) > 0 {
				for _, err := range message.Errors {
					log.Printf("leaf %s: tailer error: %v", leaf.Name, err)
				}

				continue
			}

			if err := leaf.Ingest(message.Record.Value); err != nil {
				log.Printf("leaf %s: skipping record at offset %d: %v", leaf.Name, message.Record.Offset, err)
			}
		}
	}
}

// Ingest decodes one JSON record value and appends it to the row log. A
// record that does not match the declared schema is an error, not a panic:
// ingest must never feed a defective row to an operator.
func (leaf *Leaf) Ingest(value []byte) error {
	decoded := map[string]any{}
	if err := json.Unmarshal(value, &decoded); err != nil {
		return err
	}

	row, err := coerceRow(leaf.Schema, decoded)
	if err != nil {
		return err
	}

	leaf.mutex.Lock()
	leaf.rows = append(leaf.rows, row)
	leaf.mutex.Unlock()

	return nil
}

func (leaf *Leaf) Size() int {
	leaf.mutex.RLock()
	defer leaf.mutex.RUnlock()

	return len(leaf.rows)
}

func (leaf *Leaf) ArrowSchema() *arrow.Schema {
	return leaf.arrowSchema
}

func (leaf *Leaf) NamedStruct() (*types.NamedStruct, error) {
	return common.ToNamedStruct(leaf.Schema)
}

// Snapshot is a bounded row source over the rows ingested so far. It is
// always ready and ends once the snapshot is drained, so it is safe to scan
// to completion while ingestion continues.
func (leaf *Leaf) Snapshot() operator.RowSource {
	leaf.mutex.RLock()
	defer leaf.mutex.RUnlock()

	return &logRowSource{leaf: leaf, limit: len(leaf.rows)}
}

// Live is an unbounded row source that follows the log head. It answers
// not-ready while the reader has caught up with ingestion, and end-of-data
// only once the leaf has been stopped and the log is drained.
func (leaf *Leaf) Live() operator.RowSource {
	return &logRowSource{leaf: leaf, limit: -1}
}

type logRowSource struct {
	leaf     *Leaf
	limit    int
	position int
}

func (source *logRowSource) Schema() *arrow.Schema {
	return source.leaf.arrowSchema
}

func (source *logRowSource) Advance() (operator.Row, operator.CursorResult) {
	source.leaf.mutex.RLock()
	defer source.leaf.mutex.RUnlock()

	head := len(source.leaf.rows)
	if source.limit >= 0 && head > source.limit {
		head = source.limit
	}

	if source.position < head {
		row := source.leaf.rows[source.position]
		source.position++
		return row, operator.CursorHasRow
	}

	if source.limit >= 0 || source.leaf.stopped {
		return nil, operator.CursorEndOfData
	}

	return nil, operator.CursorNotReady
}

func coerceRow(schema *common.Schema, decoded map[string]any) (operator.Row, error) {
	row := make(operator.Row, len(schema.Fields))
	for index, field := range schema.Fields {
		value, present := decoded[field.Name]
		if !present || value == nil {
			if !field.Nullable {
				return nil, fmt.Errorf("field '%s' is not nullable but has no value", field.Name)
			}

			continue
		}

		coerced, err := coerceValue(field.Type.Name, value)
		if err != nil {
			return nil, fmt.Errorf("field '%s': %w", field.Name, err)
		}

		row[index] = coerced
	}

	return row, nil
}

func coerceValue(name common.TypeName, value any) (any, error) {
	switch name {
	case common.BooleanType:
		flag, ok := value.(bool)
		if !ok {
			return nil, fmt.Errorf("expected a boolean, got: %T", value)
		}

		return flag, nil
	case common.ByteType, common.ShortType, common.IntType, common.LongType,
		common.UByteType, common.UShortType, common.UIntType, common.ULongType,
		common.FloatType, common.DoubleType:
		number, ok := value.(float64)
		if !ok {
			return nil, fmt.Errorf("expected a number, got: %T", value)
		}

		return coerceNumber(name, number), nil
	case common.Utf8Type:
		text, ok := value.(string)
		if !ok {
			return nil, fmt.Errorf("expected a string, got: %T", value)
		}

		return text, nil
	case common.BytesType:
		text, ok := value.(string)
		if !ok {
			return nil, fmt.Errorf("expected base64 text, got: %T", value)
		}

		return base64.StdEncoding.DecodeString(text)
	default:
		return nil, fmt.Errorf("type: '%s' is not yet ingestable", name)
	}
}

func coerceNumber(name common.TypeName, number float64) any {
	switch name {
	case common.ByteType:
		return int8(number)
	case common.ShortType:
		return int16(number)
	case common.IntType:
		return int32(number)
	case common.LongType:
		return int64(number)
	case common.UByteType:
		return uint8(number)
	case common.UShortType:
		return uint16(number)
	case common.UIntType:
		return uint32(number)
	case common.ULongType:
		return uint64(number)
	case common.FloatType:
		return float32(number)
	default:
		return number
	}
}
