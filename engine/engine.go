package engine

import (
	"errors"
	"fmt"

	"github.com/apache/arrow/go/v13/arrow"
	"github.com/apache/arrow/go/v13/arrow/memory"
	"github.com/johnwonder/presto/operator"
	"github.com/johnwonder/presto/services"
	"github.com/substrait-io/substrait-go/plan"
)

// Engine turns plans into record project pipelines over leaf snapshots and
// drives them through the pull protocol.
type Engine struct {
	allocator memory.Allocator
	batchSize int
}

func NewEngine(batchSize int) Engine {
	if batchSize < 1 {
		batchSize = operator.DefaultBatchSize
	}

	return Engine{
		allocator: memory.DefaultAllocator,
		batchSize: batchSize,
	}
}

// Execute resolves the plan's scanned leaf and builds a record project
// operator using the ProjectRel output mapping as the projection.
func (engine *Engine) Execute(leafs map[string]*services.Leaf, p *plan.Plan) (*BatchIterator, error) {
	project, read, err := extractProjectionFromPlan(p)
	if err != nil {
		return nil, err
	}

	leaf, ok := leafs[read.Names()[0]]
	if !ok {
		return nil, fmt.Errorf("unknown stream: '%s'", read.Names()[0])
	}

	mapping := make([]int, len(project.OutputMapping()))
	for index, id := range project.OutputMapping() {
		mapping[index] = int(id)
	}

	return engine.pipeline(leaf, mapping), nil
}

// Scan is the identity projection over a leaf snapshot.
func (engine *Engine) Scan(leaf *services.Leaf) *BatchIterator {
	mapping := make([]int, len(leaf.ArrowSchema().Fields()))
	for index := range mapping {
		mapping[index] = index
	}

	return engine.pipeline(leaf, mapping)
}

func (engine *Engine) pipeline(leaf *services.Leaf, mapping []int) *BatchIterator {
	tracker := operator.NewMemoryTracker()
	project := operator.NewRecordProjectOperator(engine.allocator, tracker, leaf.Snapshot(), mapping, engine.batchSize)

	return &BatchIterator{operator: project, tracker: tracker}
}

func extractProjectionFromPlan(p *plan.Plan) (*plan.ProjectRel, *plan.NamedTableReadRel, error) {
	if len(p.Relations()) != 1 {
		return nil, nil, fmt.Errorf("expecting only one relation part of the plan got: %d", len(p.Relations()))
	}

	relation := p.Relations()[0]
	if !relation.IsRoot() {
		return nil, nil, errors.New("expecting the plan relation to be a root one")
	}

	project, ok := relation.Root().Input().(*plan.ProjectRel)
	if !ok {
		return nil, nil, errors.New("expecting the plan root to be a projection")
	}

	read, ok := project.Input().(*plan.NamedTableReadRel)
	if !ok {
		return nil, nil, errors.New("expecting the projection input to be a named scan")
	}

	return project, read, nil
}

// BatchIterator adapts a pipeline of pull-protocol operators to the
// iterator shape the server streams from. It polls the root operator one
// tick at a time until it reports finished; the sources it is built over
// are bounded snapshots, so the loop always terminates.
type BatchIterator struct {
	operator *operator.RecordProjectOperator
	tracker  *operator.MemoryTracker
	current  arrow.Record
}

func (iterator *BatchIterator) Next() bool {
	for !iterator.operator.IsFinished() {
		record := iterator.operator.GetOutput()
		if record != nil {
			iterator.current = record
			return true
		}
	}

	return false
}

func (iterator *BatchIterator) Value() arrow.Record {
	return iterator.current
}

func (iterator *BatchIterator) Schema() *arrow.Schema {
	return iterator.operator.Schema()
}

// Tracker exposes the pipeline's accounting collaborator.
func (iterator *BatchIterator) Tracker() *operator.MemoryTracker {
	return iterator.tracker
}

func (iterator *BatchIterator) Close() {
	iterator.operator.Finish()
	for iterator.Next() {
		iterator.current.Release()
	}
}
