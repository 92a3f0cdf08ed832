package engine

import (
	"errors"
	"fmt"

	"github.com/johnwonder/presto/services"
	"github.com/substrait-io/substrait-go/expr"
	"github.com/substrait-io/substrait-go/plan"
	"github.com/substrait-io/substrait-go/types"
	"vitess.io/vitess/go/vt/sqlparser"
)

type PhysicalRelation struct {
	name   string
	schema types.NamedStruct
}

func (pr *PhysicalRelation) createLookup() map[string]int32 {
	lookup := map[string]int32{}
	for index, name := range pr.schema.Names {
		lookup[name] = int32(index)
	}

	return lookup
}

type PhysicalRelationResolver func(name string) (*PhysicalRelation, error)

// Plan turns a projection-only SELECT over a leaf into a substrait plan.
// The plan's ProjectRel output mapping is what the executor later hands to
// the record project operator as its column subset/order.
func Plan(leafs map[string]*services.Leaf, sql string) (*plan.Plan, error) {
	resolver := func(name string) (*PhysicalRelation, error) {
		leaf, ok := leafs[name]
		if !ok {
			return nil, fmt.Errorf("unknown stream: '%s'", name)
		}

		namedStruct, err := leaf.NamedStruct()
		if err != nil {
			return nil, err
		}

		return &PhysicalRelation{name: leaf.Name, schema: *namedStruct}, nil
	}

	statement, err := sqlparser.Parse(sql)
	if err != nil {
		return nil, err
	}

	builder := plan.NewBuilderDefault()

	switch stm := statement.(type) {
	case *sqlparser.Select:
		if stm.Where != nil {
			return nil, errors.New("where clauses are not implemented yet")
		}

		scan, pr, err := handleFrom(builder, resolver, stm.From)
		if err != nil {
			return nil, err
		}

		rootNames, project, err := handleProjection(builder, scan, pr, stm.SelectExprs)
		if err != nil {
			return nil, err
		}

		p, err := builder.Plan(project, rootNames)
		if err != nil {
			return nil, err
		}

		return p, nil
	}

	return nil, errors.New("not implemented")
}

func handleFrom(builder plan.Builder, resolver PhysicalRelationResolver, from []sqlparser.TableExpr) (*plan.NamedTableReadRel, *PhysicalRelation, error) {
	if len(from) != 1 {
		return nil, nil, errors.New("expecting exactly one relation in the from clause")
	}

	aliased, ok := from[0].(*sqlparser.AliasedTableExpr)
	if !ok {
		return nil, nil, errors.New("not implemented")
	}

	physicalRelation, err := resolver(aliased.Expr.(sqlparser.TableName).Name.String())
	if err != nil {
		return nil, nil, err
	}

	scan := builder.NamedScan([]string{physicalRelation.name}, physicalRelation.schema)

	return scan, physicalRelation, nil
}

func handleProjection(builder plan.Builder, input plan.Rel, pr *PhysicalRelation, selectExprs sqlparser.SelectExprs) ([]string, *plan.ProjectRel, error) {
	rootNames, err := toColumnNames(pr, selectExprs)
	if err != nil {
		return nil, nil, err
	}

	lookup := pr.createLookup()
	expressions, err := toExpressions(builder, input, lookup, rootNames)
	if err != nil {
		return nil, nil, err
	}

	project, err := builder.ProjectRemap(input, toMapping(rootNames, lookup), expressions...)
	if err != nil {
		return nil, nil, err
	}

	return rootNames, project, nil
}

func toColumnNames(pr *PhysicalRelation, selectExprs sqlparser.SelectExprs) ([]string, error) {
	var columns []string
	for _, e := range selectExprs {
		switch column := e.(type) {
		case *sqlparser.StarExpr:
			columns = append(columns, pr.schema.Names...)
		case *sqlparser.AliasedExpr:
			name, ok := column.Expr.(*sqlparser.ColName)
			if !ok {
				return nil, errors.New("only plain column projections are implemented")
			}

			columns = append(columns, name.CompliantName())
		default:
			return nil, errors.New("only plain column projections are implemented")
		}
	}

	return columns, nil
}

func toExpressions(builder plan.Builder, input plan.Rel, lookup map[string]int32, columns []string) ([]expr.Expression, error) {
	expressions := make([]expr.Expression, len(columns))
	for index, column := range columns {
		position, ok := lookup[column]
		if !ok {
			return nil, fmt.Errorf("unknown column: '%s'", column)
		}

		expression, err := builder.RootFieldRef(input, position)
		if err != nil {
			return nil, err
		}

		expressions[index] = expression
	}

	return expressions, nil
}

func toMapping(columns []string, lookup map[string]int32) []int32 {
	mapping := make([]int32, len(columns))
	for index, column := range columns {
		mapping[index] = lookup[column]
	}

	return mapping
}
