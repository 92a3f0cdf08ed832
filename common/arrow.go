package common

import (
	"errors"
	"fmt"

	"github.com/apache/arrow/go/v13/arrow"
	"github.com/substrait-io/substrait-go/types"
)

func ToArrowSchema(schema *Schema) (*arrow.Schema, error) {
	var arrowFields []arrow.Field
	for _, field := range schema.Fields {
		arrowField, err := toArrowField(&field)
		if err != nil {
			return nil, err
		}

		arrowFields = append(arrowFields, *arrowField)
	}

	return arrow.NewSchema(arrowFields, nil), nil
}

func toArrowField(field *Field) (*arrow.Field, error) {
	dataType, err := toArrowType(field.Type)
	if err != nil {
		return nil, err
	}

	arrowField := arrow.Field{
		Name:     field.Name,
		Nullable: field.Nullable,
		Type:     dataType,
	}

	return &arrowField, nil
}

func toArrowType(tpe Type) (arrow.DataType, error) {
	switch tpe.Name {
	case BooleanType:
		return arrow.FixedWidthTypes.Boolean, nil
	case ByteType:
		return arrow.PrimitiveTypes.Int8, nil
	case ShortType:
		return arrow.PrimitiveTypes.Int16, nil
	case IntType:
		return arrow.PrimitiveTypes.Int32, nil
	case LongType:
		return arrow.PrimitiveTypes.Int64, nil
	case UByteType:
		return arrow.PrimitiveTypes.Uint8, nil
	case UShortType:
		return arrow.PrimitiveTypes.Uint16, nil
	case UIntType:
		return arrow.PrimitiveTypes.Uint32, nil
	case ULongType:
		return arrow.PrimitiveTypes.Uint64, nil
	case FloatType:
		return arrow.PrimitiveTypes.Float32, nil
	case DoubleType:
		return arrow.PrimitiveTypes.Float64, nil
	case BytesType:
		return arrow.BinaryTypes.Binary, nil
	case Utf8Type:
		return arrow.BinaryTypes.String, nil
	default:
		return nil, errors.New(fmt.Sprintf("type: '%s' is not yet convertible to arrow type", tpe.Name))
	}
}

// ToNamedStruct converts a schema to its substrait representation, used by
// the planner when declaring named scans.
func ToNamedStruct(schema *Schema) (*types.NamedStruct, error) {
	names := make([]string, len(schema.Fields))
	structTypes := make([]types.Type, len(schema.Fields))
	for index, field := range schema.Fields {
		substraitType, err := toSubstraitType(field.Type, field.Nullable)
		if err != nil {
			return nil, err
		}

		names[index] = field.Name
		structTypes[index] = substraitType
	}

	namedStruct := types.NamedStruct{
		Names: names,
		Struct: types.StructType{
			Nullability: types.NullabilityRequired,
			Types:       structTypes,
		},
	}

	return &namedStruct, nil
}

func toSubstraitType(tpe Type, nullable bool) (types.Type, error) {
	nullability := types.NullabilityRequired
	if nullable {
		nullability = types.NullabilityNullable
	}

	switch tpe.Name {
	case BooleanType:
		return &types.BooleanType{Nullability: nullability}, nil
	case ByteType:
		return &types.Int8Type{Nullability: nullability}, nil
	case ShortType:
		return &types.Int16Type{Nullability: nullability}, nil
	case IntType:
		return &types.Int32Type{Nullability: nullability}, nil
	case LongType:
		return &types.Int64Type{Nullability: nullability}, nil
	case FloatType:
		return &types.Float32Type{Nullability: nullability}, nil
	case DoubleType:
		return &types.Float64Type{Nullability: nullability}, nil
	case BytesType:
		return &types.BinaryType{Nullability: nullability}, nil
	case Utf8Type:
		return &types.StringType{Nullability: nullability}, nil
	default:
		return nil, errors.New(fmt.Sprintf("type: '%s' is not yet convertible to substrait type", tpe.Name))
	}
}
