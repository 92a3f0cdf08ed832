package common

import (
	"os"

	"gopkg.in/yaml.v3"
)

type TypeName string

const (
	BooleanType TypeName = "boolean"
	ByteType    TypeName = "byte"
	ShortType   TypeName = "short"
	IntType     TypeName = "int"
	LongType    TypeName = "long"
	UByteType   TypeName = "ubyte"
	UShortType  TypeName = "ushort"
	UIntType    TypeName = "uint"
	ULongType   TypeName = "ulong"
	FloatType   TypeName = "float"
	DoubleType  TypeName = "double"
	BytesType   TypeName = "bytes"
	Utf8Type    TypeName = "utf8"
)

// Type is a scalar column type. The name is declared once per column and
// stays fixed for the lifetime of the stream that carries it.
type Type struct {
	Name TypeName
}

type Field struct {
	Name     string
	Nullable bool
	Type     Type
	Metadata map[string]string
}

type Fields []Field

type Schema struct {
	Fields Fields
}

func FromYaml(path string) (*Schema, error) {
	yml, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	schema := Schema{}
	err = yaml.Unmarshal(yml, &schema)
	if err != nil {
		return nil, err
	}

	return &schema, nil
}
