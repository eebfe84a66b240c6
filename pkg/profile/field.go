package profile

import (
	"fmt"
	"math"
	"sort"
	"strings"
)

// MaxEnum is the largest number of unique values to track before not trying to
// interpret the field as an enum.
const MaxEnum = 20

// Field summarizes the values of one column: booleans, numbers, or strings,
// any of which may be null. Adding a value of a different kind is an error.
type Field interface {
	Add(v any) (Field, error)
	// Kind is the narrowest type able to hold every value seen.
	Kind() string
	String() string
}

// EmptyField represents a column which holds only nulls.
// Adding any non-null value to an EmptyField returns a non-EmptyField.
type EmptyField struct{}

// Add turns the EmptyField into an appropriate field based on the passed type.
func (nf *EmptyField) Add(v any) (Field, error) {
	var f Field
	switch v.(type) {
	case nil:
		return nf, nil
	case bool:
		f = &BoolField{}
	case float64:
		f = &NumberField{Seen: make(map[float64]int)}
	case string:
		f = &StringField{Seen: make(map[string]int)}
	default:
		return nil, fmt.Errorf("unknown type %T added to %T", v, nf)
	}
	return f.Add(v)
}

func (nf *EmptyField) Kind() string {
	return "empty"
}

func (nf *EmptyField) String() string {
	return "empty"
}

// BoolField holds only booleans.
type BoolField struct {
	True  int
	False int
}

func (f *BoolField) Add(v any) (Field, error) {
	switch o := v.(type) {
	case nil:
		return f, nil
	case bool:
		if o {
			f.True++
		} else {
			f.False++
		}
		return f, nil
	default:
		return nil, fmt.Errorf("unknown type %T added to %T", o, f)
	}
}

func (f *BoolField) Kind() string {
	return "bool"
}

func (f *BoolField) String() string {
	return fmt.Sprintf("true:%d;false:%d", f.True, f.False)
}

// A NumberField holds only numbers. Keeps track of the properties of the
// numbers passed in to determine the narrowest type holding them.
type NumberField struct {
	// Integral tracks if all instances of this field are integers.
	Integral bool
	// Float32 tracks if all instances of this field can fit in a 32-bit floating
	// point type. Note that integers greater than about 2^23 cannot fit in
	// 32-bit floats.
	Float32 bool

	// Min and Max allow determining whether the number is unsigned, or, for
	// integers, the smallest type which can hold all seen values.
	Min, Max float64

	// Seen tracks the unique numbers passed to this field.
	// Stops collecting values after it contains more than MaxEnum entries.
	Seen map[float64]int
}

func (f *NumberField) Add(v any) (Field, error) {
	switch o := v.(type) {
	case nil:
		return f, nil
	case float64:
		if len(f.Seen) > 0 {
			f.Integral = f.Integral && isIntegral(o)
			f.Float32 = f.Float32 && isFloat32(o)
			f.Min = math.Min(f.Min, o)
			f.Max = math.Max(f.Max, o)
		} else {
			f.Integral = isIntegral(o)
			f.Float32 = isFloat32(o)
			f.Min = o
			f.Max = o
		}

		if len(f.Seen) <= MaxEnum {
			f.Seen[o]++
		}
		return f, nil
	default:
		return nil, fmt.Errorf("unknown type %T added to %T", o, f)
	}
}

func isIntegral(f float64) bool {
	return math.Round(f) == f
}

const (
	Float64FractionLength = 52
	Float32FractionLength = 23
	Float64Mask           = (1 << (Float64FractionLength - Float32FractionLength)) - 1
)

// isFloat32 reports whether f uses none of the float64-specific fraction bits.
// Does not handle exponents out of the range of float32.
func isFloat32(f float64) bool {
	return math.Float64bits(f)&Float64Mask == 0
}

func (f *NumberField) Kind() string {
	if !f.Integral {
		if f.Float32 {
			return "float32"
		}
		return "float64"
	}

	if f.Min < 0 {
		switch {
		case f.Min >= math.MinInt8 && f.Max <= math.MaxInt8:
			return "int8"
		case f.Min >= math.MinInt16 && f.Max <= math.MaxInt16:
			return "int16"
		case f.Min >= math.MinInt32 && f.Max <= math.MaxInt32:
			return "int32"
		default:
			return "int64"
		}
	}

	switch {
	case f.Max <= math.MaxUint8:
		return "uint8"
	case f.Max <= math.MaxUint16:
		return "uint16"
	case f.Max <= math.MaxUint32:
		return "uint32"
	default:
		return "uint64"
	}
}

// Levels returns the distinct values in ascending order, or nil if there were
// more than MaxEnum of them.
func (f *NumberField) Levels() []float64 {
	if len(f.Seen) > MaxEnum {
		return nil
	}
	levels := make([]float64, 0, len(f.Seen))
	for k := range f.Seen {
		levels = append(levels, k)
	}
	sort.Float64s(levels)
	return levels
}

func (f *NumberField) String() string {
	result := strings.Builder{}
	result.WriteString(f.Kind())
	result.WriteString(";")
	if f.Integral {
		result.WriteString(fmt.Sprintf("%d;%d;", int64(f.Min), int64(f.Max)))
	} else {
		result.WriteString(fmt.Sprintf("%f;%f;", f.Min, f.Max))
	}

	for _, k := range f.Levels() {
		if f.Integral {
			result.WriteString(fmt.Sprintf("%d:%d;", int64(k), f.Seen[k]))
		} else {
			result.WriteString(fmt.Sprintf("%f:%d;", k, f.Seen[k]))
		}
	}

	return result.String()
}

// A StringField holds only strings.
type StringField struct {
	// Seen attempts to determine if the field is actually an enum with a small
	// number of unique values.
	Seen map[string]int
}

func (f *StringField) Add(v any) (Field, error) {
	switch o := v.(type) {
	case nil:
		return f, nil
	case string:
		if len(f.Seen) <= MaxEnum {
			f.Seen[o]++
		}
		return f, nil
	default:
		return nil, fmt.Errorf("unknown type %T added to %T", o, f)
	}
}

func (f *StringField) Kind() string {
	if len(f.Seen) <= MaxEnum {
		return "enum"
	}
	return "string"
}

// Levels returns the distinct values in sorted order, or nil if there were
// more than MaxEnum of them.
func (f *StringField) Levels() []string {
	if len(f.Seen) > MaxEnum {
		return nil
	}
	levels := make([]string, 0, len(f.Seen))
	for k := range f.Seen {
		levels = append(levels, k)
	}
	sort.Strings(levels)
	return levels
}

func (f *StringField) String() string {
	result := strings.Builder{}
	levels := f.Levels()
	if levels == nil {
		return "string;"
	}

	result.WriteString(fmt.Sprintf("enum;%d;", len(levels)))
	for _, k := range levels {
		result.WriteString(fmt.Sprintf("%s:%d;", k, f.Seen[k]))
	}
	return result.String()
}
