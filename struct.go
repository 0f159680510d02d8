package strata

import (
	"fmt"
	"math"
	"reflect"
	"strconv"
	"strings"
	"time"
)

// DescribeStruct builds a Registry from a struct carrying default values.
// Field metadata comes from struct tags:
//
//	conf:"name"       key segment (lowercased field name when absent, "-" skips)
//	doc:"..."         documentation written into materialized files
//	env:"KEY"         environment variable name (none when absent)
//	cli:"false"       disallow command-line overrides (allowed by default)
//	sensitive:"true"  mask the value in display and error output
//	required:"true"   no default; some source must supply the field
//	enum:"a,b,c"      restrict a string field to the listed symbols
//	min:"0" max:"10"  numeric bounds (duration bounds in nanoseconds)
//
// Nested structs become dot-separated sections. The struct's field values
// become the compiled-in defaults unless the field is marked required.
func DescribeStruct(defaults any) (*Registry, error) {
	v := reflect.ValueOf(defaults)
	if v.Kind() == reflect.Pointer {
		if v.IsNil() {
			return nil, fmt.Errorf("DescribeStruct requires a non-nil struct pointer or value")
		}
		v = v.Elem()
	}
	if v.Kind() != reflect.Struct {
		return nil, fmt.Errorf("DescribeStruct requires a struct, got %T", defaults)
	}

	var fields []FieldDescriptor
	if err := describeFields(v, "", &fields); err != nil {
		return nil, err
	}
	return NewRegistry(fields...)
}

// MustDescribeStruct is like DescribeStruct but panics on error.
func MustDescribeStruct(defaults any) *Registry {
	r, err := DescribeStruct(defaults)
	if err != nil {
		panic(fmt.Sprintf("strata: invalid defaults struct: %v", err))
	}
	return r
}

func describeFields(v reflect.Value, prefix string, out *[]FieldDescriptor) error {
	t := v.Type()
	for i := 0; i < v.NumField(); i++ {
		field := t.Field(i)
		if !field.IsExported() {
			continue
		}

		key := field.Tag.Get("conf")
		if key == "-" {
			continue
		}
		if key == "" {
			key = strings.ToLower(field.Name)
		}
		path := key
		if prefix != "" {
			path = prefix + "." + key
		}

		fv := v.Field(i)
		if fv.Kind() == reflect.Struct && fv.Type() != reflect.TypeOf(time.Duration(0)) {
			if err := describeFields(fv, path, out); err != nil {
				return err
			}
			continue
		}

		d, err := describeLeaf(field, fv, path)
		if err != nil {
			return err
		}
		*out = append(*out, d)
	}
	return nil
}

func describeLeaf(field reflect.StructField, fv reflect.Value, path string) (FieldDescriptor, error) {
	d := FieldDescriptor{
		Name:      path,
		Doc:       field.Tag.Get("doc"),
		EnvKey:    field.Tag.Get("env"),
		CLI:       true,
		Sensitive: field.Tag.Get("sensitive") == "true",
	}
	if d.EnvKey == "-" {
		d.EnvKey = ""
	}
	if cli := field.Tag.Get("cli"); cli == "false" || cli == "-" {
		d.CLI = false
	}
	if enum := field.Tag.Get("enum"); enum != "" {
		d.Enum = strings.Split(enum, ",")
	}

	kind, def, err := leafValue(fv, d.Enum != nil)
	if err != nil {
		return FieldDescriptor{}, fmt.Errorf("field %q: %w", path, err)
	}
	d.Kind = kind

	if field.Tag.Get("required") != "true" {
		d.Default = &def
	}

	for _, bound := range []struct {
		tag  string
		dest **float64
	}{{"min", &d.Min}, {"max", &d.Max}} {
		raw := field.Tag.Get(bound.tag)
		if raw == "" {
			continue
		}
		f, err := strconv.ParseFloat(raw, 64)
		if err != nil {
			return FieldDescriptor{}, fmt.Errorf("field %q: invalid %s tag %q", path, bound.tag, raw)
		}
		*bound.dest = &f
	}

	return d, nil
}

func leafValue(fv reflect.Value, isEnum bool) (Kind, Value, error) {
	if fv.Type() == reflect.TypeOf(time.Duration(0)) {
		return KindDuration, Duration(time.Duration(fv.Int())), nil
	}
	switch fv.Kind() {
	case reflect.Bool:
		return KindBool, Bool(fv.Bool()), nil
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return KindInt, Int(fv.Int()), nil
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		u := fv.Uint()
		if u > math.MaxInt64 {
			return KindInvalid, Value{}, fmt.Errorf("unsigned default %d overflows the integer kind", u)
		}
		return KindInt, Int(int64(u)), nil
	case reflect.Float32, reflect.Float64:
		return KindFloat, Float(fv.Float()), nil
	case reflect.String:
		if isEnum {
			return KindEnum, Enum(fv.String()), nil
		}
		return KindString, String(fv.String()), nil
	case reflect.Slice:
		if fv.Type().Elem().Kind() == reflect.String {
			return KindStrings, Strings(fv.Interface().([]string)...), nil
		}
	}
	return KindInvalid, Value{}, fmt.Errorf("unsupported field type %s", fv.Type())
}
