package fizz

import (
	"fmt"
	"reflect"

	"github.com/fizz-lang/fizz/internal/object"
)

// Variant is the Go-side view of a script tagged-union value.
type Variant struct {
	Type   string
	Tag    string
	Fields []interface{}
}

// Marshaller handles conversion between Go and Fizz values.
type Marshaller struct{}

func NewMarshaller() *Marshaller {
	return &Marshaller{}
}

// ToObject converts a Go value to a Fizz object. Every Go value maps to
// something: values without a natural script representation become unit.
func (m *Marshaller) ToObject(val interface{}) (object.Object, error) {
	if val == nil {
		return &object.Unit{}, nil
	}

	// Already a runtime object.
	if obj, ok := val.(object.Object); ok {
		return obj, nil
	}

	if variant, ok := val.(Variant); ok {
		fields := make([]object.Object, len(variant.Fields))
		for i, f := range variant.Fields {
			obj, err := m.ToObject(f)
			if err != nil {
				return nil, err
			}
			fields[i] = obj
		}
		return &object.Variant{TypeName: variant.Type, Tag: variant.Tag, Fields: fields}, nil
	}

	v := reflect.ValueOf(val)
	switch v.Kind() {
	case reflect.Bool:
		return &object.Boolean{Value: v.Bool()}, nil
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return &object.Integer{Value: v.Int()}, nil
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return &object.Integer{Value: int64(v.Uint())}, nil
	case reflect.Float32, reflect.Float64:
		return &object.Float{Value: v.Float()}, nil
	case reflect.String:
		return &object.String{Value: v.String()}, nil
	case reflect.Slice, reflect.Array:
		return m.sliceToList(v)
	case reflect.Map:
		return m.mapToRecord(v)
	case reflect.Struct:
		return m.structToRecord(v)
	case reflect.Ptr, reflect.Interface:
		if v.IsNil() {
			return &object.Unit{}, nil
		}
		return m.ToObject(v.Elem().Interface())
	default:
		return nil, fmt.Errorf("cannot marshal Go %s into a script value", v.Kind())
	}
}

func (m *Marshaller) sliceToList(v reflect.Value) (object.Object, error) {
	elements := make([]object.Object, v.Len())
	for i := 0; i < v.Len(); i++ {
		obj, err := m.ToObject(v.Index(i).Interface())
		if err != nil {
			return nil, err
		}
		elements[i] = obj
	}
	return object.NewList(elements), nil
}

func (m *Marshaller) mapToRecord(v reflect.Value) (object.Object, error) {
	if v.Type().Key().Kind() != reflect.String {
		return nil, fmt.Errorf("cannot marshal map with %s keys, only string keys", v.Type().Key())
	}
	fields := make(map[string]object.Object, v.Len())
	iter := v.MapRange()
	for iter.Next() {
		obj, err := m.ToObject(iter.Value().Interface())
		if err != nil {
			return nil, err
		}
		fields[iter.Key().String()] = obj
	}
	return &object.Record{Fields: fields}, nil
}

func (m *Marshaller) structToRecord(v reflect.Value) (object.Object, error) {
	t := v.Type()
	fields := make(map[string]object.Object)
	for i := 0; i < t.NumField(); i++ {
		f := t.Field(i)
		if f.PkgPath != "" {
			continue // unexported
		}
		obj, err := m.ToObject(v.Field(i).Interface())
		if err != nil {
			return nil, fmt.Errorf("field %s: %w", f.Name, err)
		}
		fields[f.Name] = obj
	}
	return &object.Record{Fields: fields}, nil
}

// FromObject converts a Fizz object to its generic Go representation.
// Functions come back as-is so they can be passed to Call.
func (m *Marshaller) FromObject(obj object.Object) (interface{}, error) {
	switch o := obj.(type) {
	case nil, *object.Unit:
		return nil, nil
	case *object.Boolean:
		return o.Value, nil
	case *object.Integer:
		return o.Value, nil
	case *object.Float:
		return o.Value, nil
	case *object.String:
		return o.Value, nil
	case *object.Tuple:
		return m.objectsToSlice(o.Elements)
	case *object.List:
		return m.objectsToSlice(o.ToSlice())
	case *object.Record:
		out := make(map[string]interface{}, len(o.Fields))
		for name, field := range o.Fields {
			val, err := m.FromObject(field)
			if err != nil {
				return nil, err
			}
			out[name] = val
		}
		return out, nil
	case *object.Variant:
		fields, err := m.objectsToSlice(o.Fields)
		if err != nil {
			return nil, err
		}
		return Variant{Type: o.TypeName, Tag: o.Tag, Fields: fields}, nil
	default:
		// Closures, host functions and partial applications stay opaque.
		return obj, nil
	}
}

func (m *Marshaller) objectsToSlice(objs []object.Object) ([]interface{}, error) {
	out := make([]interface{}, len(objs))
	for i, o := range objs {
		val, err := m.FromObject(o)
		if err != nil {
			return nil, err
		}
		out[i] = val
	}
	return out, nil
}

// FromObjectAs converts obj to a value assignable to targetType, for
// passing script values into typed Go function parameters.
func (m *Marshaller) FromObjectAs(obj object.Object, targetType reflect.Type) (reflect.Value, error) {
	if targetType.Kind() == reflect.Interface && targetType.NumMethod() == 0 {
		val, err := m.FromObject(obj)
		if err != nil {
			return reflect.Value{}, err
		}
		if val == nil {
			return reflect.Zero(targetType), nil
		}
		return reflect.ValueOf(val), nil
	}

	switch targetType.Kind() {
	case reflect.Bool:
		if b, ok := obj.(*object.Boolean); ok {
			return reflect.ValueOf(b.Value).Convert(targetType), nil
		}
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		if i, ok := obj.(*object.Integer); ok {
			return reflect.ValueOf(i.Value).Convert(targetType), nil
		}
	case reflect.Float32, reflect.Float64:
		switch o := obj.(type) {
		case *object.Float:
			return reflect.ValueOf(o.Value).Convert(targetType), nil
		case *object.Integer:
			return reflect.ValueOf(float64(o.Value)).Convert(targetType), nil
		}
	case reflect.String:
		if s, ok := obj.(*object.String); ok {
			return reflect.ValueOf(s.Value).Convert(targetType), nil
		}
	case reflect.Slice:
		if list, ok := obj.(*object.List); ok {
			elems := list.ToSlice()
			out := reflect.MakeSlice(targetType, len(elems), len(elems))
			for i, el := range elems {
				v, err := m.FromObjectAs(el, targetType.Elem())
				if err != nil {
					return reflect.Value{}, err
				}
				out.Index(i).Set(v)
			}
			return out, nil
		}
	case reflect.Map:
		if rec, ok := obj.(*object.Record); ok && targetType.Key().Kind() == reflect.String {
			out := reflect.MakeMapWithSize(targetType, len(rec.Fields))
			for name, field := range rec.Fields {
				v, err := m.FromObjectAs(field, targetType.Elem())
				if err != nil {
					return reflect.Value{}, err
				}
				out.SetMapIndex(reflect.ValueOf(name).Convert(targetType.Key()), v)
			}
			return out, nil
		}
	case reflect.Struct:
		if rec, ok := obj.(*object.Record); ok {
			return m.recordToStruct(rec, targetType)
		}
	case reflect.Ptr:
		inner, err := m.FromObjectAs(obj, targetType.Elem())
		if err != nil {
			return reflect.Value{}, err
		}
		out := reflect.New(targetType.Elem())
		out.Elem().Set(inner)
		return out, nil
	}
	return reflect.Value{}, fmt.Errorf("cannot convert %s value to Go %s", obj.Type(), targetType)
}

func (m *Marshaller) recordToStruct(rec *object.Record, targetType reflect.Type) (reflect.Value, error) {
	out := reflect.New(targetType).Elem()
	for i := 0; i < targetType.NumField(); i++ {
		f := targetType.Field(i)
		if f.PkgPath != "" {
			continue
		}
		field, ok := rec.Fields[f.Name]
		if !ok {
			continue
		}
		v, err := m.FromObjectAs(field, f.Type)
		if err != nil {
			return reflect.Value{}, fmt.Errorf("field %s: %w", f.Name, err)
		}
		out.Field(i).Set(v)
	}
	return out, nil
}
