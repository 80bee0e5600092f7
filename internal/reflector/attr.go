package reflector

import (
	"fmt"
	"reflect"
	"strings"
)

// fieldByAttrName locates an exported struct field matching name, either by
// field name (case-insensitive) or by json tag. Embedded structs are searched
// through their promoted fields.
func fieldByAttrName(v reflect.Value, name string) (reflect.Value, bool) {
	t := v.Type()
	for i := 0; i < t.NumField(); i++ {
		sf := t.Field(i)
		if sf.Anonymous {
			fv := v.Field(i)
			if fv.Kind() == reflect.Pointer {
				if fv.IsNil() {
					continue
				}
				fv = fv.Elem()
			}
			if fv.Kind() == reflect.Struct {
				if inner, ok := fieldByAttrName(fv, name); ok {
					return inner, true
				}
			}
			continue
		}
		if !sf.IsExported() {
			continue
		}
		tag := strings.Split(sf.Tag.Get("json"), ",")[0]
		if tag == name || strings.EqualFold(sf.Name, name) {
			return v.Field(i), true
		}
	}
	return reflect.Value{}, false
}

func structValue(target any) (reflect.Value, error) {
	v := reflect.ValueOf(target)
	if v.Kind() != reflect.Pointer || v.IsNil() {
		return reflect.Value{}, fmt.Errorf("reflector: need non-nil struct pointer, got %T", target)
	}
	v = v.Elem()
	if v.Kind() != reflect.Struct {
		return reflect.Value{}, fmt.Errorf("reflector: need struct pointer, got %T", target)
	}
	return v, nil
}

// SetAttr sets the named attribute on target (a struct pointer) to value.
// Values are converted where the types allow it, which covers the usual
// json round-trip widening (float64 into int fields and the like).
func SetAttr(target any, name string, value any) error {
	v, err := structValue(target)
	if err != nil {
		return err
	}
	fv, ok := fieldByAttrName(v, name)
	if !ok {
		return fmt.Errorf("reflector: %s has no attribute %q", v.Type(), name)
	}
	if !fv.CanSet() {
		return fmt.Errorf("reflector: attribute %q of %s is not settable", name, v.Type())
	}

	if value == nil {
		fv.SetZero()
		return nil
	}

	rv := reflect.ValueOf(value)
	switch {
	case rv.Type().AssignableTo(fv.Type()):
		fv.Set(rv)
	case rv.Type().ConvertibleTo(fv.Type()):
		cv := rv.Convert(fv.Type())
		if lossyConversion(rv, cv) {
			return fmt.Errorf(
				"reflector: cannot set attribute %q of %s to %v (%T) without loss",
				name, v.Type(), value, value,
			)
		}
		fv.Set(cv)
	default:
		return fmt.Errorf("reflector: cannot set attribute %q of %s to %T", name, v.Type(), value)
	}
	return nil
}

// lossyConversion reports whether converting orig to converted discarded
// information, by converting back and comparing. A conversion with no way
// back (int into string and the like) counts as lossy.
func lossyConversion(orig, converted reflect.Value) bool {
	if !converted.Type().ConvertibleTo(orig.Type()) {
		return true
	}
	if !orig.Comparable() {
		return false
	}
	return !orig.Equal(converted.Convert(orig.Type()))
}

// Attr returns the named attribute of target (a struct or struct pointer).
func Attr(target any, name string) (any, error) {
	v := reflect.ValueOf(target)
	if v.Kind() == reflect.Pointer {
		if v.IsNil() {
			return nil, fmt.Errorf("reflector: nil target")
		}
		v = v.Elem()
	}
	if v.Kind() != reflect.Struct {
		return nil, fmt.Errorf("reflector: need struct, got %T", target)
	}
	fv, ok := fieldByAttrName(v, name)
	if !ok {
		return nil, fmt.Errorf("reflector: %s has no attribute %q", v.Type(), name)
	}
	return fv.Interface(), nil
}
