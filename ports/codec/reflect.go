package codec

import "reflect"

func derefPtr(ptr any) any {
	v := reflect.ValueOf(ptr)
	if v.Kind() != reflect.Pointer || v.IsNil() {
		return ptr
	}
	return v.Elem().Interface()
}

func setPtr(ptr any, value any) error {
	v := reflect.ValueOf(ptr)
	if v.Kind() != reflect.Pointer || v.IsNil() {
		return errNotAssignable
	}
	elem := v.Elem()
	rv := reflect.ValueOf(value)
	if !rv.IsValid() {
		elem.Set(reflect.Zero(elem.Type()))
		return nil
	}
	if rv.Type().AssignableTo(elem.Type()) {
		elem.Set(rv)
		return nil
	}
	if rv.Type().ConvertibleTo(elem.Type()) {
		elem.Set(rv.Convert(elem.Type()))
		return nil
	}
	return errNotAssignable
}
