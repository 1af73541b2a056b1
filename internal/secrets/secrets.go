// Package secrets masks secret-bearing configuration fields for display and
// merges a resubmitted document with previously stored secrets.
//
// A field is secret-bearing when its struct tag carries `secret:"true"`. The
// tag applies to the field's whole subtree, so a secret map[string]string
// treats every value as a secret. Only string kinds are ever rewritten.
package secrets

import (
	"fmt"
	"reflect"
	"sort"
	"strconv"
	"strings"
)

// Placeholder is shown in place of every non-empty secret. It is fixed, so it
// reveals neither the length nor the content of the value it replaces.
const Placeholder = "••••••••"

const tagName = "secret"

// IsPlaceholder reports whether s is the display placeholder.
func IsPlaceholder(s string) bool { return s == Placeholder }

// Mask returns a deep copy of v with every non-empty secret replaced by
// Placeholder. Empty secrets stay empty.
func Mask[T any](v T) T {
	return rewrite(v, reflect.Value{}, func(in string, _ reflect.Value) string {
		if in == "" {
			return ""
		}
		return Placeholder
	})
}

// Merge returns a deep copy of incoming in which every secret still equal to
// Placeholder takes the corresponding value from existing. A counterpart
// missing from existing is treated as empty. Any other incoming value,
// including "", wins.
func Merge[T any](incoming, existing T) T {
	return rewrite(incoming, reflect.ValueOf(&existing).Elem(), func(in string, old reflect.Value) string {
		if in != Placeholder {
			return in
		}
		if old.IsValid() && old.Kind() == reflect.String {
			return old.String()
		}
		return ""
	})
}

// MaskedFields returns the sorted dotted paths of every non-empty secret in v.
// Path segments use the json tag name when present.
func MaskedFields(v any) []string {
	var out []string
	collect(reflect.ValueOf(v), "", false, &out)
	sort.Strings(out)
	return out
}

type stringFunc func(in string, old reflect.Value) string

func rewrite[T any](v T, old reflect.Value, fn stringFunc) T {
	src := reflect.ValueOf(&v).Elem()
	dst := reflect.New(src.Type()).Elem()
	copyValue(dst, src, old, false, fn)
	return dst.Interface().(T)
}

// copyValue deep-copies src into dst. old walks the same shape in the
// existing document and is the zero Value wherever it has no counterpart.
func copyValue(dst, src, old reflect.Value, secret bool, fn stringFunc) {
	switch src.Kind() {
	case reflect.String:
		if secret {
			dst.SetString(fn(src.String(), old))
			return
		}
		dst.Set(src)
	case reflect.Pointer:
		if src.IsNil() {
			return
		}
		n := reflect.New(src.Type().Elem())
		copyValue(n.Elem(), src.Elem(), indirect(old), secret, fn)
		dst.Set(n)
	case reflect.Interface:
		if src.IsNil() {
			return
		}
		inner := src.Elem()
		n := reflect.New(inner.Type()).Elem()
		copyValue(n, inner, indirect(old), secret, fn)
		dst.Set(n)
	case reflect.Struct:
		t := src.Type()
		for i := 0; i < t.NumField(); i++ {
			f := t.Field(i)
			if !f.IsExported() {
				continue
			}
			copyValue(dst.Field(i), src.Field(i), field(old, t, i), secret || f.Tag.Get(tagName) == "true", fn)
		}
	case reflect.Map:
		if src.IsNil() {
			return
		}
		m := reflect.MakeMapWithSize(src.Type(), src.Len())
		iter := src.MapRange()
		for iter.Next() {
			n := reflect.New(src.Type().Elem()).Elem()
			copyValue(n, iter.Value(), mapIndex(old, iter.Key()), secret, fn)
			m.SetMapIndex(iter.Key(), n)
		}
		dst.Set(m)
	case reflect.Slice:
		if src.IsNil() {
			return
		}
		s := reflect.MakeSlice(src.Type(), src.Len(), src.Len())
		for i := 0; i < src.Len(); i++ {
			copyValue(s.Index(i), src.Index(i), index(old, i), secret, fn)
		}
		dst.Set(s)
	case reflect.Array:
		for i := 0; i < src.Len(); i++ {
			copyValue(dst.Index(i), src.Index(i), index(old, i), secret, fn)
		}
	default:
		dst.Set(src)
	}
}

func indirect(v reflect.Value) reflect.Value {
	for v.IsValid() && (v.Kind() == reflect.Pointer || v.Kind() == reflect.Interface) {
		if v.IsNil() {
			return reflect.Value{}
		}
		v = v.Elem()
	}
	return v
}

func field(old reflect.Value, t reflect.Type, i int) reflect.Value {
	old = indirect(old)
	if !old.IsValid() || old.Type() != t {
		return reflect.Value{}
	}
	return old.Field(i)
}

func mapIndex(old, key reflect.Value) reflect.Value {
	old = indirect(old)
	if !old.IsValid() || old.Kind() != reflect.Map || old.IsNil() || !key.Type().AssignableTo(old.Type().Key()) {
		return reflect.Value{}
	}
	return old.MapIndex(key)
}

func index(old reflect.Value, i int) reflect.Value {
	old = indirect(old)
	if !old.IsValid() || (old.Kind() != reflect.Slice && old.Kind() != reflect.Array) || i >= old.Len() {
		return reflect.Value{}
	}
	return old.Index(i)
}

func collect(v reflect.Value, path string, secret bool, out *[]string) {
	v = indirect(v)
	if !v.IsValid() {
		return
	}
	switch v.Kind() {
	case reflect.String:
		if secret && v.String() != "" {
			*out = append(*out, path)
		}
	case reflect.Struct:
		t := v.Type()
		for i := 0; i < t.NumField(); i++ {
			f := t.Field(i)
			if !f.IsExported() {
				continue
			}
			collect(v.Field(i), join(path, fieldName(f)), secret || f.Tag.Get(tagName) == "true", out)
		}
	case reflect.Map:
		iter := v.MapRange()
		for iter.Next() {
			collect(iter.Value(), join(path, keyString(iter.Key())), secret, out)
		}
	case reflect.Slice, reflect.Array:
		for i := 0; i < v.Len(); i++ {
			collect(v.Index(i), join(path, strconv.Itoa(i)), secret, out)
		}
	}
}

func fieldName(f reflect.StructField) string {
	if tag := f.Tag.Get("json"); tag != "" {
		name, _, _ := strings.Cut(tag, ",")
		if name != "" && name != "-" {
			return name
		}
	}
	return f.Name
}

func keyString(k reflect.Value) string {
	if k.Kind() == reflect.String {
		return k.String()
	}
	return fmt.Sprint(k.Interface())
}

func join(path, seg string) string {
	if path == "" {
		return seg
	}
	return path + "." + seg
}
