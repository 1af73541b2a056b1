package gwconfig

import (
	"fmt"
	"math"
	"reflect"
	"sort"
	"strings"
	"sync"
)

// Options controls document validation.
type Options struct {
	// AllowUnknown ignores keys the schema does not define instead of
	// reporting them.
	AllowUnknown bool
}

// Validate turns an untrusted document into a Config. Keys are normalized
// before matching, fields absent from doc keep their Default values, and
// every problem is reported as a FieldError. Validate is pure.
func Validate(doc map[string]any, opts Options) (Config, error) {
	cfg := Default()
	if doc == nil {
		return Config{}, ValidationErrors{{Reason: "document must be an object"}}
	}
	d := &decoder{opts: opts}
	d.decode(reflect.ValueOf(&cfg).Elem(), stringKeys(doc), "")
	if len(d.errs) > 0 {
		return Config{}, d.errs.sorted()
	}
	if cfg.Providers == nil {
		cfg.Providers = map[string]ProviderConfig{}
	}
	if cfg.Channels == nil {
		cfg.Channels = map[string]ChannelConfig{}
	}
	if errs := checkRules(&cfg); len(errs) > 0 {
		return Config{}, errs.sorted()
	}
	return cfg, nil
}

type decoder struct {
	opts Options
	errs ValidationErrors
}

func (d *decoder) fail(path, format string, a ...any) {
	d.errs = append(d.errs, FieldError{Path: path, Reason: fmt.Sprintf(format, a...)})
}

func (d *decoder) decode(dst reflect.Value, raw any, path string) {
	if raw == nil {
		if dst.Kind() != reflect.Struct {
			dst.Set(reflect.Zero(dst.Type()))
		}
		return
	}
	switch dst.Kind() {
	case reflect.String:
		s, ok := raw.(string)
		if !ok {
			d.fail(path, "expected string, got %s", kindOf(raw))
			return
		}
		dst.SetString(s)
	case reflect.Bool:
		b, ok := raw.(bool)
		if !ok {
			d.fail(path, "expected boolean, got %s", kindOf(raw))
			return
		}
		dst.SetBool(b)
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		n, ok := asInt(raw)
		if !ok {
			d.fail(path, "expected integer, got %s", kindOf(raw))
			return
		}
		if dst.OverflowInt(n) {
			d.fail(path, "integer out of range")
			return
		}
		dst.SetInt(n)
	case reflect.Float32, reflect.Float64:
		f, ok := asFloat(raw)
		if !ok {
			d.fail(path, "expected number, got %s", kindOf(raw))
			return
		}
		dst.SetFloat(f)
	case reflect.Slice:
		items, ok := raw.([]any)
		if !ok {
			d.fail(path, "expected array, got %s", kindOf(raw))
			return
		}
		s := reflect.MakeSlice(dst.Type(), len(items), len(items))
		for i, item := range items {
			d.decode(s.Index(i), item, fmt.Sprintf("%s[%d]", path, i))
		}
		dst.Set(s)
	case reflect.Map:
		d.decodeMap(dst, raw, path)
	case reflect.Struct:
		d.decodeStruct(dst, raw, path)
	case reflect.Pointer:
		n := reflect.New(dst.Type().Elem())
		d.decode(n.Elem(), raw, path)
		dst.Set(n)
	case reflect.Interface:
		dst.Set(reflect.ValueOf(raw))
	default:
		d.fail(path, "unsupported field type %s", dst.Type())
	}
}

// decodeMap fills a name-keyed map. Names of struct-valued maps (providers,
// channels) are lower-cased and trimmed; two keys that fold to the same name
// are reported.
func (d *decoder) decodeMap(dst reflect.Value, raw any, path string) {
	obj, ok := raw.(map[string]any)
	if !ok {
		d.fail(path, "expected object, got %s", kindOf(raw))
		return
	}
	elem := dst.Type().Elem()
	named := elem.Kind() == reflect.Struct
	m := reflect.MakeMapWithSize(dst.Type(), len(obj))
	seen := make(map[string]string, len(obj))
	for _, k := range sortedKeys(obj) {
		name := k
		if named {
			name = normalizeName(k)
		}
		p := join(path, name)
		if name == "" {
			d.fail(join(path, k), "name must not be empty")
			continue
		}
		if prev, dup := seen[name]; dup {
			d.fail(p, "duplicate key (also given as %q)", prev)
			continue
		}
		seen[name] = k
		v := reflect.New(elem).Elem()
		d.decode(v, obj[k], p)
		m.SetMapIndex(reflect.ValueOf(name).Convert(dst.Type().Key()), v)
	}
	dst.Set(m)
}

func (d *decoder) decodeStruct(dst reflect.Value, raw any, path string) {
	obj, ok := raw.(map[string]any)
	if !ok {
		d.fail(path, "expected object, got %s", kindOf(raw))
		return
	}
	fields := fieldsOf(dst.Type())
	seen := make(map[string]string, len(obj))
	for _, k := range sortedKeys(obj) {
		canon := CanonicalKey(k)
		f, known := fields[canon]
		if !known {
			if !d.opts.AllowUnknown {
				d.fail(join(path, k), "unknown field")
			}
			continue
		}
		p := join(path, f.name)
		if prev, dup := seen[canon]; dup {
			d.fail(p, "duplicate key (also given as %q)", prev)
			continue
		}
		seen[canon] = k
		d.decode(dst.Field(f.index), obj[k], p)
	}
}

type fieldInfo struct {
	index int
	name  string // persisted json name
}

var fieldCache sync.Map // reflect.Type -> map[string]fieldInfo

// fieldsOf indexes a struct's fields by the canonical form of their json name.
func fieldsOf(t reflect.Type) map[string]fieldInfo {
	if v, ok := fieldCache.Load(t); ok {
		return v.(map[string]fieldInfo)
	}
	out := make(map[string]fieldInfo, t.NumField())
	for i := 0; i < t.NumField(); i++ {
		f := t.Field(i)
		if !f.IsExported() {
			continue
		}
		name := jsonName(f)
		if name == "-" {
			continue
		}
		out[CanonicalKey(name)] = fieldInfo{index: i, name: name}
	}
	fieldCache.Store(t, out)
	return out
}

func jsonName(f reflect.StructField) string {
	name, _, _ := strings.Cut(f.Tag.Get("json"), ",")
	if name == "" {
		return f.Name
	}
	return name
}

func asInt(raw any) (int64, bool) {
	switch n := raw.(type) {
	case int:
		return int64(n), true
	case int64:
		return n, true
	case int32:
		return int64(n), true
	case uint64:
		if n > math.MaxInt64 {
			return 0, false
		}
		return int64(n), true
	case float64:
		if math.IsInf(n, 0) || math.IsNaN(n) || n != math.Trunc(n) || math.Abs(n) > 1<<53 {
			return 0, false
		}
		return int64(n), true
	default:
		return 0, false
	}
}

func asFloat(raw any) (float64, bool) {
	switch n := raw.(type) {
	case float64:
		return n, !math.IsNaN(n) && !math.IsInf(n, 0)
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	case uint64:
		return float64(n), true
	default:
		return 0, false
	}
}

// kindOf names the JSON-ish kind of a decoded value for error messages.
func kindOf(v any) string {
	switch v.(type) {
	case nil:
		return "null"
	case string:
		return "string"
	case bool:
		return "boolean"
	case int, int32, int64, uint64, float32, float64:
		return "number"
	case []any:
		return "array"
	case map[string]any:
		return "object"
	default:
		return fmt.Sprintf("%T", v)
	}
}

func sortedKeys(m map[string]any) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func join(path, seg string) string {
	if path == "" {
		return seg
	}
	return path + "." + seg
}
