package crudr

import (
	"database/sql/driver"
	"fmt"
	"reflect"
	"sort"
	"strings"
	"sync"
)

// Field is one named statement parameter. Value always holds a driver.Value:
// nil, int64, float64, bool, string, time.Time or []byte.
type Field struct {
	Name  string
	Value any
}

// FieldSource lets a type expose its own (name, value) pairs and bypass
// reflection entirely. Returned values are still normalized to the
// driver.Value set.
type FieldSource interface {
	SQLFields() []Field
}

const cacheSize = 4096 // Default size for the type-plan cache

var valuerIface = reflect.TypeOf((*driver.Valuer)(nil)).Elem()
var typePlanCache = newPlanCache(cacheSize)

// fields extracts the ordered Field set of v under the engine's policy.
// A nil v yields an empty set. Struct fields extract in declaration order,
// map keys in sorted order, so repeated builds are byte-identical.
func (e *Engine) fields(v any) ([]Field, error) {
	if v == nil {
		return nil, nil
	}
	if src, ok := v.(FieldSource); ok {
		return normalizeAll(src.SQLFields())
	}

	// FAST-PATH: map[string]any
	if m, ok := v.(map[string]any); ok {
		names := make([]string, 0, len(m))
		for name := range m {
			names = append(names, name)
		}
		sort.Strings(names)
		out := make([]Field, 0, len(names))
		for _, name := range names {
			val, err := normalize(name, m[name])
			if err != nil {
				return nil, err
			}
			out = append(out, Field{Name: name, Value: val})
		}
		return out, nil
	}

	rv := reflect.ValueOf(v)
	for rv.IsValid() && (rv.Kind() == reflect.Interface || rv.Kind() == reflect.Pointer) {
		if rv.IsNil() {
			return nil, nil
		}
		rv = rv.Elem()
	}
	if !rv.IsValid() {
		return nil, nil
	}

	switch rv.Kind() {
	case reflect.Map:
		return e.mapFields(rv)
	case reflect.Struct:
		return e.structFields(rv)
	default:
		return nil, fmt.Errorf("%w (got %T)", ErrBadFieldObject, v)
	}
}

// mapFields extracts from a reflect.Map with string-kind keys, sorted by name.
func (e *Engine) mapFields(rv reflect.Value) ([]Field, error) {
	keyT := rv.Type().Key()
	if keyT.Kind() != reflect.String {
		return nil, fmt.Errorf("%w (map key must be a string, got %s)", ErrBadFieldObject, keyT)
	}

	names := make([]string, 0, rv.Len())
	iter := rv.MapRange()
	for iter.Next() {
		names = append(names, iter.Key().String())
	}
	sort.Strings(names)

	out := make([]Field, 0, len(names))
	for _, name := range names {
		mv := rv.MapIndex(reflect.ValueOf(name).Convert(keyT))
		val, err := normalize(name, concreteValue(mv))
		if err != nil {
			return nil, err
		}
		out = append(out, Field{Name: name, Value: val})
	}
	return out, nil
}

// structFields extracts from a struct using its cached typePlan.
func (e *Engine) structFields(rv reflect.Value) ([]Field, error) {
	plan := getTypePlan(rv.Type(), e.config.Tag, e.config.Embed)
	if plan.dup != "" {
		return nil, fmt.Errorf("%w: %q", ErrFieldAmbiguous, plan.dup)
	}

	out := make([]Field, 0, len(plan.fields))
	for _, fd := range plan.fields {
		val, err := normalize(fd.name, valueByPath(rv, fd.index))
		if err != nil {
			return nil, err
		}
		out = append(out, Field{Name: fd.name, Value: val})
	}
	return out, nil
}

// normalize converts v to a driver.Value, keeping the parameter contract
// restricted to the closed variant set database/sql itself accepts.
func normalize(name string, v any) (any, error) {
	out, err := driver.DefaultParameterConverter.ConvertValue(v)
	if err != nil {
		return nil, fmt.Errorf("%w %q: %v", ErrBadFieldValue, name, err)
	}
	return out, nil
}

// normalizeAll normalizes every value of a FieldSource-provided set.
func normalizeAll(fs []Field) ([]Field, error) {
	out := make([]Field, len(fs))
	for i, f := range fs {
		val, err := normalize(f.Name, f.Value)
		if err != nil {
			return nil, err
		}
		out[i] = Field{Name: f.Name, Value: val}
	}
	return out, nil
}

// concreteValue unwraps interface and pointer wrappers; nil becomes SQL NULL.
func concreteValue(v reflect.Value) any {
	for v.IsValid() && (v.Kind() == reflect.Interface || v.Kind() == reflect.Pointer) {
		if v.IsNil() {
			return nil
		}
		v = v.Elem()
	}
	if !v.IsValid() {
		return nil
	}
	return v.Interface()
}

// valueByPath extracts the value at the end of 'path' from 'root'.
// A nil pointer along the path yields nil, which represents SQL NULL.
func valueByPath(root reflect.Value, path []int) any {
	v := root
	for i, idx := range path {
		for v.Kind() == reflect.Pointer {
			if v.IsNil() {
				return nil
			}
			v = v.Elem()
		}
		v = v.Field(idx)
		if i == len(path)-1 {
			return concreteValue(v)
		}
	}
	return nil
}

// --------------------------------
// Type plans
// --------------------------------

// fieldDesc describes one extractable struct field: its column name and the
// flattened index path to reach it.
type fieldDesc struct {
	name  string
	index []int
}

// typePlan is the ordered extraction plan for one struct type (immutable).
// dup records the first column name claimed by two fields, if any.
type typePlan struct {
	fields []fieldDesc
	dup    string
}

// buildTypePlan walks a struct type and records its extractable fields in
// declaration order. Unexported fields are skipped; embedded fields are
// skipped unless embed is set, in which case they are flattened.
func buildTypePlan(base reflect.Type, tag string, embed bool) *typePlan {
	for base.Kind() == reflect.Pointer {
		base = base.Elem()
	}

	p := &typePlan{}
	if base.Kind() != reflect.Struct {
		return p
	}

	seen := make(map[string]bool, base.NumField())
	visited := map[reflect.Type]bool{}

	var walk func(rt reflect.Type, path []int)
	walk = func(rt reflect.Type, path []int) {
		if visited[rt] {
			return
		}
		visited[rt] = true
		defer delete(visited, rt)

		for i := 0; i < rt.NumField(); i++ {
			f := rt.Field(i)
			if f.PkgPath != "" { // unexported
				continue
			}

			if f.Anonymous {
				if !embed {
					continue
				}
				if shouldFlatten(f.Type) {
					next := f.Type
					if next.Kind() == reflect.Pointer {
						next = next.Elem()
					}
					walk(next, appendIndex(path, i))
					continue
				}
			}

			tv := f.Tag.Get(tag)
			if tv == "-" {
				continue
			}
			name := f.Name
			if tv != "" {
				if comma := strings.IndexByte(tv, ','); comma >= 0 {
					tv = tv[:comma]
				}
				if tv != "" {
					name = tv
				}
			}

			if seen[name] {
				if p.dup == "" {
					p.dup = name
				}
				continue
			}
			seen[name] = true
			p.fields = append(p.fields, fieldDesc{name: name, index: appendIndex(path, i)})
		}
	}

	walk(base, nil)
	return p
}

// shouldFlatten decides whether to descend into an embedded field of type ft.
func shouldFlatten(ft reflect.Type) bool {
	// Types carrying their own value semantics are leaves (no flatten).
	if ft.Implements(valuerIface) || reflect.PointerTo(ft).Implements(valuerIface) {
		return false
	}
	tt := ft
	if tt.Kind() == reflect.Pointer {
		tt = tt.Elem()
	}
	if tt.Kind() != reflect.Struct {
		return false
	}
	// Do not flatten time.Time (common leaf struct)
	if tt.PkgPath() == "time" && tt.Name() == "Time" {
		return false
	}
	return true
}

// appendIndex returns a new index path with idx appended.
func appendIndex(path []int, idx int) []int {
	out := make([]int, len(path)+1)
	copy(out, path)
	out[len(path)] = idx
	return out
}

// --------------------------------
// Cache
// --------------------------------

// planKey identifies a typePlan by struct type and extraction policy.
type planKey struct {
	t     reflect.Type
	tag   string
	embed bool
}

// planCache implements a two-tier map with cheap rotation to bound memory.
// 'curr' is the hot set; 'prev' is the previous generation. Lookups promote.
type planCache struct {
	mu   sync.RWMutex
	curr map[planKey]*typePlan
	prev map[planKey]*typePlan
	max  int
}

// newPlanCache creates a two-tier cache with a max size hint.
func newPlanCache(max int) *planCache {
	if max <= 0 {
		max = cacheSize
	}
	return &planCache{
		curr: make(map[planKey]*typePlan, max/2),
		prev: make(map[planKey]*typePlan),
		max:  max,
	}
}

// get returns the cached typePlan for key if present, promoting it to the
// current generation when found in the previous one.
func (c *planCache) get(k planKey) (*typePlan, bool) {
	c.mu.RLock()
	if p, ok := c.curr[k]; ok {
		c.mu.RUnlock()
		return p, true
	}
	if p, ok := c.prev[k]; ok {
		c.mu.RUnlock()
		c.mu.Lock()
		if len(c.curr) >= c.max {
			c.prev = c.curr
			c.curr = make(map[planKey]*typePlan, c.max/2)
		}
		c.curr[k] = p
		c.mu.Unlock()
		return p, true
	}
	c.mu.RUnlock()
	return nil, false
}

// put stores the typePlan for the given key, rotating generations if needed.
func (c *planCache) put(k planKey, p *typePlan) {
	c.mu.Lock()
	if len(c.curr) >= c.max {
		c.prev = c.curr
		c.curr = make(map[planKey]*typePlan, c.max/2)
	}
	c.curr[k] = p
	c.mu.Unlock()
}

// getTypePlan returns a cached typePlan for (t, tag, embed), or builds and
// caches it. The returned plan is immutable and safe for concurrent reuse.
func getTypePlan(t reflect.Type, tag string, embed bool) *typePlan {
	key := planKey{t: t, tag: tag, embed: embed}
	if p, ok := typePlanCache.get(key); ok {
		return p
	}
	p := buildTypePlan(t, tag, embed)
	typePlanCache.put(key, p)
	return p
}
