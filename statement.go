package crudr

import (
	"bytes"
	"database/sql"
	"fmt"
)

// Statement is a fully composed SQL statement: the final text plus its
// ordered, deduplicated named parameters. A Statement is either fully built
// or not built at all; it carries no connection state and may be executed
// any number of times through the entry points in exec.go.
type Statement struct {
	Table  string // empty for Raw statements
	Query  string
	Params []Field
}

// Args returns the parameters as sql.Named arguments, in order.
func (s *Statement) Args() []any {
	args := make([]any, len(s.Params))
	for i, f := range s.Params {
		args[i] = sql.Named(f.Name, f.Value)
	}
	return args
}

// Select composes "select {columns} from {table}{where}". An empty or nil
// columns object selects *; an empty key omits the WHERE clause and matches
// every row.
func (e *Engine) Select(table string, key, columns any) (*Statement, error) {
	if table == "" {
		return nil, ErrEmptyTable
	}
	kf, err := e.fields(key)
	if err != nil {
		return nil, err
	}
	cf, err := e.fields(columns)
	if err != nil {
		return nil, err
	}

	cols := "*"
	if len(cf) > 0 {
		cols = columnList(cf)
	}
	query := "select " + cols + " from " + table + predicate(kf)

	params, err := mergeFields(kf, cf)
	if err != nil {
		return nil, err
	}
	if h := e.config.Hooks.Select; h != nil {
		h(query, key, columns)
	}
	return &Statement{Table: table, Query: query, Params: params}, nil
}

// Insert composes "insert into {table} ({columns}) values ({placeholders});".
// The params object must yield at least one field.
func (e *Engine) Insert(table string, params any) (*Statement, error) {
	if table == "" {
		return nil, ErrEmptyTable
	}
	pf, err := e.fields(params)
	if err != nil {
		return nil, err
	}
	if len(pf) == 0 {
		return nil, fmt.Errorf("%w: insert into %s needs at least one column", ErrNoFields, table)
	}

	query := "insert into " + table + " (" + columnList(pf) + ") values (" + placeholderList(pf) + ");"

	merged, err := mergeFields(pf)
	if err != nil {
		return nil, err
	}
	if h := e.config.Hooks.Insert; h != nil {
		h(query, params)
	}
	return &Statement{Table: table, Query: query, Params: merged}, nil
}

// Update composes "update {table} set {assignments}{where};". The update
// object must yield at least one field; an empty key updates every row.
func (e *Engine) Update(table string, update, key any) (*Statement, error) {
	if table == "" {
		return nil, ErrEmptyTable
	}
	uf, err := e.fields(update)
	if err != nil {
		return nil, err
	}
	kf, err := e.fields(key)
	if err != nil {
		return nil, err
	}
	assigns, err := assignmentList(uf)
	if err != nil {
		return nil, err
	}

	query := "update " + table + " set " + assigns + predicate(kf) + ";"

	params, err := mergeFields(uf, kf)
	if err != nil {
		return nil, err
	}
	if h := e.config.Hooks.Update; h != nil {
		h(query, update, key)
	}
	return &Statement{Table: table, Query: query, Params: params}, nil
}

// Delete composes "delete from {table}{where};". An empty key omits the
// WHERE clause and deletes every row; that is deliberate and dangerous.
func (e *Engine) Delete(table string, key any) (*Statement, error) {
	if table == "" {
		return nil, ErrEmptyTable
	}
	kf, err := e.fields(key)
	if err != nil {
		return nil, err
	}

	query := "delete from " + table + predicate(kf) + ";"

	params, err := mergeFields(kf)
	if err != nil {
		return nil, err
	}
	if h := e.config.Hooks.Delete; h != nil {
		h(query, key)
	}
	return &Statement{Table: table, Query: query, Params: params}, nil
}

// Raw wraps caller-written SQL. The text is scanned for :name placeholders
// and only the referenced fields of the params object are bound, in order of
// first appearance; a referenced name with no matching field is an error.
func (e *Engine) Raw(query string, params any) (*Statement, error) {
	if query == "" {
		return nil, ErrEmptySQL
	}
	pf, err := e.fields(params)
	if err != nil {
		return nil, err
	}
	pf, err = mergeFields(pf)
	if err != nil {
		return nil, err
	}

	byName := make(map[string]Field, len(pf))
	for _, f := range pf {
		byName[f.Name] = f
	}

	names := scanParams(query)
	bound := make([]Field, 0, len(names))
	for _, name := range names {
		f, ok := byName[name]
		if !ok {
			return nil, fmt.Errorf("%w: %s", ErrParamMissing, name)
		}
		bound = append(bound, f)
	}

	if h := e.config.Hooks.SQL; h != nil {
		h(query, bound)
	}
	return &Statement{Query: query, Params: bound}, nil
}

// mergeFields concatenates field sets in order, collapsing exact
// (name, value) duplicates. The same name bound to a different value is a
// conflict: two same-named parameters are undefined downstream, so the build
// fails instead of silently picking one.
func mergeFields(sets ...[]Field) ([]Field, error) {
	n := 0
	for _, s := range sets {
		n += len(s)
	}

	out := make([]Field, 0, n)
	seen := make(map[string]any, n)
	for _, s := range sets {
		for _, f := range s {
			prev, ok := seen[f.Name]
			if !ok {
				seen[f.Name] = f.Value
				out = append(out, f)
				continue
			}
			if !equalValue(prev, f.Value) {
				return nil, fmt.Errorf("%w %q", ErrParamConflict, f.Name)
			}
		}
	}
	return out, nil
}

// equalValue compares two driver.Values ([]byte needs bytes.Equal).
func equalValue(a, b any) bool {
	ab, aok := a.([]byte)
	bb, bok := b.([]byte)
	if aok || bok {
		return aok && bok && bytes.Equal(ab, bb)
	}
	return a == b
}
