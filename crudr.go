package crudr

import (
	"context"
	"database/sql"
	"errors"
)

// Engine is the main entry point. It holds the field-extraction policy and
// the optional instrumentation hooks.
// A single Engine instance is stateless after New and safe for concurrent use.
type Engine struct {
	config Config
}

// Config defines the field-extraction policy and optional hooks.
type Config struct {
	// Tag is the struct tag key used to rename columns, e.g. `db:"user_id"`.
	// Defaults to "db". A tag value of "-" skips the field.
	Tag string
	// Embed enables flattening of embedded struct fields. When false (the
	// default), only fields declared directly on the type are extracted.
	Embed bool
	// Hooks holds optional instrumentation callbacks, fired once per build.
	Hooks Hooks
}

// Hooks are optional callbacks invoked synchronously after the SQL text and
// parameter list are composed, immediately before the Statement is returned.
// Nil entries are skipped. The engine does not recover from a panicking hook.
type Hooks struct {
	SQL    func(query string, params []Field)
	Select func(query string, key, columns any)
	Insert func(query string, params any)
	Update func(query string, update, key any)
	Delete func(query string, key any)
}

// Execer abstracts *sql.DB / *sql.Tx / *sql.Conn ExecContext for easy testing.
type Execer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

// Queryer abstracts *sql.DB / *sql.Tx / *sql.Conn QueryContext for easy testing.
type Queryer interface {
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
}

var (
	ErrEmptyTable     = errors.New("crudr: empty table name")
	ErrEmptySQL       = errors.New("crudr: empty sql text")
	ErrNoFields       = errors.New("crudr: no fields to bind")
	ErrBadFieldObject = errors.New("crudr: field object must be a struct, map, or FieldSource")
	ErrBadFieldValue  = errors.New("crudr: unsupported field value")
	ErrFieldAmbiguous = errors.New("crudr: ambiguous column name")
	ErrParamConflict  = errors.New("crudr: conflicting values for parameter")
	ErrParamMissing   = errors.New("crudr: missing parameter")
)

// New returns a new Engine. Optionally provide a Config; unspecified fields
// fall back to defaults.
func New(cfg ...Config) *Engine {
	return &Engine{config: defaultConfig(cfg...)}
}

// defaultConfig merges user config with defaults.
func defaultConfig(config ...Config) Config {
	c := Config{}

	if len(config) > 0 {
		c = config[0]
	}

	if c.Tag == "" {
		c.Tag = "db"
	}

	return c
}
