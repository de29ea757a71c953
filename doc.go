// Package crudr assembles parameterized single-table CRUD statements from plain Go values. It reflects over a key or data value (struct fields with optional `db` tags, string-keyed maps, or anything implementing FieldSource), turns the extracted (name, value) pairs into :named SQL fragments, and composes complete select/insert/update/delete statements ready to run through database/sql — without becoming an ORM: no joins, no migrations, no result mapping.

package crudr
