package content

import (
	"database/sql"
	"encoding/json"
	"time"
)

// Record is one row of a kind, keyed by column name.
type Record map[string]any

// ID returns the record's primary key.
func (r Record) ID() string {
	id, _ := r["id"].(string)
	return id
}

// String returns a text column, or "" when absent or null.
func (r Record) String(name string) string {
	s, _ := r[name].(string)
	return s
}

// scanTargets allocates scan destinations for the kind's columns.
func (k *Kind) scanTargets() []any {
	cols := k.columns()
	dest := make([]any, len(cols))
	for i, col := range cols {
		switch col {
		case "id", "status":
			dest[i] = new(string)
		case "published_at", "archived_at", "created_at", "updated_at":
			dest[i] = new(sql.NullTime)
		default:
			f, _ := k.Field(col)
			if f.Type == Boolean {
				dest[i] = new(sql.NullBool)
			} else {
				dest[i] = new(sql.NullString)
			}
		}
	}
	return dest
}

// toRecord converts filled scan destinations into a Record.
func (k *Kind) toRecord(dest []any) Record {
	rec := Record{}
	for i, col := range k.columns() {
		switch v := dest[i].(type) {
		case *string:
			rec[col] = *v
		case *sql.NullTime:
			if v.Valid {
				t := v.Time.UTC()
				rec[col] = &t
			} else {
				rec[col] = (*time.Time)(nil)
			}
		case *sql.NullBool:
			if v.Valid {
				rec[col] = v.Bool
			} else {
				rec[col] = nil
			}
		case *sql.NullString:
			if !v.Valid {
				rec[col] = nil
				continue
			}
			if f, _ := k.Field(col); f.Type == JSON && json.Valid([]byte(v.String)) {
				rec[col] = json.RawMessage(v.String)
			} else {
				rec[col] = v.String
			}
		}
	}
	return rec
}

// storeValue converts a normalized value into a driver argument.
func storeValue(f Field, v any) (any, error) {
	if v == nil {
		return nil, nil
	}
	if f.Type == JSON {
		if raw, ok := v.(json.RawMessage); ok {
			return string(raw), nil
		}
		b, err := json.Marshal(v)
		if err != nil {
			return nil, err
		}
		return string(b), nil
	}
	return v, nil
}
