package content

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/danielhkuo/rinkside/db"
	"github.com/danielhkuo/rinkside/models"
)

var (
	ErrNotFound         = errors.New("record not found")
	ErrConflict         = errors.New("record conflicts with an existing one")
	ErrInvalidReference = errors.New("record references a missing row")
	ErrNoLifecycle      = errors.New("kind has no publish lifecycle")
)

const (
	DefaultLimit = 20
	MaxLimit     = 100
)

// querier is satisfied by both *sql.DB and *sql.Tx.
type querier interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// Store reads and writes every registered kind.
type Store struct {
	db      *sql.DB
	dialect db.Dialect
	now     func() time.Time
}

func NewStore(conn *sql.DB, dialect db.Dialect) *Store {
	return &Store{
		db:      conn,
		dialect: dialect,
		now:     func() time.Time { return time.Now().UTC() },
	}
}

// ListQuery selects a page of records.
type ListQuery struct {
	Status  string
	Filters map[string]string
	Search  string
	Page    int // 1-based
	Limit   int
}

func (q *ListQuery) normalize() {
	if q.Page < 1 {
		q.Page = 1
	}
	if q.Limit < 1 {
		q.Limit = DefaultLimit
	}
	if q.Limit > MaxLimit {
		q.Limit = MaxLimit
	}
}

// List returns one page of records and the total number matching.
func (s *Store) List(ctx context.Context, k *Kind, q ListQuery) ([]Record, int, error) {
	q.normalize()

	var where []string
	var args []any
	arg := func(v any) string {
		args = append(args, v)
		return "$" + strconv.Itoa(len(args))
	}

	if q.Status != "" {
		if !k.Lifecycle {
			return nil, 0, ErrNoLifecycle
		}
		if !ValidStatus(q.Status) {
			return nil, 0, Invalid("status", "must be one of draft, published, archived")
		}
		where = append(where, "status = "+arg(q.Status))
	}
	for name, value := range q.Filters {
		f, ok := k.Field(name)
		if !ok || !f.Filter {
			return nil, 0, Invalid(name, "is not filterable")
		}
		where = append(where, name+" = "+arg(value))
	}
	if search := strings.TrimSpace(q.Search); search != "" {
		pattern := arg("%" + escapeLike(strings.ToLower(search)) + "%")
		var ors []string
		for _, f := range k.Fields {
			if f.Search {
				ors = append(ors, "LOWER("+f.Name+") LIKE "+pattern+` ESCAPE '\'`)
			}
		}
		if len(ors) > 0 {
			where = append(where, "("+strings.Join(ors, " OR ")+")")
		}
	}

	clause := ""
	if len(where) > 0 {
		clause = " WHERE " + strings.Join(where, " AND ")
	}

	var total int
	err := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM "+k.Table+clause, args...).Scan(&total)
	if err != nil {
		return nil, 0, fmt.Errorf("count %s: %w", k.Table, err)
	}

	query := "SELECT " + strings.Join(k.columns(), ", ") + " FROM " + k.Table + clause +
		" ORDER BY created_at DESC, id LIMIT " + arg(q.Limit) + " OFFSET " + arg((q.Page-1)*q.Limit)
	records, err := s.query(ctx, s.db, k, query, args...)
	if err != nil {
		return nil, 0, err
	}
	return records, total, nil
}

// Get returns one record by id.
func (s *Store) Get(ctx context.Context, k *Kind, id string) (Record, error) {
	return s.get(ctx, s.db, k, id)
}

// Random returns one published record chosen at random.
func (s *Store) Random(ctx context.Context, k *Kind) (Record, error) {
	if !k.Lifecycle {
		return nil, ErrNoLifecycle
	}
	records, err := s.query(ctx, s.db, k,
		"SELECT "+strings.Join(k.columns(), ", ")+" FROM "+k.Table+" WHERE status = $1 ORDER BY RANDOM() LIMIT 1",
		models.StatusPublished)
	if err != nil {
		return nil, err
	}
	if len(records) == 0 {
		return nil, ErrNotFound
	}
	return records[0], nil
}

// Create validates input and inserts one record.
func (s *Store) Create(ctx context.Context, k *Kind, input map[string]any) (Record, error) {
	rec, err := k.Normalize(input, false)
	if err != nil {
		return nil, err
	}
	created, err := s.insert(ctx, s.db, k, rec, false)
	if err != nil {
		return nil, err
	}
	return created, nil
}

// CreateMany validates every input, then inserts them in one transaction.
// With skipDuplicates, rows that hit a unique constraint are skipped and
// counted instead of failing the batch.
func (s *Store) CreateMany(ctx context.Context, k *Kind, inputs []map[string]any, skipDuplicates bool) ([]Record, int, error) {
	if len(inputs) == 0 {
		return nil, 0, Invalid("items", "must not be empty")
	}
	verr := &ValidationError{}
	recs := make([]Record, 0, len(inputs))
	for i, input := range inputs {
		rec, err := k.Normalize(input, false)
		if err != nil {
			var fieldErr *ValidationError
			if !errors.As(err, &fieldErr) {
				return nil, 0, err
			}
			for field, msg := range fieldErr.Fields {
				verr.add(fmt.Sprintf("items[%d].%s", i, field), msg)
			}
			continue
		}
		recs = append(recs, rec)
	}
	if err := verr.orNil(); err != nil {
		return nil, 0, err
	}

	var created []Record
	skipped := 0
	err := s.inTx(ctx, func(tx *sql.Tx) error {
		for _, rec := range recs {
			row, err := s.insert(ctx, tx, k, rec, skipDuplicates)
			if err != nil {
				return err
			}
			if row == nil {
				skipped++
				continue
			}
			created = append(created, row)
		}
		return nil
	})
	if err != nil {
		return nil, 0, err
	}
	return created, skipped, nil
}

// SaveGenerated stores normalized drafts produced from a source record and
// records the kind on the source's used_for_kinds, all in one transaction.
// Duplicates of existing rows are skipped.
func (s *Store) SaveGenerated(ctx context.Context, k *Kind, sourceContentID string, recs []Record) ([]Record, int, error) {
	var created []Record
	skipped := 0
	err := s.inTx(ctx, func(tx *sql.Tx) error {
		for _, rec := range recs {
			rec = cloneRecord(rec)
			rec["status"] = models.StatusDraft
			if sourceContentID != "" {
				rec["source_content_id"] = sourceContentID
			}
			row, err := s.insert(ctx, tx, k, rec, true)
			if err != nil {
				return err
			}
			if row == nil {
				skipped++
				continue
			}
			created = append(created, row)
		}
		if sourceContentID == "" {
			return nil
		}
		return s.markSourceUsed(ctx, tx, sourceContentID, k.Name)
	})
	if err != nil {
		return nil, 0, err
	}
	return created, skipped, nil
}

// Update applies input to an existing record. With partial unset the input
// replaces the record: every required field must be present and optional
// fields it leaves out are cleared. A status change goes through the
// lifecycle rules.
func (s *Store) Update(ctx context.Context, k *Kind, id string, input map[string]any, partial bool) (Record, error) {
	rec, err := k.Normalize(input, partial)
	if err != nil {
		return nil, err
	}
	if !partial {
		for _, f := range k.Fields {
			if _, ok := rec[f.Name]; !ok && !f.Required && !f.Managed {
				rec[f.Name] = nil
			}
		}
	}
	status, hasStatus := rec["status"].(string)
	delete(rec, "status")

	var updated Record
	err = s.inTx(ctx, func(tx *sql.Tx) error {
		if len(rec) > 0 {
			var sets []string
			var args []any
			for _, f := range k.Fields {
				v, ok := rec[f.Name]
				if !ok {
					continue
				}
				stored, err := storeValue(f, v)
				if err != nil {
					return err
				}
				args = append(args, stored)
				sets = append(sets, f.Name+" = $"+strconv.Itoa(len(args)))
			}
			args = append(args, s.now())
			sets = append(sets, "updated_at = $"+strconv.Itoa(len(args)))
			args = append(args, id)

			res, err := tx.ExecContext(ctx,
				"UPDATE "+k.Table+" SET "+strings.Join(sets, ", ")+" WHERE id = $"+strconv.Itoa(len(args)),
				args...)
			if err != nil {
				return classify(err, "update "+k.Table)
			}
			if n, _ := res.RowsAffected(); n == 0 {
				return ErrNotFound
			}
		}
		if hasStatus {
			if err := s.transition(ctx, tx, k, []string{id}, status); err != nil {
				return err
			}
		}
		updated, err = s.get(ctx, tx, k, id)
		return err
	})
	if err != nil {
		return nil, err
	}
	return updated, nil
}

// Delete removes one record.
func (s *Store) Delete(ctx context.Context, k *Kind, id string) error {
	res, err := s.db.ExecContext(ctx, "DELETE FROM "+k.Table+" WHERE id = $1", id)
	if err != nil {
		return classify(err, "delete from "+k.Table)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

// SetStatus moves one record to status and returns it.
func (s *Store) SetStatus(ctx context.Context, k *Kind, id, status string) (Record, error) {
	var rec Record
	err := s.inTx(ctx, func(tx *sql.Tx) error {
		if err := s.transition(ctx, tx, k, []string{id}, status); err != nil {
			return err
		}
		var err error
		rec, err = s.get(ctx, tx, k, id)
		return err
	})
	if err != nil {
		return nil, err
	}
	return rec, nil
}

// SetStatusMany moves every listed record to status and returns how many
// actually changed. Records already in status are left alone.
func (s *Store) SetStatusMany(ctx context.Context, k *Kind, ids []string, status string) (int64, error) {
	if len(ids) == 0 {
		return 0, Invalid("ids", "must not be empty")
	}
	var n int64
	err := s.inTx(ctx, func(tx *sql.Tx) error {
		var err error
		n, err = s.transitionCount(ctx, tx, k, ids, status)
		return err
	})
	return n, err
}

// transition applies status to ids and fails with ErrNotFound when a
// single id does not exist.
func (s *Store) transition(ctx context.Context, q querier, k *Kind, ids []string, status string) error {
	_, err := s.transitionCount(ctx, q, k, ids, status)
	return err
}

// transitionCount is the one place lifecycle timestamps are maintained:
// publishing stamps published_at once, archiving stamps archived_at once,
// and leaving archived clears archived_at. Rows already in status are
// not touched, so repeating a transition is a no-op.
func (s *Store) transitionCount(ctx context.Context, q querier, k *Kind, ids []string, status string) (int64, error) {
	if !k.Lifecycle {
		return 0, ErrNoLifecycle
	}
	var set string
	switch status {
	case models.StatusPublished:
		set = "status = $1, published_at = COALESCE(published_at, $2), archived_at = NULL, updated_at = $2"
	case models.StatusArchived:
		set = "status = $1, archived_at = COALESCE(archived_at, $2), updated_at = $2"
	case models.StatusDraft:
		set = "status = $1, archived_at = NULL, updated_at = $2"
	default:
		return 0, Invalid("status", "must be one of draft, published, archived")
	}

	args := []any{status, s.now()}
	placeholders := make([]string, len(ids))
	for i, id := range ids {
		args = append(args, id)
		placeholders[i] = "$" + strconv.Itoa(len(args))
	}

	res, err := q.ExecContext(ctx,
		"UPDATE "+k.Table+" SET "+set+" WHERE id IN ("+strings.Join(placeholders, ", ")+") AND status <> $1",
		args...)
	if err != nil {
		return 0, fmt.Errorf("set status on %s: %w", k.Table, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, err
	}
	if n == 0 && len(ids) == 1 {
		var exists int
		err := q.QueryRowContext(ctx, "SELECT 1 FROM "+k.Table+" WHERE id = $1", ids[0]).Scan(&exists)
		if errors.Is(err, sql.ErrNoRows) {
			return 0, ErrNotFound
		}
		if err != nil {
			return 0, fmt.Errorf("check %s: %w", k.Table, err)
		}
	}
	return n, nil
}

func (s *Store) insert(ctx context.Context, q querier, k *Kind, rec Record, skipDuplicates bool) (Record, error) {
	now := s.now()
	cols := []string{"id"}
	args := []any{uuid.NewString()}

	for _, f := range k.Fields {
		v, ok := rec[f.Name]
		if !ok {
			continue
		}
		stored, err := storeValue(f, v)
		if err != nil {
			return nil, err
		}
		cols = append(cols, f.Name)
		args = append(args, stored)
	}

	if k.Lifecycle {
		status, _ := rec["status"].(string)
		if status == "" {
			status = models.StatusDraft
		}
		var publishedAt, archivedAt any
		if status == models.StatusPublished {
			publishedAt = now
		}
		if status == models.StatusArchived {
			archivedAt = now
		}
		cols = append(cols, "status", "published_at", "archived_at")
		args = append(args, status, publishedAt, archivedAt)
	}
	cols = append(cols, "created_at", "updated_at")
	args = append(args, now, now)

	placeholders := make([]string, len(args))
	for i := range args {
		placeholders[i] = "$" + strconv.Itoa(i+1)
	}

	query := "INSERT INTO " + k.Table + " (" + strings.Join(cols, ", ") + ") VALUES (" +
		strings.Join(placeholders, ", ") + ")"
	if skipDuplicates {
		query += " ON CONFLICT DO NOTHING"
	}

	res, err := q.ExecContext(ctx, query, args...)
	if err != nil {
		return nil, classify(err, "insert into "+k.Table)
	}
	if n, _ := res.RowsAffected(); n == 0 && skipDuplicates {
		return nil, nil
	}
	return s.get(ctx, q, k, args[0].(string))
}

func (s *Store) get(ctx context.Context, q querier, k *Kind, id string) (Record, error) {
	records, err := s.query(ctx, q, k,
		"SELECT "+strings.Join(k.columns(), ", ")+" FROM "+k.Table+" WHERE id = $1", id)
	if err != nil {
		return nil, err
	}
	if len(records) == 0 {
		return nil, ErrNotFound
	}
	return records[0], nil
}

func (s *Store) query(ctx context.Context, q querier, k *Kind, query string, args ...any) ([]Record, error) {
	rows, err := q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query %s: %w", k.Table, err)
	}
	defer rows.Close()

	records := []Record{}
	for rows.Next() {
		dest := k.scanTargets()
		if err := rows.Scan(dest...); err != nil {
			return nil, fmt.Errorf("scan %s: %w", k.Table, err)
		}
		records = append(records, k.toRecord(dest))
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate %s: %w", k.Table, err)
	}
	return records, nil
}

func (s *Store) markSourceUsed(ctx context.Context, tx *sql.Tx, sourceContentID, kind string) error {
	var raw string
	err := tx.QueryRowContext(ctx,
		"SELECT used_for_kinds FROM source_content WHERE id = $1"+s.dialect.ForUpdate(),
		sourceContentID).Scan(&raw)
	if errors.Is(err, sql.ErrNoRows) {
		return ErrNotFound
	}
	if err != nil {
		return fmt.Errorf("load source content usage: %w", err)
	}

	var kinds []string
	if raw != "" {
		if err := json.Unmarshal([]byte(raw), &kinds); err != nil {
			kinds = nil
		}
	}
	for _, existing := range kinds {
		if existing == kind {
			return nil
		}
	}
	kinds = append(kinds, kind)
	encoded, err := json.Marshal(kinds)
	if err != nil {
		return err
	}

	_, err = tx.ExecContext(ctx,
		"UPDATE source_content SET used_for_kinds = $1, updated_at = $2 WHERE id = $3",
		string(encoded), s.now(), sourceContentID)
	if err != nil {
		return fmt.Errorf("update source content usage: %w", err)
	}
	return nil
}

func (s *Store) inTx(ctx context.Context, fn func(tx *sql.Tx) error) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback()

	if err := fn(tx); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}
	return nil
}

func classify(err error, op string) error {
	switch {
	case db.IsUniqueViolation(err):
		return fmt.Errorf("%s: %w", op, ErrConflict)
	case db.IsForeignKeyViolation(err):
		return fmt.Errorf("%s: %w", op, ErrInvalidReference)
	}
	return fmt.Errorf("%s: %w", op, err)
}

func escapeLike(s string) string {
	return strings.NewReplacer(`\`, `\\`, "%", `\%`, "_", `\_`).Replace(s)
}

func cloneRecord(r Record) Record {
	out := make(Record, len(r))
	for k, v := range r {
		out[k] = v
	}
	return out
}
