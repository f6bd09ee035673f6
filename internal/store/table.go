package store

import (
	"context"
	"errors"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	apperrors "github.com/kuberan/ledgersync/internal/errors"
	"github.com/kuberan/ledgersync/internal/models"
)

const insertBatchSize = 100

// Table is the cache of one entity family.
type Table[T models.Entity] struct {
	s     *Store
	name  string
	order string

	// evictable restricts stale computation to rows that may be evicted.
	evictable Scope
	// remove deletes rows by id, including dependent rows in other tables.
	remove func(tx *gorm.DB, ids []int64) error
	// touches lists every table remove may modify.
	touches []string
}

func newTable[T models.Entity](s *Store, order string) *Table[T] {
	var zero T
	t := &Table[T]{s: s, name: zero.TableName(), order: order}
	t.remove = func(tx *gorm.DB, ids []int64) error { return deleteIn[T](tx, "id", ids) }
	t.touches = []string{t.name}
	return t
}

// Name returns the table name.
func (t *Table[T]) Name() string {
	return t.name
}

func (t *Table[T]) find(db *gorm.DB, scopes ...Scope) ([]T, error) {
	var rows []T
	q := db.Model(new(T)).Scopes(scopes...)
	if t.order != "" {
		q = q.Order(t.order)
	}
	if err := q.Find(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}

func (t *Table[T]) take(db *gorm.DB, id int64) (*T, error) {
	var row T
	err := db.Where("id = ?", id).Take(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &row, nil
}

// Load observes every row matching scopes in the table's order.
func (t *Table[T]) Load(ctx context.Context, scopes ...Scope) *Live[[]T] {
	return Watch(ctx, t.s, []string{t.name}, func(db *gorm.DB) ([]T, error) {
		return t.find(db, scopes...)
	})
}

// LoadByID observes one row. The live value is nil while the row is absent.
func (t *Table[T]) LoadByID(ctx context.Context, id int64) *Live[*T] {
	return Watch(ctx, t.s, []string{t.name}, func(db *gorm.DB) (*T, error) {
		return t.take(db, id)
	})
}

// List returns the rows matching scopes once.
func (t *Table[T]) List(ctx context.Context, scopes ...Scope) ([]T, error) {
	rows, err := t.find(t.s.db.WithContext(ctx), scopes...)
	if err != nil {
		return nil, apperrors.Wrap(apperrors.ErrDatabase, err)
	}
	return rows, nil
}

// Get returns one row or ErrNotFound.
func (t *Table[T]) Get(ctx context.Context, id int64) (*T, error) {
	row, err := t.take(t.s.db.WithContext(ctx), id)
	if err != nil {
		return nil, apperrors.Wrap(apperrors.ErrDatabase, err)
	}
	if row == nil {
		return nil, apperrors.ErrNotFound
	}
	return row, nil
}

// Insert upserts one row.
func (t *Table[T]) Insert(ctx context.Context, row T) error {
	return t.InsertAll(ctx, row)
}

// InsertAll upserts rows atomically. Existing rows are replaced field by field.
func (t *Table[T]) InsertAll(ctx context.Context, rows ...T) error {
	if len(rows) == 0 {
		return nil
	}
	return t.s.write(ctx, []string{t.name}, func(tx *gorm.DB) error {
		return tx.Clauses(clause.OnConflict{UpdateAll: true}).CreateInBatches(&rows, insertBatchSize).Error
	})
}

// Delete removes one row and its dependents.
func (t *Table[T]) Delete(ctx context.Context, id int64) error {
	return t.DeleteMany(ctx, []int64{id})
}

// DeleteMany removes rows and their dependents in one transaction.
func (t *Table[T]) DeleteMany(ctx context.Context, ids []int64) error {
	if len(ids) == 0 {
		return nil
	}
	return t.s.write(ctx, t.touches, func(tx *gorm.DB) error {
		return t.remove(tx, ids)
	})
}

// IDs returns the primary keys matching scopes.
func (t *Table[T]) IDs(ctx context.Context, scopes ...Scope) ([]int64, error) {
	var ids []int64
	if err := t.s.db.WithContext(ctx).Model(new(T)).Scopes(scopes...).Order("id").Pluck("id", &ids).Error; err != nil {
		return nil, apperrors.Wrap(apperrors.ErrDatabase, err)
	}
	return ids, nil
}

// StaleIDs returns the keys within scopes that are not in exclude and whose
// rows may be evicted.
func (t *Table[T]) StaleIDs(ctx context.Context, exclude []int64, scopes ...Scope) ([]int64, error) {
	ids, err := t.staleIDs(t.s.db.WithContext(ctx), exclude, scopes)
	if err != nil {
		return nil, apperrors.Wrap(apperrors.ErrDatabase, err)
	}
	return ids, nil
}

func (t *Table[T]) staleIDs(db *gorm.DB, exclude []int64, scopes []Scope) ([]int64, error) {
	q := db.Model(new(T)).Scopes(scopes...)
	if t.evictable != nil {
		q = q.Scopes(t.evictable)
	}
	var cached []int64
	if err := q.Order("id").Pluck("id", &cached).Error; err != nil {
		return nil, err
	}
	keep := make(map[int64]struct{}, len(exclude))
	for _, id := range exclude {
		keep[id] = struct{}{}
	}
	var stale []int64
	for _, id := range cached {
		if _, ok := keep[id]; !ok {
			stale = append(stale, id)
		}
	}
	return stale, nil
}

// EvictStale deletes, with cascade, every evictable row within scopes whose key
// is not in keep. The stale set is computed and removed in one transaction.
func (t *Table[T]) EvictStale(ctx context.Context, keep []int64, scopes ...Scope) ([]int64, error) {
	var stale []int64
	err := t.s.write(ctx, t.touches, func(tx *gorm.DB) error {
		var err error
		stale, err = t.staleIDs(tx, keep, scopes)
		if err != nil || len(stale) == 0 {
			return err
		}
		return t.remove(tx, stale)
	})
	if err != nil {
		return nil, err
	}
	return stale, nil
}

// MissingIDs returns the distinct non-zero ids that have no cached row, in
// first-seen order.
func (t *Table[T]) MissingIDs(ctx context.Context, ids []int64) ([]int64, error) {
	want := Distinct(ids)
	if len(want) == 0 {
		return nil, nil
	}
	var present []int64
	if err := pluckIn(t.s.db.WithContext(ctx).Model(new(T)), "id", want, &present); err != nil {
		return nil, apperrors.Wrap(apperrors.ErrDatabase, err)
	}
	found := make(map[int64]struct{}, len(present))
	for _, id := range present {
		found[id] = struct{}{}
	}
	var missing []int64
	for _, id := range want {
		if _, ok := found[id]; !ok {
			missing = append(missing, id)
		}
	}
	return missing, nil
}

// Clear empties the table without touching dependents.
func (t *Table[T]) Clear(ctx context.Context) error {
	return t.s.write(ctx, []string{t.name}, func(tx *gorm.DB) error {
		return tx.Exec("DELETE FROM " + t.name).Error
	})
}

// Distinct drops zero and repeated ids, keeping first-seen order.
func Distinct(ids []int64) []int64 {
	seen := make(map[int64]struct{}, len(ids))
	var out []int64
	for _, id := range ids {
		if id == 0 {
			continue
		}
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}
