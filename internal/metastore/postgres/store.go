package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"strings"
	"time"

	"github.com/doug-martin/goqu/v9"
	_ "github.com/doug-martin/goqu/v9/dialect/postgres"
	"github.com/doug-martin/goqu/v9/exp"
	_ "github.com/lib/pq"
	"github.com/pkg/errors"

	cs "github.com/spectator-tech/cluster-spectator/internal"
)

const recordsTable = "cluster-records"

// Store is a coordination store backed by Postgres. Records live in a single
// table keyed by (path, key); every write bumps the row's version and
// modification time, which is what the cache's stat comparison reads.
type Store struct {
	DB *sql.DB
}

// NewStore instantiates a coordination store that is backed by postgres for
// persistence.
func NewStore(db *sql.DB) (*Store, error) {
	return &Store{DB: db}, nil
}

// ChildValuesMap enumerates every record stored under path, keyed by record
// ID.
func (s *Store) ChildValuesMap(ctx context.Context, path string, includeStats bool) (map[string]*cs.Record, error) {

	sqlbuilder := goqu.Dialect("postgres").From(recordsTable).
		Select("key", "record", "version", "modified").
		Where(goqu.Ex{"path": path}).
		Prepared(true)

	query, args, err := sqlbuilder.ToSQL()
	if err != nil {
		return nil, err
	}

	rows, err := s.DB.Query(query, args...)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to enumerate records under '%s'", path)
	}
	defer rows.Close()

	children := map[string]*cs.Record{}
	for rows.Next() {
		record, err := scanRecord(rows, includeStats)
		if err != nil {
			return nil, err
		}

		children[record.ID] = record
	}

	return children, rows.Err()
}

// Stats fetches the stat of every key in one query. The result preserves
// input order; entries for missing keys are nil.
func (s *Store) Stats(ctx context.Context, keys []string) ([]*cs.Stat, error) {

	stats := make([]*cs.Stat, len(keys))
	if len(keys) == 0 {
		return stats, nil
	}

	sqlbuilder := goqu.Dialect("postgres").From(recordsTable).
		Select("path", "key", "version", "modified").
		Where(keyedExpressions(keys)).
		Prepared(true)

	query, args, err := sqlbuilder.ToSQL()
	if err != nil {
		return nil, err
	}

	rows, err := s.DB.Query(query, args...)
	if err != nil {
		return nil, errors.Wrap(err, "failed to fetch record stats")
	}
	defer rows.Close()

	found := map[string]*cs.Stat{}
	for rows.Next() {
		var path, key string
		var version, modified int64
		if err := rows.Scan(&path, &key, &version, &modified); err != nil {
			return nil, err
		}

		found[path+"/"+key] = &cs.Stat{Version: version, ModifiedTime: modified}
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	for i, key := range keys {
		stats[i] = found[key]
	}

	return stats, nil
}

// Records fetches the full record of every key in one query. The result
// preserves input order; entries for missing keys are nil.
func (s *Store) Records(ctx context.Context, keys []string, includeStats bool) ([]*cs.Record, error) {

	records := make([]*cs.Record, len(keys))
	if len(keys) == 0 {
		return records, nil
	}

	sqlbuilder := goqu.Dialect("postgres").From(recordsTable).
		Select("path", "key", "record", "version", "modified").
		Where(keyedExpressions(keys)).
		Prepared(true)

	query, args, err := sqlbuilder.ToSQL()
	if err != nil {
		return nil, err
	}

	rows, err := s.DB.Query(query, args...)
	if err != nil {
		return nil, errors.Wrap(err, "failed to fetch records")
	}
	defer rows.Close()

	found := map[string]*cs.Record{}
	for rows.Next() {
		var path, key string
		var payload []byte
		var version, modified int64
		if err := rows.Scan(&path, &key, &payload, &version, &modified); err != nil {
			return nil, err
		}

		var record cs.Record
		if err := json.Unmarshal(payload, &record); err != nil {
			return nil, err
		}
		record.ID = key

		if includeStats {
			record.Stat = cs.Stat{Version: version, ModifiedTime: modified}
		}

		found[path+"/"+key] = &record
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	for i, key := range keys {
		records[i] = found[key]
	}

	return records, nil
}

// PutRecord upserts the record under path. A new row starts at version 1; an
// existing row's version is bumped so cached copies of the old contents fail
// their stat comparison.
func (s *Store) PutRecord(ctx context.Context, path string, record *cs.Record) error {

	payload, err := json.Marshal(record)
	if err != nil {
		return err
	}

	now := time.Now().UnixMilli()

	sqlbuilder := goqu.Dialect("postgres").Insert(recordsTable).
		Cols("path", "key", "record", "version", "modified").
		Vals(goqu.Vals{path, record.ID, payload, 1, now}).
		OnConflict(goqu.DoUpdate("path, key", goqu.Record{
			"record":   payload,
			"version":  goqu.L(`"cluster-records"."version" + 1`),
			"modified": now,
		}))

	query, args, err := sqlbuilder.ToSQL()
	if err != nil {
		return err
	}

	_, err = s.DB.Exec(query, args...)
	return errors.Wrapf(err, "failed to upsert record '%s' under '%s'", record.ID, path)
}

// DeleteRecord removes the record with the given ID from path. Deleting a
// missing record is a no-op.
func (s *Store) DeleteRecord(ctx context.Context, path, id string) error {

	sqlbuilder := goqu.Dialect("postgres").Delete(recordsTable).
		Where(goqu.Ex{"path": path, "key": id})

	query, args, err := sqlbuilder.ToSQL()
	if err != nil {
		return err
	}

	_, err = s.DB.Exec(query, args...)
	return errors.Wrapf(err, "failed to delete record '%s' under '%s'", id, path)
}

// keyedExpressions turns full "<path>/<id>" keys into a disjunction of
// (path, key) row matches.
func keyedExpressions(keys []string) exp.ExpressionList {
	expressions := make([]goqu.Expression, 0, len(keys))
	for _, key := range keys {
		i := strings.LastIndex(key, "/")
		if i < 0 {
			continue
		}

		expressions = append(expressions, goqu.Ex{
			"path": key[:i],
			"key":  key[i+1:],
		})
	}

	return goqu.Or(expressions...)
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanRecord(row rowScanner, includeStats bool) (*cs.Record, error) {
	var key string
	var payload []byte
	var version, modified int64
	if err := row.Scan(&key, &payload, &version, &modified); err != nil {
		return nil, err
	}

	var record cs.Record
	if err := json.Unmarshal(payload, &record); err != nil {
		return nil, err
	}
	record.ID = key

	if includeStats {
		record.Stat = cs.Stat{Version: version, ModifiedTime: modified}
	}

	return &record, nil
}

var _ cs.Accessor = &Store{}
