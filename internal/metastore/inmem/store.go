package inmem

import (
	"context"
	"strings"
	"sync"
	"time"

	cs "github.com/spectator-tech/cluster-spectator/internal"
)

// Store is an in-memory coordination store. It implements the read-side
// Accessor contract the cache consumes, plus a write side for controllers
// and tests. Writers bump the record's version stamp and fan the change out
// to subscribed listeners, which makes the store a complete stand-in for a
// remote coordination service in tests and single-process deployments.
type Store struct {
	rwmu      sync.RWMutex
	records   map[string]map[string]*cs.Record
	listeners []func(path string)
}

func NewStore() *Store {
	return &Store{
		records: map[string]map[string]*cs.Record{},
	}
}

// ChildValuesMap returns a snapshot of every record stored under path,
// keyed by record ID.
func (s *Store) ChildValuesMap(ctx context.Context, path string, includeStats bool) (map[string]*cs.Record, error) {
	s.rwmu.RLock()
	defer s.rwmu.RUnlock()

	children := map[string]*cs.Record{}
	for key, record := range s.records[path] {
		children[key] = record
	}

	return children, nil
}

// Stats returns the stat of every key, preserving input order; entries for
// missing keys are nil.
func (s *Store) Stats(ctx context.Context, keys []string) ([]*cs.Stat, error) {
	s.rwmu.RLock()
	defer s.rwmu.RUnlock()

	stats := make([]*cs.Stat, len(keys))
	for i, key := range keys {
		if record := s.lookup(key); record != nil {
			stat := record.Stat
			stats[i] = &stat
		}
	}

	return stats, nil
}

// Records returns the record of every key, preserving input order; entries
// for missing keys are nil.
func (s *Store) Records(ctx context.Context, keys []string, includeStats bool) ([]*cs.Record, error) {
	s.rwmu.RLock()
	defer s.rwmu.RUnlock()

	records := make([]*cs.Record, len(keys))
	for i, key := range keys {
		records[i] = s.lookup(key)
	}

	return records, nil
}

// Put stores the record under path, bumping its version stamp, and notifies
// subscribers of the change.
func (s *Store) Put(path string, record *cs.Record) {
	s.rwmu.Lock()

	children, ok := s.records[path]
	if !ok {
		children = map[string]*cs.Record{}
		s.records[path] = children
	}

	version := int64(1)
	if previous, ok := children[record.ID]; ok {
		version = previous.Stat.Version + 1
	}

	record.Stat = cs.Stat{
		Version:      version,
		ModifiedTime: time.Now().UnixMilli(),
	}
	children[record.ID] = record

	listeners := append([]func(string){}, s.listeners...)
	s.rwmu.Unlock()

	for _, listener := range listeners {
		listener(path)
	}
}

// Delete removes the record with the given ID from path and notifies
// subscribers. Deleting a missing record is a no-op.
func (s *Store) Delete(path, id string) {
	s.rwmu.Lock()

	children, ok := s.records[path]
	if ok {
		_, ok = children[id]
		delete(children, id)
	}

	listeners := append([]func(string){}, s.listeners...)
	s.rwmu.Unlock()

	if !ok {
		return
	}

	for _, listener := range listeners {
		listener(path)
	}
}

// Subscribe registers a listener invoked with the parent path of every
// subsequent change. Listeners run on the writer's goroutine and must not
// block.
func (s *Store) Subscribe(listener func(path string)) {
	s.rwmu.Lock()
	defer s.rwmu.Unlock()
	s.listeners = append(s.listeners, listener)
}

// lookup resolves a full "<path>/<id>" key. Callers must hold the lock.
func (s *Store) lookup(key string) *cs.Record {
	i := strings.LastIndex(key, "/")
	if i < 0 {
		return nil
	}

	return s.records[key[:i]][key[i+1:]]
}

var _ cs.Accessor = &Store{}
