// Package memstore is an in-process jio.Store for tests and single-instance
// deployments without a database.
package memstore

import (
	"context"
	"slices"
	"sync"

	"github.com/m3rciful/supperbot/internal/jio"
)

// Store keeps records in memory. Every operation holds the lock for its
// whole check-and-write, matching the per-record atomicity of the database
// store.
type Store struct {
	mu      sync.RWMutex
	records map[jio.Key]*jio.Jio
}

var _ jio.Store = (*Store)(nil)

// New returns an empty Store.
func New() *Store {
	return &Store{records: make(map[jio.Key]*jio.Jio)}
}

// FindOpen returns a copy of the newest Open record in the window.
func (s *Store) FindOpen(_ context.Context, chatID, since int64) (*jio.Jio, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if j := s.findOpenLocked(chatID, since); j != nil {
		return j.Clone(), nil
	}
	return nil, nil
}

func (s *Store) findOpenLocked(chatID, since int64) *jio.Jio {
	var newest *jio.Jio
	for k, j := range s.records {
		if k.ChatID != chatID || k.Timestamp < since || j.Status != jio.StatusOpen {
			continue
		}
		if newest == nil || k.Timestamp > newest.Timestamp {
			newest = j
		}
	}
	return newest
}

// CreateIfAbsent stores a copy of j unless the chat already has an Open
// record in the window or the key is taken.
func (s *Store) CreateIfAbsent(_ context.Context, j *jio.Jio, since int64) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.findOpenLocked(j.ChatID, since) != nil {
		return false, nil
	}
	if _, taken := s.records[j.Key()]; taken {
		return false, nil
	}
	s.records[j.Key()] = j.Clone()
	return true, nil
}

// AppendToList appends to the participant's list on an Open record.
func (s *Store) AppendToList(_ context.Context, key jio.Key, participant, firstName string, item jio.Item) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	j, ok := s.records[key]
	if !ok || j.Status != jio.StatusOpen {
		return false, nil
	}
	if j.Orders == nil {
		j.Orders = jio.Orders{}
	}
	o, ok := j.Orders[participant]
	if !ok {
		o.FirstName = firstName
	}
	o.Items = append(slices.Clone(o.Items), item)
	j.Orders[participant] = o
	return true, nil
}

// RemoveAtIndex deletes one item from an Open record when index is within
// the stored list.
func (s *Store) RemoveAtIndex(_ context.Context, key jio.Key, participant string, index int) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	j, ok := s.records[key]
	if !ok || j.Status != jio.StatusOpen {
		return false, nil
	}
	o, ok := j.Orders[participant]
	if !ok || index < 0 || index >= len(o.Items) {
		return false, nil
	}
	o.Items = slices.Delete(slices.Clone(o.Items), index, index+1)
	j.Orders[participant] = o
	return true, nil
}

// SetStatus moves status from -> to when the record is currently at from.
func (s *Store) SetStatus(_ context.Context, key jio.Key, from, to jio.Status) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	j, ok := s.records[key]
	if !ok || j.Status != from {
		return false, nil
	}
	j.Status = to
	return true, nil
}
