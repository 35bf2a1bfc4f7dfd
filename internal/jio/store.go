package jio

import "context"

// Store is the keyed persistence contract. Each mutation is one conditional
// operation keyed by (chat_id, timestamp): the bool reports whether the
// condition held and the write happened, the error reports a store failure.
//
// There is no cross-field transaction. RemoveAtIndex checks bounds against
// the stored list at write time, but an AppendToList from another invocation
// can still shift positions between the caller reading the list and
// removing from it.
type Store interface {
	// FindOpen returns the newest Open record for chatID created at or
	// after since, or nil when there is none. Reads must be consistent.
	FindOpen(ctx context.Context, chatID, since int64) (*Jio, error)
	// CreateIfAbsent inserts j unless an Open record for j.ChatID exists
	// at or after since.
	CreateIfAbsent(ctx context.Context, j *Jio, since int64) (bool, error)
	// AppendToList appends item to the participant's list, creating the
	// participant entry when absent. Only Open records are mutated.
	AppendToList(ctx context.Context, key Key, participant, firstName string, item Item) (bool, error)
	// RemoveAtIndex deletes the item at index from the participant's
	// list. It reports false when index is out of bounds or the record is
	// no longer Open.
	RemoveAtIndex(ctx context.Context, key Key, participant string, index int) (bool, error)
	// SetStatus moves the record from one status to another.
	SetStatus(ctx context.Context, key Key, from, to Status) (bool, error)
}
