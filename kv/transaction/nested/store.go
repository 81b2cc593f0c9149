package nested

import (
	"github.com/pingcap-incubator/nestkv/kv/storage"
	"github.com/pingcap/errors"
)

// ErrNoActiveTransaction is returned by Commit and Rollback when no transaction is open.
var ErrNoActiveTransaction = errors.New("no active transaction")

// Store is a key/value store with nested transactions. Each Begin pushes a frame on top of the committed storage;
// reads look through the frames from the innermost outwards, writes only touch the innermost frame. Commit folds
// the innermost frame into the layer beneath it, Rollback discards it.
//
// A Store serves one logical session. It does no locking of its own.
type Store struct {
	base   storage.Storage
	frames []*frame
}

// NewStore creates a Store with no open transaction over base.
func NewStore(base storage.Storage) *Store {
	return &Store{base: base}
}

// Begin opens a transaction nested in the current one, if any.
func (s *Store) Begin() {
	s.frames = append(s.frames, newFrame())
}

// Get returns the value of key visible to the current transaction. ok is false if the key is absent.
func (s *Store) Get(key string) (string, bool) {
	for i := len(s.frames) - 1; i >= 0; i-- {
		value, res := s.frames[i].lookup(key)
		switch res {
		case lookupFound:
			return value, true
		case lookupDeleted:
			return "", false
		}
	}
	val, ok := s.base.Get([]byte(key))
	if !ok {
		return "", false
	}
	return string(val), true
}

func (s *Store) Set(key, value string) {
	if top := s.top(); top != nil {
		top.set(key, value)
		return
	}
	s.base.Set([]byte(key), []byte(value))
}

// Delete removes key. Deleting an absent key is not an error.
func (s *Store) Delete(key string) {
	if top := s.top(); top != nil {
		top.delete(key)
		return
	}
	s.base.Delete([]byte(key))
}

// Commit folds the current transaction into its parent, or into the committed storage if it is the outermost one.
// If the storage rejects the batch, the transaction stays open and unchanged.
func (s *Store) Commit() error {
	top := s.top()
	if top == nil {
		return ErrNoActiveTransaction
	}
	if len(s.frames) > 1 {
		top.foldInto(s.frames[len(s.frames)-2])
	} else if err := s.base.Write(top.modifies()); err != nil {
		return errors.Annotate(err, "commit to storage")
	}
	s.pop()
	return nil
}

// Rollback discards the current transaction.
func (s *Store) Rollback() error {
	if s.top() == nil {
		return ErrNoActiveTransaction
	}
	s.pop()
	return nil
}

// Depth is the number of open transactions.
func (s *Store) Depth() int {
	return len(s.frames)
}

// PendingSize is the approximate number of bytes held by the current transaction, 0 if none is open.
func (s *Store) PendingSize() int {
	if top := s.top(); top != nil {
		return top.size
	}
	return 0
}

// PendingKeys is the number of keys written or deleted by the current transaction.
func (s *Store) PendingKeys() int {
	if top := s.top(); top != nil {
		return top.keyCount()
	}
	return 0
}

// SizeAfterSet reports what PendingSize would be after Set(key, value).
func (s *Store) SizeAfterSet(key, value string) int {
	if top := s.top(); top != nil {
		return top.sizeAfterSet(key, value)
	}
	return 0
}

// SizeAfterDelete reports what PendingSize would be after Delete(key).
func (s *Store) SizeAfterDelete(key string) int {
	if top := s.top(); top != nil {
		return top.sizeAfterDelete(key)
	}
	return 0
}

func (s *Store) top() *frame {
	if len(s.frames) == 0 {
		return nil
	}
	return s.frames[len(s.frames)-1]
}

func (s *Store) pop() {
	s.frames[len(s.frames)-1] = nil
	s.frames = s.frames[:len(s.frames)-1]
}
