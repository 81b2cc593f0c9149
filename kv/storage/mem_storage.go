package storage

import (
	"bytes"

	"github.com/google/btree"
	"github.com/pingcap/errors"
)

const memStorageDegree = 32

// MemStorage is a Storage backed by an ordered in-memory tree. Data is never written to disk.
type MemStorage struct {
	data *btree.BTree
}

func NewMemStorage() *MemStorage {
	return &MemStorage{
		data: btree.New(memStorageDegree),
	}
}

func (ms *MemStorage) Get(key []byte) ([]byte, bool) {
	result := ms.data.Get(memItem{key: key})
	if result == nil {
		return nil, false
	}
	return result.(memItem).value, true
}

func (ms *MemStorage) Set(key []byte, value []byte) {
	ms.data.ReplaceOrInsert(newMemItem(key, value))
}

func (ms *MemStorage) Delete(key []byte) {
	ms.data.Delete(memItem{key: key})
}

// Write checks the whole batch before applying any of it, so a malformed batch leaves the tree untouched.
func (ms *MemStorage) Write(batch []Modify) error {
	for i, m := range batch {
		switch m.Data.(type) {
		case Put, Delete:
		default:
			return errors.Errorf("mem-storage: bad modify %T at %d", m.Data, i)
		}
	}
	for _, m := range batch {
		switch data := m.Data.(type) {
		case Put:
			ms.Set(data.Key, data.Value)
		case Delete:
			ms.Delete(data.Key)
		}
	}
	return nil
}

func (ms *MemStorage) Len() int {
	return ms.data.Len()
}

type memItem struct {
	key   []byte
	value []byte
}

// newMemItem copies key and value, the caller may reuse its buffers. value is never nil for a stored item.
func newMemItem(key, value []byte) memItem {
	return memItem{
		key:   append([]byte(nil), key...),
		value: append(make([]byte, 0, len(value)), value...),
	}
}

func (it memItem) Less(than btree.Item) bool {
	other := than.(memItem)
	return bytes.Compare(it.key, other.key) < 0
}
