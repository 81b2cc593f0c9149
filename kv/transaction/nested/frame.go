package nested

import "github.com/pingcap-incubator/nestkv/kv/storage"

// lookupResult is what a single layer knows about a key.
type lookupResult int

const (
	// lookupUnknown means the layer never touched the key, the lookup continues below it.
	lookupUnknown lookupResult = iota
	lookupFound
	lookupDeleted
)

// frame holds the changes made by one level of transaction nesting. A key is in at most one of overwrites and
// tombstones.
type frame struct {
	overwrites map[string]string
	tombstones map[string]struct{}
	// size is the approximate number of bytes held by overwrites and tombstones.
	size int
}

func newFrame() *frame {
	return &frame{
		overwrites: make(map[string]string),
		tombstones: make(map[string]struct{}),
	}
}

func (f *frame) lookup(key string) (string, lookupResult) {
	if _, ok := f.tombstones[key]; ok {
		return "", lookupDeleted
	}
	if value, ok := f.overwrites[key]; ok {
		return value, lookupFound
	}
	return "", lookupUnknown
}

func (f *frame) set(key, value string) {
	f.forget(key)
	f.overwrites[key] = value
	f.size += len(key) + len(value)
}

func (f *frame) delete(key string) {
	f.forget(key)
	f.tombstones[key] = struct{}{}
	f.size += len(key)
}

// forget drops whatever the frame recorded for key.
func (f *frame) forget(key string) {
	if old, ok := f.overwrites[key]; ok {
		delete(f.overwrites, key)
		f.size -= len(key) + len(old)
	}
	if _, ok := f.tombstones[key]; ok {
		delete(f.tombstones, key)
		f.size -= len(key)
	}
}

// sizeAfterSet is the size the frame would have if key was set to value.
func (f *frame) sizeAfterSet(key, value string) int {
	return f.sizeWithout(key) + len(key) + len(value)
}

// sizeAfterDelete is the size the frame would have if key was deleted.
func (f *frame) sizeAfterDelete(key string) int {
	return f.sizeWithout(key) + len(key)
}

// sizeWithout is the size of the frame minus whatever it records for key.
func (f *frame) sizeWithout(key string) int {
	size := f.size
	if old, ok := f.overwrites[key]; ok {
		size -= len(key) + len(old)
	}
	if _, ok := f.tombstones[key]; ok {
		size -= len(key)
	}
	return size
}

func (f *frame) keyCount() int {
	return len(f.overwrites) + len(f.tombstones)
}

// foldInto merges f into the frame beneath it. Every tombstone becomes a real deletion in dst, so a value dst had
// written for the key is gone and anything further down stays shadowed.
func (f *frame) foldInto(dst *frame) {
	for key := range f.tombstones {
		dst.delete(key)
	}
	for key, value := range f.overwrites {
		dst.set(key, value)
	}
}

// modifies lowers f into a batch for the committed store.
func (f *frame) modifies() []storage.Modify {
	batch := make([]storage.Modify, 0, f.keyCount())
	for key := range f.tombstones {
		batch = append(batch, storage.NewDelete([]byte(key)))
	}
	for key, value := range f.overwrites {
		batch = append(batch, storage.NewPut([]byte(key), []byte(value)))
	}
	return batch
}
