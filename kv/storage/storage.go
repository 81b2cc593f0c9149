package storage

// Storage is the committed layer of NestKV: the mapping that is visible when no transaction is open. Transactions
// only ever reach it through Write, when the outermost frame is committed, or through Set and Delete when no
// transaction is active.
type Storage interface {
	// Get returns the value stored for key. ok is false if the key is absent; an empty value is not absence.
	Get(key []byte) (value []byte, ok bool)
	Set(key []byte, value []byte)
	Delete(key []byte)
	// Write applies batch as a unit. Either every modify is applied or, if an error is returned, none is.
	Write(batch []Modify) error
	Len() int
}
