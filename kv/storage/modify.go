package storage

// ModifyType is the smallest unit of mutation of the committed store.
type ModifyType int64

const (
	ModifyTypePut    ModifyType = 1
	ModifyTypeDelete ModifyType = 2
)

type Put struct {
	Key   []byte
	Value []byte
}

type Delete struct {
	Key []byte
}

// Modify is a single change in a batch passed to Storage.Write. Data is either a Put or a Delete.
type Modify struct {
	Type ModifyType
	Data interface{}
}

func NewPut(key, value []byte) Modify {
	return Modify{Type: ModifyTypePut, Data: Put{Key: key, Value: value}}
}

func NewDelete(key []byte) Modify {
	return Modify{Type: ModifyTypeDelete, Data: Delete{Key: key}}
}
