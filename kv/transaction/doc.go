package transaction

// The transaction package implements NestKV's transaction layer. It sits between the server (kv/server), which
// serializes access from clients, and the committed store (Storage in kv/storage).
//
// NestKV transactions nest: BEGIN inside an open transaction opens a child transaction, and COMMIT or ROLLBACK always
// resolves the innermost one. Committing a child makes its writes part of the parent; they only reach the committed
// store when the outermost transaction commits. Rolling back discards the innermost transaction and nothing else.
//
// The `nested` package holds the implementation. Each open transaction is a *frame* which records only what the
// transaction changed since it began, as two disjoint sets:
//
// * overwrites: keys written in this frame and their values;
// * tombstones: keys deleted in this frame.
//
// Frames are kept on a stack above the committed store. Nothing is copied when a transaction begins. A read walks the
// stack from the innermost frame outwards: the first frame that wrote the key supplies the value, the first frame that
// deleted it makes it absent, and if no frame knows the key the committed store answers.
//
// Committing the innermost frame *folds* it into the layer beneath. Folding into a parent frame replays each tombstone
// as a delete and each overwrite as a write in the parent, so a deleted key also loses any value the parent had written
// and stays shadowed for everything further down. Folding into the committed store lowers the frame into one batch of
// storage.Modify (deletes and puts) which is written atomically.
//
// Reads never fail: an absent key is reported as absent, which is distinct from a key holding the empty string.
// Commit and Rollback with no open transaction return ErrNoActiveTransaction and change nothing.
