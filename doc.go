package nestkv

/*
NestKV is an in-memory key/value store with nested transactions. A session may open transactions inside transactions;
COMMIT and ROLLBACK always resolve the innermost one, and writes reach the committed store only when the outermost
transaction commits.

Building NestKV produces two executables: nestkv-server, which serves one session over HTTP, and nestkv-cli, an
interactive console over an in-process session.

The `nestkv` module is organized into the following packages:

* `kv/transaction/nested`: the transaction stack. Each open transaction is a frame of overwrites and tombstones layered
  over the committed store.
* `kv/storage`: the committed store, an ordered in-memory tree written in atomic batches.
* `kv/server`: a concurrency-safe session with capacity bounds and metrics, and its HTTP API in `kv/server/api`.
* `kv/config`: TOML configuration for the server and console.
*/
