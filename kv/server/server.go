package server

import (
	"sync"

	"github.com/pingcap-incubator/nestkv/kv/config"
	"github.com/pingcap-incubator/nestkv/kv/storage"
	"github.com/pingcap-incubator/nestkv/kv/transaction/nested"
	"github.com/pingcap-incubator/nestkv/kv/util/typeutil"
	"github.com/pingcap/errors"
	"github.com/pingcap/log"
	"go.uber.org/atomic"
	"go.uber.org/zap"
)

var (
	// ErrServerClosed is returned by every operation once Close has been called.
	ErrServerClosed = errors.New("server is closed")
	// ErrCapacityExceeded is returned when an operation would take a session beyond the configured txn bounds.
	ErrCapacityExceeded = errors.New("capacity exceeded")
)

const (
	cmdBegin    = "begin"
	cmdSet      = "set"
	cmdGet      = "get"
	cmdDelete   = "delete"
	cmdCommit   = "commit"
	cmdRollback = "rollback"
)

// Server is a NestKV session that may be shared between goroutines. Every operation holds one lock for its whole
// duration, so a commit is atomic with respect to reads and writes on the same session.
type Server struct {
	mu     sync.Mutex
	store  *nested.Store
	engine storage.Storage
	conf   config.TxnConfig
	closed *atomic.Bool
}

// Status is a point-in-time summary of a session.
type Status struct {
	Depth         int               `json:"depth"`
	CommittedKeys int               `json:"committed_keys"`
	PendingKeys   int               `json:"pending_keys"`
	PendingSize   typeutil.ByteSize `json:"pending_size"`
	MaxDepth      int               `json:"max_depth,omitempty"`
	MaxFrameSize  typeutil.ByteSize `json:"max_frame_size,omitempty"`
}

func NewServer(conf *config.Config, engine storage.Storage) *Server {
	s := &Server{
		store:  nested.NewStore(engine),
		engine: engine,
		conf:   conf.Txn,
		closed: atomic.NewBool(false),
	}
	storageKeysGauge.Set(float64(engine.Len()))
	txnDepthGauge.Set(0)
	return s
}

func (s *Server) Begin() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.checkClosed(cmdBegin); err != nil {
		return err
	}

	depth := s.store.Depth()
	if s.conf.MaxDepth > 0 && depth >= s.conf.MaxDepth {
		log.Warn("reject begin, too many nested transactions",
			zap.Int("depth", depth), zap.Int("max-depth", s.conf.MaxDepth))
		return s.fail(cmdBegin, errors.Annotatef(ErrCapacityExceeded,
			"transaction depth %d reaches max-depth %d", depth, s.conf.MaxDepth))
	}

	s.store.Begin()
	s.afterTxnCommand(cmdBegin)
	return nil
}

func (s *Server) Set(key, value string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.checkClosed(cmdSet); err != nil {
		return err
	}

	if err := s.checkFrameSize(cmdSet, key, s.store.SizeAfterSet(key, value)); err != nil {
		return err
	}

	s.store.Set(key, value)
	s.afterKeyCommand(cmdSet)
	return nil
}

// Get returns the value visible to the innermost open transaction. ok is false if the key is absent.
func (s *Server) Get(key string) (value string, ok bool, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.checkClosed(cmdGet); err != nil {
		return "", false, err
	}

	value, ok = s.store.Get(key)
	txnCommandCounter.WithLabelValues(cmdGet, "ok").Inc()
	return value, ok, nil
}

func (s *Server) Delete(key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.checkClosed(cmdDelete); err != nil {
		return err
	}

	if err := s.checkFrameSize(cmdDelete, key, s.store.SizeAfterDelete(key)); err != nil {
		return err
	}

	s.store.Delete(key)
	s.afterKeyCommand(cmdDelete)
	return nil
}

func (s *Server) Commit() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.checkClosed(cmdCommit); err != nil {
		return err
	}

	folded := s.store.PendingKeys()
	if err := s.store.Commit(); err != nil {
		return s.fail(cmdCommit, err)
	}
	if folded > 0 {
		txnCommitFoldKeys.Observe(float64(folded))
	}
	storageKeysGauge.Set(float64(s.engine.Len()))
	s.afterTxnCommand(cmdCommit)
	return nil
}

func (s *Server) Rollback() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.checkClosed(cmdRollback); err != nil {
		return err
	}

	if err := s.store.Rollback(); err != nil {
		return s.fail(cmdRollback, err)
	}
	s.afterTxnCommand(cmdRollback)
	return nil
}

func (s *Server) Status() Status {
	s.mu.Lock()
	defer s.mu.Unlock()
	return Status{
		Depth:         s.store.Depth(),
		CommittedKeys: s.engine.Len(),
		PendingKeys:   s.store.PendingKeys(),
		PendingSize:   typeutil.ByteSize(s.store.PendingSize()),
		MaxDepth:      s.conf.MaxDepth,
		MaxFrameSize:  s.conf.MaxFrameSize,
	}
}

// Close discards every open transaction. Committed data stays readable through the storage the server was built on.
func (s *Server) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed.Load() {
		return
	}
	s.closed.Store(true)
	if depth := s.store.Depth(); depth > 0 {
		log.Info("close server with open transactions", zap.Int("depth", depth))
	}
	for s.store.Depth() > 0 {
		s.store.Rollback()
	}
	txnDepthGauge.Set(0)
}

func (s *Server) IsClosed() bool {
	return s.closed.Load()
}

func (s *Server) checkClosed(cmd string) error {
	if s.closed.Load() {
		txnCommandCounter.WithLabelValues(cmd, "closed").Inc()
		return ErrServerClosed
	}
	return nil
}

// checkFrameSize rejects a write that would grow the innermost transaction to size beyond max-frame-size.
func (s *Server) checkFrameSize(cmd, key string, size int) error {
	limit := uint64(s.conf.MaxFrameSize)
	if limit == 0 || s.store.Depth() == 0 || uint64(size) <= limit {
		return nil
	}
	log.Warn("reject write, transaction too large", zap.String("command", cmd),
		zap.String("key", key), zap.Int("size", size), zap.Uint64("max-frame-size", limit))
	return s.fail(cmd, errors.Annotatef(ErrCapacityExceeded,
		"transaction size %s would exceed max-frame-size %s", typeutil.ByteSize(size), s.conf.MaxFrameSize))
}

func (s *Server) fail(cmd string, err error) error {
	switch errors.Cause(err) {
	case nested.ErrNoActiveTransaction:
		log.Warn("reject transaction command", zap.String("command", cmd), zap.Error(err))
		txnCommandCounter.WithLabelValues(cmd, "no_txn").Inc()
	case ErrCapacityExceeded:
		txnCommandCounter.WithLabelValues(cmd, "capacity").Inc()
	default:
		log.Error("transaction command failed", zap.String("command", cmd), zap.Error(err))
		txnCommandCounter.WithLabelValues(cmd, "error").Inc()
	}
	return err
}

func (s *Server) afterTxnCommand(cmd string) {
	depth := s.store.Depth()
	log.Debug("transaction command", zap.String("command", cmd), zap.Int("depth", depth))
	txnDepthGauge.Set(float64(depth))
	txnCommandCounter.WithLabelValues(cmd, "ok").Inc()
}

func (s *Server) afterKeyCommand(cmd string) {
	if s.store.Depth() == 0 {
		storageKeysGauge.Set(float64(s.engine.Len()))
	}
	txnCommandCounter.WithLabelValues(cmd, "ok").Inc()
}
