package api

import (
	"net/http"

	"github.com/pingcap-incubator/nestkv/kv/server"
	"github.com/unrolled/render"
)

type txnHandler struct {
	svr *server.Server
	rd  *render.Render
}

func newTxnHandler(svr *server.Server, rd *render.Render) *txnHandler {
	return &txnHandler{
		svr: svr,
		rd:  rd,
	}
}

func (h *txnHandler) Begin(w http.ResponseWriter, r *http.Request) {
	h.respond(w, h.svr.Begin())
}

func (h *txnHandler) Commit(w http.ResponseWriter, r *http.Request) {
	h.respond(w, h.svr.Commit())
}

func (h *txnHandler) Rollback(w http.ResponseWriter, r *http.Request) {
	h.respond(w, h.svr.Rollback())
}

// respond answers with the session status after a successful transaction command.
func (h *txnHandler) respond(w http.ResponseWriter, err error) {
	if err != nil {
		errorResp(h.rd, w, err)
		return
	}
	h.rd.JSON(w, http.StatusOK, h.svr.Status())
}

type statusHandler struct {
	svr *server.Server
	rd  *render.Render
}

func newStatusHandler(svr *server.Server, rd *render.Render) *statusHandler {
	return &statusHandler{
		svr: svr,
		rd:  rd,
	}
}

func (h *statusHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if h.svr.IsClosed() {
		errorResp(h.rd, w, server.ErrServerClosed)
		return
	}
	h.rd.JSON(w, http.StatusOK, h.svr.Status())
}
