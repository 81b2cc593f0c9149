package api

import (
	"net/http"
	"net/url"

	"github.com/gorilla/mux"
	"github.com/pingcap-incubator/nestkv/kv/server"
	"github.com/pingcap/errcode"
	"github.com/pingcap/errors"
	"github.com/unrolled/render"
)

var errValueNotString = errors.New("value must be a JSON string")

// KeyValue is the body of a successful read or write of a key.
type KeyValue struct {
	Key   string `json:"key"`
	Value string `json:"value"`
}

type kvHandler struct {
	svr *server.Server
	rd  *render.Render
}

func newKVHandler(svr *server.Server, rd *render.Render) *kvHandler {
	return &kvHandler{
		svr: svr,
		rd:  rd,
	}
}

// keyFromRequest decodes the key path variable, which the router leaves escaped.
func keyFromRequest(r *http.Request) (string, error) {
	key, err := url.PathUnescape(mux.Vars(r)["key"])
	return key, errors.WithStack(err)
}

func (h *kvHandler) Get(w http.ResponseWriter, r *http.Request) {
	key, err := keyFromRequest(r)
	if err != nil {
		errorResp(h.rd, w, errcode.NewInvalidInputErr(err))
		return
	}
	value, ok, err := h.svr.Get(key)
	if err != nil {
		errorResp(h.rd, w, err)
		return
	}
	if !ok {
		errorResp(h.rd, w, KeyNotFoundErr{Key: key})
		return
	}
	h.rd.JSON(w, http.StatusOK, KeyValue{Key: key, Value: value})
}

// Set stores the JSON string in the body under the key. An empty string is a value, null is rejected.
func (h *kvHandler) Set(w http.ResponseWriter, r *http.Request) {
	key, err := keyFromRequest(r)
	if err != nil {
		errorResp(h.rd, w, errcode.NewInvalidInputErr(err))
		return
	}
	var value *string
	if err := readJSONRespondError(h.rd, w, r.Body, &value); err != nil {
		return
	}
	if value == nil {
		errorResp(h.rd, w, errcode.NewInvalidInputErr(errValueNotString))
		return
	}
	if err := h.svr.Set(key, *value); err != nil {
		errorResp(h.rd, w, err)
		return
	}
	h.rd.JSON(w, http.StatusOK, KeyValue{Key: key, Value: *value})
}

// Delete removes the key from the current view. Deleting an absent key succeeds.
func (h *kvHandler) Delete(w http.ResponseWriter, r *http.Request) {
	key, err := keyFromRequest(r)
	if err != nil {
		errorResp(h.rd, w, errcode.NewInvalidInputErr(err))
		return
	}
	if err := h.svr.Delete(key); err != nil {
		errorResp(h.rd, w, err)
		return
	}
	h.rd.JSON(w, http.StatusOK, nil)
}
