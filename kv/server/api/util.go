package api

import (
	"encoding/json"
	"fmt"
	"io"
	"io/ioutil"
	"net/http"

	"github.com/pingcap-incubator/nestkv/kv/server"
	"github.com/pingcap-incubator/nestkv/kv/transaction/nested"
	"github.com/pingcap/errcode"
	"github.com/pingcap/errors"
	"github.com/pingcap/log"
	"github.com/unrolled/render"
	"go.uber.org/zap"
)

var (
	txnStateCode = errcode.StateCode.Child("state.txn")

	// NoActiveTransactionCode is returned for a commit or rollback with no open transaction.
	NoActiveTransactionCode = txnStateCode.Child("state.txn.none").SetHTTP(http.StatusConflict)
	// CapacityExceededCode is returned when a transaction would grow beyond the configured bounds.
	CapacityExceededCode = txnStateCode.Child("state.txn.capacity").SetHTTP(http.StatusRequestEntityTooLarge)
	// ServerClosedCode is returned once the server has shut down.
	ServerClosedCode = errcode.StateCode.Child("state.closed").SetHTTP(http.StatusServiceUnavailable)
)

var _ errcode.ErrorCode = (*KeyNotFoundErr)(nil) // assert implements interface

// KeyNotFoundErr is returned by a read of a key that is absent in the current view.
type KeyNotFoundErr struct {
	Key string `json:"key"`
}

func (e KeyNotFoundErr) Error() string {
	return fmt.Sprintf("key %q not found", e.Key)
}

// Code returns errcode.NotFoundCode
func (e KeyNotFoundErr) Code() errcode.Code { return errcode.NotFoundCode }

// toErrorCode attaches a code to the sentinel errors of the server.
func toErrorCode(err error) errcode.ErrorCode {
	switch errors.Cause(err) {
	case nested.ErrNoActiveTransaction:
		return errcode.NewCodedError(err, NoActiveTransactionCode)
	case server.ErrCapacityExceeded:
		return errcode.NewCodedError(err, CapacityExceededCode)
	case server.ErrServerClosed:
		return errcode.NewCodedError(err, ServerClosedCode)
	}
	if code := errcode.CodeChain(err); code != nil {
		return code
	}
	return errcode.NewInternalErr(err)
}

// errorResp writes err as an errcode JSON body with the HTTP status of its code.
func errorResp(rd *render.Render, w http.ResponseWriter, err error) {
	if err == nil {
		log.Error("nil is given to errorResp")
		rd.JSON(w, http.StatusInternalServerError, "nil error")
		return
	}
	code := toErrorCode(err)
	if code.Code().IsAncestor(errcode.InternalCode) {
		log.Error("api request failed", zap.Error(err))
	}
	w.Header().Set("NestKV-Error-Code", code.Code().CodeStr().String())
	rd.JSON(w, code.Code().HTTPCode(), errcode.NewJSONFormat(code))
}

func readJSON(r io.ReadCloser, data interface{}) error {
	defer r.Close()

	b, err := ioutil.ReadAll(r)
	if err != nil {
		return errors.WithStack(err)
	}
	err = json.Unmarshal(b, data)
	if err != nil {
		return errors.WithStack(err)
	}

	return nil
}

// readJSONRespondError reads the body into data and answers 400 if that fails.
func readJSONRespondError(rd *render.Render, w http.ResponseWriter, body io.ReadCloser, data interface{}) error {
	err := readJSON(body, data)
	if err == nil {
		return nil
	}
	errorResp(rd, w, errcode.NewInvalidInputErr(err))
	return err
}
