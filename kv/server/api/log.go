package api

import (
	"net/http"

	"github.com/pingcap-incubator/nestkv/kv/config"
	"github.com/pingcap/errcode"
	"github.com/pingcap/log"
	"github.com/unrolled/render"
	"go.uber.org/zap"
)

type logHandler struct {
	rd *render.Render
}

func newLogHandler(rd *render.Render) *logHandler {
	return &logHandler{
		rd: rd,
	}
}

func (h *logHandler) Handle(w http.ResponseWriter, r *http.Request) {
	var level string
	if err := readJSONRespondError(h.rd, w, r.Body, &level); err != nil {
		return
	}

	l, err := config.ParseLogLevel(level)
	if err != nil {
		errorResp(h.rd, w, errcode.NewInvalidInputErr(err))
		return
	}
	log.SetLevel(l)
	log.Info("log level changed", zap.String("level", l.String()))

	h.rd.JSON(w, http.StatusOK, nil)
}
