package api

import (
	"net/http"

	"github.com/gorilla/mux"
	"github.com/pingcap-incubator/nestkv/kv/config"
	"github.com/pingcap-incubator/nestkv/kv/server"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/unrolled/render"
	"github.com/urfave/negroni"
)

const (
	apiPrefix = "/api/v1"
	pingAPI   = "/ping"
)

func createRouter(svr *server.Server, rd *render.Render) *mux.Router {
	// Keys are opaque, so the path is matched as sent: no cleaning, and %2F stays inside the key.
	router := mux.NewRouter().SkipClean(true).UseEncodedPath()

	txnHandler := newTxnHandler(svr, rd)
	router.HandleFunc(apiPrefix+"/txn/begin", txnHandler.Begin).Methods("POST")
	router.HandleFunc(apiPrefix+"/txn/commit", txnHandler.Commit).Methods("POST")
	router.HandleFunc(apiPrefix+"/txn/rollback", txnHandler.Rollback).Methods("POST")

	kvHandler := newKVHandler(svr, rd)
	router.HandleFunc(apiPrefix+"/kv/{key:.+}", kvHandler.Get).Methods("GET")
	router.HandleFunc(apiPrefix+"/kv/{key:.+}", kvHandler.Set).Methods("PUT", "POST")
	router.HandleFunc(apiPrefix+"/kv/{key:.+}", kvHandler.Delete).Methods("DELETE")

	router.Handle(apiPrefix+"/status", newStatusHandler(svr, rd)).Methods("GET")

	logHandler := newLogHandler(rd)
	router.HandleFunc(apiPrefix+"/admin/log", logHandler.Handle).Methods("POST")

	router.Handle("/metrics", promhttp.Handler()).Methods("GET")
	router.HandleFunc(pingAPI, func(w http.ResponseWriter, r *http.Request) {}).Methods("GET")

	return router
}

// NewHandler returns the HTTP handler serving svr.
func NewHandler(svr *server.Server, conf config.APIConfig) http.Handler {
	rd := render.New(render.Options{
		IndentJSON: true,
	})

	engine := negroni.New()
	engine.Use(negroni.NewRecovery())
	engine.Use(newAccessLogger())
	if conf.RateLimit > 0 {
		engine.Use(newRateLimiter(conf.RateLimit, conf.RateBurst, rd))
	}
	engine.UseHandler(createRouter(svr, rd))
	return engine
}
