// Copyright (C) 2016  Lukas Lalinsky
// Distributed under the MIT license, see the LICENSE file for details.

package server

import (
	"encoding/json"
	"log"
	"net/http"
	"strconv"
	"time"

	"github.com/gorilla/mux"

	"github.com/pandaman64/anubistats/config"
	"github.com/pandaman64/anubistats/index"
)

func writeResponse(w http.ResponseWriter, status int, response interface{}) {
	body, err := json.Marshal(response)
	if err != nil {
		log.Printf("error while serializing JSON response (%v)", err)
		writeErrorResponse(w, http.StatusInternalServerError, "JSON serialization error")
		return
	}
	body = append(body, '\n')
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.Header().Set("Content-Length", strconv.Itoa(len(body)))
	w.WriteHeader(status)
	w.Write(body)
}

func writeErrorResponse(w http.ResponseWriter, status int, message string) {
	response := map[string]string{"message": message}
	writeResponse(w, status, response)
}

func Handler(store *index.Store, cfg *config.Config) http.Handler {
	metrics := NewMetrics()
	r := mux.NewRouter()
	r.Path("/search").Methods("GET").Handler(&SearchHandler{store: store, search: cfg.Search, metrics: metrics})
	r.Path("/aggregate").Methods("GET").Handler(&AggregateHandler{store: store, metrics: metrics})
	r.Path("/stats").Methods("GET").Handler(&StatsHandler{store: store})
	r.Path("/_health").Methods("GET").Handler(&HealthHandler{})
	if cfg.Metrics.Enabled {
		r.Path("/metrics").Methods("GET").Handler(metrics.Handler())
	}
	return r
}

func ListenAndServe(cfg *config.Config, store *index.Store) error {
	srv := &http.Server{
		Addr:         cfg.Server.Addr,
		Handler:      Handler(store, cfg),
		ReadTimeout:  time.Duration(cfg.Server.ReadTimeout),
		WriteTimeout: time.Duration(cfg.Server.WriteTimeout),
	}
	log.Printf("listening on %v", cfg.Server.Addr)
	return srv.ListenAndServe()
}
