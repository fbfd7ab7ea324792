// Copyright (C) 2016  Lukas Lalinsky
// Distributed under the MIT license, see the LICENSE file for details.

package server

import (
	"fmt"
	"log"
	"net/http"
	"strconv"
	"time"

	"github.com/RoaringBitmap/roaring/v2"

	"github.com/pandaman64/anubistats/config"
	"github.com/pandaman64/anubistats/index"
	"github.com/pandaman64/anubistats/query"
)

type SearchHandler struct {
	store   *index.Store
	search  config.SearchConfig
	metrics *Metrics
}

func (h *SearchHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	started := time.Now()

	input := r.URL.Query().Get("q")
	if input == "" {
		h.metrics.SearchesTotal.WithLabelValues("bad_request").Inc()
		writeErrorResponse(w, 400, "missing query parameter q")
		return
	}
	q, err := query.Parse(input)
	if err != nil {
		h.metrics.SearchesTotal.WithLabelValues("bad_request").Inc()
		writeErrorResponse(w, 400, err.Error())
		return
	}

	limit := h.search.DefaultLimit
	if s := r.URL.Query().Get("limit"); s != "" {
		limit, err = strconv.Atoi(s)
		if err != nil || limit < 0 {
			h.metrics.SearchesTotal.WithLabelValues("bad_request").Inc()
			writeErrorResponse(w, 400, "invalid limit")
			return
		}
	}
	if limit > h.search.MaxLimit {
		limit = h.search.MaxLimit
	}

	matches, err := h.store.Eval(q)
	if err != nil {
		log.Printf("search failed: %v", err)
		h.metrics.SearchesTotal.WithLabelValues("error").Inc()
		writeErrorResponse(w, 500, "internal error")
		return
	}

	shown := roaring.New()
	it := matches.Iterator()
	for n := 0; n < limit && it.HasNext(); n++ {
		shown.Add(it.Next())
	}
	docs, err := h.store.Fetch(shown)
	if err != nil {
		log.Printf("fetch failed: %v", err)
		h.metrics.SearchesTotal.WithLabelValues("error").Inc()
		writeErrorResponse(w, 500, "internal error")
		return
	}

	h.metrics.SearchesTotal.WithLabelValues("ok").Inc()
	h.metrics.SearchDuration.Observe(time.Since(started).Seconds())
	h.metrics.SearchMatches.Observe(float64(matches.GetCardinality()))

	type Response struct {
		Query      string           `json:"query"`
		NumMatches uint64           `json:"num_matches"`
		Docs       []index.Document `json:"docs"`
	}
	writeResponse(w, http.StatusOK, Response{
		Query:      q.String(),
		NumMatches: matches.GetCardinality(),
		Docs:       docs,
	})
}

type AggregateHandler struct {
	store   *index.Store
	metrics *Metrics
}

func (h *AggregateHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	input := r.URL.Query().Get("q")
	if input == "" {
		h.metrics.AggregatesTotal.WithLabelValues("bad_request").Inc()
		writeErrorResponse(w, 400, "missing query parameter q")
		return
	}
	q, err := query.Parse(input)
	if err != nil {
		h.metrics.AggregatesTotal.WithLabelValues("bad_request").Inc()
		writeErrorResponse(w, 400, err.Error())
		return
	}

	groupName := r.URL.Query().Get("group_by")
	if groupName == "" {
		groupName = "date"
	}
	groupCol, err := index.ParseColumn(groupName)
	if err != nil {
		h.metrics.AggregatesTotal.WithLabelValues("bad_request").Inc()
		writeErrorResponse(w, 400, err.Error())
		return
	}

	sumName := r.URL.Query().Get("sum")
	if sumName == "" {
		sumName = "score"
	}
	sumCol, err := index.ParseColumn(sumName)
	if err != nil {
		h.metrics.AggregatesTotal.WithLabelValues("bad_request").Inc()
		writeErrorResponse(w, 400, err.Error())
		return
	}
	if !sumCol.Numeric() {
		h.metrics.AggregatesTotal.WithLabelValues("bad_request").Inc()
		writeErrorResponse(w, 400, fmt.Sprintf("column %v cannot be summed", sumCol))
		return
	}

	matches, err := h.store.Eval(q)
	if err != nil {
		log.Printf("aggregate failed: %v", err)
		h.metrics.AggregatesTotal.WithLabelValues("error").Inc()
		writeErrorResponse(w, 500, "internal error")
		return
	}
	groups, err := h.store.GroupBy(matches, groupCol, sumCol)
	if err != nil {
		log.Printf("aggregate failed: %v", err)
		h.metrics.AggregatesTotal.WithLabelValues("error").Inc()
		writeErrorResponse(w, 500, "internal error")
		return
	}
	if groups == nil {
		groups = []index.Group{}
	}

	h.metrics.AggregatesTotal.WithLabelValues("ok").Inc()

	type Response struct {
		Query      string        `json:"query"`
		NumMatches uint64        `json:"num_matches"`
		GroupBy    string        `json:"group_by"`
		Sum        string        `json:"sum"`
		Groups     []index.Group `json:"groups"`
	}
	writeResponse(w, http.StatusOK, Response{
		Query:      q.String(),
		NumMatches: matches.GetCardinality(),
		GroupBy:    groupCol.String(),
		Sum:        sumCol.String(),
		Groups:     groups,
	})
}

type StatsHandler struct {
	store *index.Store
}

func (h *StatsHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	type Response struct {
		NumDocs  int    `json:"num_docs"`
		NumWords int    `json:"num_words"`
		IndexID  uint32 `json:"index_id"`
	}
	response := Response{
		NumDocs:  h.store.NumDocs(),
		NumWords: h.store.NumWords(),
		IndexID:  h.store.ID(),
	}
	writeResponse(w, http.StatusOK, response)
}

type HealthHandler struct{}

func (h *HealthHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	writeResponse(w, http.StatusOK, map[string]string{"status": "ok"})
}
