package api

import (
	"encoding/json"
	"log"
	"net/http"
	"time"

	"rangeann/pkg/core"
)

type Server struct {
	index        core.VectorIndex
	defaultAlpha float64
}

func NewServer(index core.VectorIndex, defaultAlpha float64) *Server {
	if defaultAlpha <= 0 || defaultAlpha >= 1 {
		defaultAlpha = 0.01
	}
	return &Server{index: index, defaultAlpha: defaultAlpha}
}

func (s *Server) Start(addr string) error {
	mux := http.NewServeMux()
	mux.HandleFunc("/api/insert", s.handleInsert)
	mux.HandleFunc("/api/query", s.handleQuery)
	mux.HandleFunc("/api/stats", s.handleStats)

	log.Printf("[API] Server listening on %s...", addr)
	return http.ListenAndServe(addr, mux)
}

func (s *Server) handleInsert(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Access-Control-Allow-Origin", "*")
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var req struct {
		Vector []float32 `json:"vector"`
		Tag    float32   `json:"tag"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid body", http.StatusBadRequest)
		return
	}

	id, err := s.index.Insert(req.Vector, req.Tag)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]interface{}{"id": id})
}

func (s *Server) handleQuery(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Access-Control-Allow-Origin", "*")
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var req struct {
		Vector []float32 `json:"vector"`
		K      int       `json:"k"`
		Smin   float32   `json:"smin"`
		Smax   float32   `json:"smax"`
		Alpha  float64   `json:"alpha"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid body", http.StatusBadRequest)
		return
	}
	if req.Alpha <= 0 {
		req.Alpha = s.defaultAlpha
	}

	start := time.Now()
	ids, err := s.index.Query(req.Vector, req.K, req.Smin, req.Smax, req.Alpha)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	if ids == nil {
		ids = []int{}
	}

	resp := map[string]interface{}{
		"ids":        ids,
		"count":      len(ids),
		"latency_ns": time.Since(start).Nanoseconds(),
	}
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(resp)
}

func (s *Server) handleStats(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Access-Control-Allow-Origin", "*")
	w.Header().Set("Content-Type", "application/json")

	json.NewEncoder(w).Encode(s.index.Stats())
}
