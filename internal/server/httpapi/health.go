package httpapi

import (
	"net/http"
	"time"
)

type healthResponse struct {
	Status    string `json:"status"`
	Timestamp string `json:"timestamp"`
	Message   string `json:"message,omitempty"`
}

func (s *Server) healthLive(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, healthResponse{Status: "ok", Timestamp: time.Now().UTC().Format(time.RFC3339)})
}

func (s *Server) healthReady(w http.ResponseWriter, r *http.Request) {
	resp := healthResponse{Status: "ok", Timestamp: time.Now().UTC().Format(time.RFC3339)}
	if err := s.db.PingContext(r.Context()); err != nil {
		resp.Status = "fail"
		resp.Message = err.Error()
		writeJSON(w, http.StatusServiceUnavailable, resp)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}
