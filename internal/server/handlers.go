package server

import (
	"encoding/json"
	"net/http"

	"github.com/hyperjump/kotaeru/internal/models"
	"go.uber.org/zap"
)

type chatRequest struct {
	Question string `json:"question"`
}

type streamToken struct {
	Token string `json:"token"`
}

type streamDone struct {
	Done    bool              `json:"done"`
	Sources []models.Document `json:"sources"`
}

func (s *Server) handleChat(w http.ResponseWriter, r *http.Request) {
	var req chatRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.Question == "" {
		s.respondError(w, http.StatusBadRequest, "question is required")
		return
	}
	s.logger.Debug("chat request", zap.String("question", req.Question))
	answer, err := s.chain.Run(r.Context(), req.Question)
	if err != nil {
		s.logger.Error("chat failed", zap.Error(err))
		s.respondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	s.respondJSON(w, http.StatusOK, answer)
}

// handleChatStream answers with NDJSON: one {"token": ...} line per
// response fragment, then a terminal {"done": true, "sources": [...]} line.
func (s *Server) handleChatStream(w http.ResponseWriter, r *http.Request) {
	var req chatRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.Question == "" {
		s.respondError(w, http.StatusBadRequest, "question is required")
		return
	}
	s.logger.Debug("chat stream request", zap.String("question", req.Question))
	tokens, sources, err := s.chain.RunStream(r.Context(), req.Question)
	if err != nil {
		s.logger.Error("chat stream failed", zap.Error(err))
		s.respondError(w, http.StatusInternalServerError, err.Error())
		return
	}

	w.Header().Set("Content-Type", "application/x-ndjson")
	w.WriteHeader(http.StatusOK)
	flusher, _ := w.(http.Flusher)
	enc := json.NewEncoder(w)
	for tok := range tokens {
		if err := enc.Encode(streamToken{Token: tok}); err != nil {
			// Client went away; drain so the generator goroutine exits.
			for range tokens {
			}
			return
		}
		if flusher != nil {
			flusher.Flush()
		}
	}
	if sources == nil {
		sources = []models.Document{}
	}
	_ = enc.Encode(streamDone{Done: true, Sources: sources})
	if flusher != nil {
		flusher.Flush()
	}
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	s.respondJSON(w, http.StatusOK, map[string]interface{}{
		"documents": s.store.Count(),
		"metric":    s.metric,
		"model":     s.model,
	})
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	s.respondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

func (s *Server) respondError(w http.ResponseWriter, status int, message string) {
	s.respondJSON(w, status, map[string]string{"error": message})
}
