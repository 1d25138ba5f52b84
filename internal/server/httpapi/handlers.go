package httpapi

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/dmitrijs2005/buoytelemetry/internal/common"
	"github.com/dmitrijs2005/buoytelemetry/internal/server/models"
	"github.com/go-chi/chi/v5"
)

const maxBodyBytes = 1 << 20

type messageResponse struct {
	Message string `json:"message"`
}

type registerResponse struct {
	Message string `json:"message"`
	ID      int64  `json:"id"`
}

type readingResponse struct {
	ID   int64 `json:"id"`
	Data any   `json:"data"`
}

type bulkReadingsResponse struct {
	Data []models.Reading `json:"data"`
}

type bulkUpdateResponse struct {
	Message string `json:"message"`
	Updated int    `json:"updated"`
}

type bulkDeleteRequest struct {
	IDs []int64 `json:"ids"`
}

type bulkDeleteResponse struct {
	Message string `json:"message"`
	Deleted int64  `json:"deleted"`
}

type refreshRequest struct {
	RefreshToken string `json:"refresh_token"`
}

// decode reads a JSON body into v. Decoding failures are validation errors
// unless asBatch is set, in which case they are malformed batches.
func decode(w http.ResponseWriter, r *http.Request, v any, asBatch bool) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		if asBatch {
			return fmt.Errorf("%w: %v", common.ErrMalformedBatch, err)
		}
		return fmt.Errorf("%w: invalid JSON body: %v", common.ErrValidation, err)
	}
	return nil
}

func pathID(r *http.Request) (int64, error) {
	raw := chi.URLParam(r, "id")
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("%w: invalid id %q", common.ErrValidation, raw)
	}
	return id, nil
}

// queryIDs accepts both ?ids=1,2 and ?ids=1&ids=2.
func queryIDs(r *http.Request) ([]int64, error) {
	var ids []int64
	for _, v := range r.URL.Query()["ids"] {
		for _, part := range strings.Split(v, ",") {
			part = strings.TrimSpace(part)
			if part == "" {
				continue
			}
			id, err := strconv.ParseInt(part, 10, 64)
			if err != nil {
				return nil, fmt.Errorf("%w: invalid id %q", common.ErrValidation, part)
			}
			ids = append(ids, id)
		}
	}
	if len(ids) == 0 {
		return nil, fmt.Errorf("%w: ids query parameter is required", common.ErrValidation)
	}
	return ids, nil
}

func (s *Server) register(w http.ResponseWriter, r *http.Request) {
	var req models.Registration
	if err := decode(w, r, &req, false); err != nil {
		s.writeServiceError(w, r, err)
		return
	}

	u, err := s.users.Register(r.Context(), &req)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}

	s.logger.Info(r.Context(), "Registered", "username", u.Username, "role", u.Role)
	writeJSON(w, http.StatusCreated, registerResponse{Message: "User registered successfully", ID: u.ID})
}

func (s *Server) login(w http.ResponseWriter, r *http.Request) {
	var req models.Credentials
	if err := decode(w, r, &req, false); err != nil {
		s.writeServiceError(w, r, err)
		return
	}

	pair, err := s.users.Login(r.Context(), &req)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, pair)
}

func (s *Server) refresh(w http.ResponseWriter, r *http.Request) {
	var req refreshRequest
	if err := decode(w, r, &req, false); err != nil {
		s.writeServiceError(w, r, err)
		return
	}

	pair, err := s.users.RefreshToken(r.Context(), req.RefreshToken)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, pair)
}

func (s *Server) createTelemetry(w http.ResponseWriter, r *http.Request) {
	var req models.NewTelemetry
	if err := decode(w, r, &req, false); err != nil {
		s.writeServiceError(w, r, err)
		return
	}

	rec, err := s.telemetry.Create(r.Context(), roleFrom(r), &req)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, readingResponse{ID: rec.ID, Data: rec})
}

func (s *Server) getTelemetry(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}

	rec, err := s.telemetry.Get(r.Context(), roleFrom(r), id)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, readingResponse{ID: rec.ReadingID(), Data: rec})
}

func (s *Server) updateTelemetry(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	var patch models.TelemetryPatch
	if err := decode(w, r, &patch, false); err != nil {
		s.writeServiceError(w, r, err)
		return
	}

	rec, err := s.telemetry.Update(r.Context(), roleFrom(r), id, &patch)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, readingResponse{ID: rec.ID, Data: rec})
}

func (s *Server) deleteTelemetry(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}

	if err := s.telemetry.Delete(r.Context(), roleFrom(r), id); err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, messageResponse{Message: "Telemetry deleted"})
}

func (s *Server) bulkGetTelemetry(w http.ResponseWriter, r *http.Request) {
	ids, err := queryIDs(r)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}

	recs, err := s.telemetry.BulkGet(r.Context(), roleFrom(r), ids)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	if recs == nil {
		recs = []models.Reading{}
	}
	writeJSON(w, http.StatusOK, bulkReadingsResponse{Data: recs})
}

func (s *Server) bulkUpdateTelemetry(w http.ResponseWriter, r *http.Request) {
	var entries []models.TelemetryPatchEntry
	if err := decode(w, r, &entries, true); err != nil {
		s.writeServiceError(w, r, err)
		return
	}

	n, err := s.telemetry.BulkUpdate(r.Context(), roleFrom(r), entries)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, bulkUpdateResponse{Message: "Bulk update successful", Updated: n})
}

func (s *Server) bulkDeleteTelemetry(w http.ResponseWriter, r *http.Request) {
	var req bulkDeleteRequest
	if err := decode(w, r, &req, true); err != nil {
		s.writeServiceError(w, r, err)
		return
	}

	n, err := s.telemetry.BulkDelete(r.Context(), roleFrom(r), req.IDs)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, bulkDeleteResponse{Message: "Bulk delete successful", Deleted: n})
}
