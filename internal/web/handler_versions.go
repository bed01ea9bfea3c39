package web

import (
	"net/http"
	"time"

	"github.com/samber/lo"

	"github.com/vbonduro/feestatement/internal/domain"
	"github.com/vbonduro/feestatement/internal/statement"
)

type saveVersionRequest struct {
	DisplayName string `json:"displayName" validate:"max=200"`
}

// versionSummary is a version as listed; the payload is left out.
type versionSummary struct {
	ID          int64     `json:"id"`
	DisplayName string    `json:"displayName"`
	CreatedAt   time.Time `json:"createdAt"`
	UpdatedAt   time.Time `json:"updatedAt"`
}

func summarize(v *domain.StatementVersion) versionSummary {
	return versionSummary{
		ID:          v.ID,
		DisplayName: v.DisplayName,
		CreatedAt:   v.CreatedAt,
		UpdatedAt:   v.UpdatedAt,
	}
}

type saveVersionResponse struct {
	Version   versionSummary `json:"version"`
	Statement statement.View `json:"statement"`
}

func (s *Server) handleListVersions(w http.ResponseWriter, r *http.Request) {
	projectID, ok := s.projectID(w, r)
	if !ok {
		return
	}
	versions, err := s.service.ListVersions(r.Context(), projectID)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusOK, lo.Map(versions, func(v *domain.StatementVersion, _ int) versionSummary {
		return summarize(v)
	}))
}

func (s *Server) handleSaveVersion(w http.ResponseWriter, r *http.Request) {
	projectID, ok := s.projectID(w, r)
	if !ok {
		return
	}
	var req saveVersionRequest
	if !s.decode(w, r, &req) {
		return
	}
	v, err := s.service.SaveVersion(r.Context(), projectID, req.DisplayName)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	e := s.service.Open(r.Context(), projectID, "")
	s.writeJSON(w, http.StatusOK, saveVersionResponse{Version: summarize(v), Statement: e.View()})
}

func (s *Server) handleStartNewVersion(w http.ResponseWriter, r *http.Request) {
	projectID, ok := s.projectID(w, r)
	if !ok {
		return
	}
	e := s.service.StartNewVersion(r.Context(), projectID)
	s.writeJSON(w, http.StatusOK, e.View())
}

func (s *Server) handleLoadVersion(w http.ResponseWriter, r *http.Request) {
	projectID, ok := s.projectID(w, r)
	if !ok {
		return
	}
	versionID, err := parseVersionID(r)
	if err != nil || versionID <= 0 {
		s.writeError(w, http.StatusBadRequest, "invalid version id")
		return
	}
	e, err := s.service.LoadVersion(r.Context(), projectID, versionID)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusOK, e.View())
}

func (s *Server) handleDeleteVersion(w http.ResponseWriter, r *http.Request) {
	projectID, ok := s.projectID(w, r)
	if !ok {
		return
	}
	versionID, err := parseVersionID(r)
	if err != nil || versionID <= 0 {
		s.writeError(w, http.StatusBadRequest, "invalid version id")
		return
	}
	if err := s.service.DeleteVersion(r.Context(), projectID, versionID); err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	e := s.service.Open(r.Context(), projectID, "")
	s.writeJSON(w, http.StatusOK, e.View())
}
