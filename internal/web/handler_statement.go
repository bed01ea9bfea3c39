package web

import (
	"net/http"
	"time"

	"github.com/vbonduro/feestatement/internal/catalog"
	"github.com/vbonduro/feestatement/internal/domain"
	"github.com/vbonduro/feestatement/internal/estimate"
	"github.com/vbonduro/feestatement/internal/statement"
)

type addItemRequest struct {
	Category string `json:"category" validate:"required,max=200"`
}

type fieldUpdateRequest struct {
	Field string `json:"field" validate:"required,max=64"`
	Value any    `json:"value"`
}

type projectTypeRequest struct {
	ProjectType string `json:"projectType" validate:"required,max=64"`
}

type marginRequest struct {
	ProfitMargin any `json:"profitMargin"`
}

type lockRequest struct {
	Locked *bool `json:"locked" validate:"required"`
}

type itemResponse struct {
	Item      domain.FeeItem `json:"item"`
	Statement statement.View `json:"statement"`
}

type autoCalculateResponse struct {
	Updated   int            `json:"updated"`
	Statement statement.View `json:"statement"`
}

type saveResponse struct {
	LastSaved time.Time      `json:"lastSaved"`
	Statement statement.View `json:"statement"`
}

// handleGetStatement opens the project's statement. The optional
// projectType query value seeds a statement that does not exist yet.
func (s *Server) handleGetStatement(w http.ResponseWriter, r *http.Request) {
	projectID, ok := s.projectID(w, r)
	if !ok {
		return
	}
	pt := s.service.ResolveProjectType(r.URL.Query().Get("projectType"))
	e := s.service.Open(r.Context(), projectID, pt)
	s.writeJSON(w, http.StatusOK, e.View())
}

func (s *Server) handleAddItem(w http.ResponseWriter, r *http.Request) {
	projectID, ok := s.projectID(w, r)
	if !ok {
		return
	}
	var req addItemRequest
	if !s.decode(w, r, &req) {
		return
	}
	e := s.service.Open(r.Context(), projectID, "")
	item, err := e.AddNewItem(req.Category)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusCreated, itemResponse{Item: item, Statement: e.View()})
}

func (s *Server) handleUpdateItem(w http.ResponseWriter, r *http.Request) {
	projectID, ok := s.projectID(w, r)
	if !ok {
		return
	}
	var req fieldUpdateRequest
	if !s.decode(w, r, &req) {
		return
	}
	e := s.service.Open(r.Context(), projectID, "")
	item, err := e.UpdateItem(r.PathValue("itemId"), req.Field, req.Value)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusOK, itemResponse{Item: item, Statement: e.View()})
}

func (s *Server) handleDeleteItem(w http.ResponseWriter, r *http.Request) {
	projectID, ok := s.projectID(w, r)
	if !ok {
		return
	}
	e := s.service.Open(r.Context(), projectID, "")
	if err := e.DeleteItem(r.PathValue("itemId")); err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusOK, e.View())
}

func (s *Server) handleAutoCalculate(w http.ResponseWriter, r *http.Request) {
	projectID, ok := s.projectID(w, r)
	if !ok {
		return
	}
	e := s.service.Open(r.Context(), projectID, "")
	n, err := e.AutoCalculateQuantities()
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusOK, autoCalculateResponse{Updated: n, Statement: e.View()})
}

func (s *Server) handleChangeProjectType(w http.ResponseWriter, r *http.Request) {
	projectID, ok := s.projectID(w, r)
	if !ok {
		return
	}
	var req projectTypeRequest
	if !s.decode(w, r, &req) {
		return
	}
	e := s.service.Open(r.Context(), projectID, "")
	if err := e.ChangeProjectType(s.service.ResolveProjectType(req.ProjectType)); err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusOK, e.View())
}

func (s *Server) handleUpdateDetails(w http.ResponseWriter, r *http.Request) {
	projectID, ok := s.projectID(w, r)
	if !ok {
		return
	}
	var req fieldUpdateRequest
	if !s.decode(w, r, &req) {
		return
	}
	e := s.service.Open(r.Context(), projectID, "")
	if _, err := e.UpdateProjectDetails(req.Field, req.Value); err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusOK, e.View())
}

func (s *Server) handleSetMargin(w http.ResponseWriter, r *http.Request) {
	projectID, ok := s.projectID(w, r)
	if !ok {
		return
	}
	var req marginRequest
	if !s.decode(w, r, &req) {
		return
	}
	e := s.service.Open(r.Context(), projectID, "")
	if _, err := e.SetProfitMargin(req.ProfitMargin); err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusOK, e.View())
}

func (s *Server) handleSetLock(w http.ResponseWriter, r *http.Request) {
	projectID, ok := s.projectID(w, r)
	if !ok {
		return
	}
	var req lockRequest
	if !s.decode(w, r, &req) {
		return
	}
	e := s.service.Open(r.Context(), projectID, "")
	e.SetLocked(*req.Locked)
	s.writeJSON(w, http.StatusOK, e.View())
}

func (s *Server) handleSaveStatement(w http.ResponseWriter, r *http.Request) {
	projectID, ok := s.projectID(w, r)
	if !ok {
		return
	}
	snap, err := s.service.SaveStatement(r.Context(), projectID)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	e := s.service.Open(r.Context(), projectID, "")
	s.writeJSON(w, http.StatusOK, saveResponse{LastSaved: snap.LastSaved, Statement: e.View()})
}

// handleCloseSession drops the in-memory statement. Unsaved edits are
// discarded; the next request reopens it from the local cache.
func (s *Server) handleCloseSession(w http.ResponseWriter, r *http.Request) {
	projectID, ok := s.projectID(w, r)
	if !ok {
		return
	}
	s.service.Close(projectID)
	w.WriteHeader(http.StatusNoContent)
}

type catalogResponse struct {
	ProjectType domain.ProjectType `json:"projectType"`
	Categories  []string           `json:"categories"`
	Items       []domain.FeeItem   `json:"items"`
}

// handleCatalog lists the default items and categories of a project type,
// for the add-item category picker.
func (s *Server) handleCatalog(w http.ResponseWriter, r *http.Request) {
	pt := s.service.ResolveProjectType(r.PathValue("projectType"))
	s.writeJSON(w, http.StatusOK, catalogResponse{
		ProjectType: pt,
		Categories:  catalog.Categories(pt),
		Items:       catalog.ForProjectType(pt),
	})
}

type customerResponse struct {
	ProjectID   string `json:"projectId"`
	ProjectName string `json:"projectName,omitempty"`
	ClientName  string `json:"clientName,omitempty"`
	Address     string `json:"address,omitempty"`
	estimate.CustomerView
}

func (s *Server) handleCustomerView(w http.ResponseWriter, r *http.Request) {
	projectID, ok := s.projectID(w, r)
	if !ok {
		return
	}
	e := s.service.Open(r.Context(), projectID, "")
	d := e.ProjectDetails()
	s.writeJSON(w, http.StatusOK, customerResponse{
		ProjectID:    projectID,
		ProjectName:  d.ProjectName,
		ClientName:   d.ClientName,
		Address:      d.Address,
		CustomerView: e.CustomerView(),
	})
}
