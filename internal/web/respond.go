package web

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"

	"github.com/go-playground/validator/v10"

	"github.com/vbonduro/feestatement/internal/service"
	"github.com/vbonduro/feestatement/internal/statement"
	"github.com/vbonduro/feestatement/internal/store"
)

const maxBodyBytes = 1 << 20

type errorResponse struct {
	Error string `json:"error"`
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.logger.Error("write json response failed", "error", err)
	}
}

func (s *Server) writeError(w http.ResponseWriter, status int, msg string) {
	s.writeJSON(w, status, errorResponse{Error: msg})
}

// writeServiceError maps domain and persistence errors onto HTTP statuses.
func (s *Server) writeServiceError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, statement.ErrLocked):
		s.writeError(w, http.StatusConflict, err.Error())
	case errors.Is(err, statement.ErrItemNotFound), errors.Is(err, store.ErrVersionNotFound):
		s.writeError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, statement.ErrUnknownField),
		errors.Is(err, statement.ErrFieldNotApplicable),
		errors.Is(err, statement.ErrDerivedField):
		s.writeError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, service.ErrRemoteUnavailable):
		s.writeError(w, http.StatusBadGateway, "version store is unavailable, please try again")
	default:
		s.logger.Error("request failed", "method", r.Method, "path", r.URL.Path, "error", err)
		s.writeError(w, http.StatusInternalServerError, "internal error")
	}
}

// decode reads a JSON body into dst and validates it. On failure the error
// response has already been written.
func (s *Server) decode(w http.ResponseWriter, r *http.Request, dst any) bool {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err := dec.Decode(dst); err != nil && !errors.Is(err, io.EOF) {
		s.writeError(w, http.StatusBadRequest, "invalid JSON body")
		return false
	}
	if err := s.validate.Struct(dst); err != nil {
		s.writeError(w, http.StatusBadRequest, validationMessage(err))
		return false
	}
	return true
}

func validationMessage(err error) string {
	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) && len(verrs) > 0 {
		fe := verrs[0]
		return fmt.Sprintf("field %s failed %s validation", fe.Field(), fe.Tag())
	}
	return "invalid request"
}

// projectID returns the validated {projectId} path value.
func (s *Server) projectID(w http.ResponseWriter, r *http.Request) (string, bool) {
	id := r.PathValue("projectId")
	if err := s.validate.Var(id, "required,max=128,printascii,excludesall=/\\"); err != nil {
		s.writeError(w, http.StatusBadRequest, "invalid project id")
		return "", false
	}
	return id, true
}

func parseVersionID(r *http.Request) (int64, error) {
	return strconv.ParseInt(r.PathValue("versionId"), 10, 64)
}
