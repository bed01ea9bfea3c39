package web

import (
	"bytes"
	"fmt"
	"io"
	"net/http"
	"strconv"

	"github.com/vbonduro/feestatement/internal/export"
)

type exportFormat struct {
	ext         string
	contentType string
	render      func(io.Writer, export.Document) error
}

var (
	formatPDF  = exportFormat{ext: "pdf", contentType: "application/pdf", render: export.PDF}
	formatXLSX = exportFormat{ext: "xlsx", contentType: "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet", render: export.XLSX}
	formatCSV  = exportFormat{ext: "csv", contentType: "text/csv; charset=utf-8", render: export.CSV}
)

// handleExport renders the statement in the given format. The view query
// value selects the internal breakdown (default) or the customer view.
func (s *Server) handleExport(format exportFormat) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		projectID, ok := s.projectID(w, r)
		if !ok {
			return
		}
		view, err := export.ParseView(r.URL.Query().Get("view"))
		if err != nil {
			s.writeError(w, http.StatusBadRequest, err.Error())
			return
		}

		e := s.service.Open(r.Context(), projectID, "")
		versionID, _ := e.EditingVersion()
		data := e.Data()
		doc := export.Document{
			Company:      s.opts.Company,
			ProjectID:    projectID,
			VersionID:    versionID,
			Date:         s.now(),
			View:         view,
			Details:      data.ProjectDetails,
			Items:        data.Items,
			ProfitMargin: data.ProfitMargin,
		}

		// Render fully before writing so a failure still yields a clean error response.
		var buf bytes.Buffer
		if err := format.render(&buf, doc); err != nil {
			s.logger.Error("export failed", "project_id", projectID, "format", format.ext, "error", err)
			s.writeError(w, http.StatusInternalServerError, "export failed")
			return
		}

		filename := fmt.Sprintf("statement-%s-%s.%s", projectID, view, format.ext)
		w.Header().Set("Content-Type", format.contentType)
		w.Header().Set("Content-Disposition", "attachment; filename="+strconv.Quote(filename))
		w.Header().Set("Content-Length", strconv.Itoa(buf.Len()))
		if _, err := buf.WriteTo(w); err != nil {
			s.logger.Warn("export write interrupted", "project_id", projectID, "error", err)
		}
	}
}
