package server

import (
	"fmt"
	"io"
	"net/http"
	"strconv"

	"github.com/aidanlsb/tabula/internal/export"
)

// IgnoredFiltersHeader reports how many filters did not constrain the export.
const IgnoredFiltersHeader = "X-Ignored-Filters"

func (s *Server) handleExport(w http.ResponseWriter, r *http.Request) {
	tenantID, err := pathID(r, "tenantId")
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	databaseID, err := pathID(r, "databaseId")
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	tableID, err := pathID(r, "tableId")
	if err != nil {
		s.respondError(w, r, err)
		return
	}

	params, err := export.ParseParams(r.URL.Query(), s.opts.DefaultLimit)
	if err != nil {
		s.respondError(w, r, err)
		return
	}

	res, err := s.opts.Exporter.Export(r.Context(), export.Request{
		TenantID:   tenantID,
		DatabaseID: databaseID,
		TableID:    tableID,
		Params:     params,
	})
	if err != nil {
		s.respondError(w, r, err)
		return
	}

	if len(res.Ignored) > 0 {
		s.logger.Debug("filters ignored",
			"request_id", RequestIDFromContext(r.Context()),
			"table", tableID,
			"ignored", res.Ignored,
		)
	}

	filename := export.Filename(tableID, s.opts.Clock.Now().In(s.opts.Location))
	h := w.Header()
	h.Set("Content-Type", "text/csv; charset=utf-8")
	h.Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))
	h.Set("Cache-Control", "no-cache")
	h.Set(IgnoredFiltersHeader, strconv.Itoa(len(res.Ignored)))
	w.WriteHeader(http.StatusOK)
	_, _ = io.WriteString(w, res.CSV)
}
