package http

import (
	"bytes"
	"net/http"

	applog "finance/internal/log"
)

func (s *Server) handleExportBackup(w http.ResponseWriter, r *http.Request) {
	// Buffer so a failed export still yields a proper error status.
	var buf bytes.Buffer
	if err := s.svc.Backup.Export(r.Context(), &buf); err != nil {
		ErrorFrom(r.Context(), err).Write(w)
		return
	}
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.Header().Set("Content-Disposition", `attachment; filename="`+s.svc.Backup.Filename()+`"`)
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(buf.Bytes())
}

func (s *Server) handleImportBackup(w http.ResponseWriter, r *http.Request) {
	body := http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := s.svc.Backup.Import(r.Context(), body); err != nil {
		ErrorFrom(r.Context(), err).Write(w)
		return
	}
	s.logger.InfoContext(r.Context(), "Backup restored via API", applog.FieldOperation, applog.OpImport)
	NewJSONResponse().Body(map[string]string{"status": "imported"}).Write(w)
}

func (s *Server) handleReset(w http.ResponseWriter, r *http.Request) {
	if err := s.svc.Backup.ResetAll(r.Context()); err != nil {
		ErrorFrom(r.Context(), err).Write(w)
		return
	}
	NewJSONResponse().Body(map[string]string{"status": "reset"}).Write(w)
}

func (s *Server) handleGetTheme(w http.ResponseWriter, r *http.Request) {
	theme, err := s.svc.Preferences.Theme(r.Context())
	if err != nil {
		ErrorFrom(r.Context(), err).Write(w)
		return
	}
	NewJSONResponse().Body(themeRequest{Theme: theme}).Write(w)
}

func (s *Server) handleSetTheme(w http.ResponseWriter, r *http.Request) {
	var req themeRequest
	if err := DecodeJSON(w, r, &req); err != nil {
		ErrorFrom(r.Context(), err).Write(w)
		return
	}
	if err := s.svc.Preferences.SetTheme(r.Context(), req.Theme); err != nil {
		ErrorFrom(r.Context(), err).Write(w)
		return
	}
	NewJSONResponse().Body(req).Write(w)
}

func (s *Server) handleToggleTheme(w http.ResponseWriter, r *http.Request) {
	theme, err := s.svc.Preferences.ToggleTheme(r.Context())
	if err != nil {
		ErrorFrom(r.Context(), err).Write(w)
		return
	}
	NewJSONResponse().Body(themeRequest{Theme: theme}).Write(w)
}
