package web

import (
	"net/http"
	"strconv"

	"github.com/JonMunkholm/fichas/internal/core"
	"github.com/JonMunkholm/fichas/internal/web/templates"
)

// maxHistoryLimit caps the limit query parameter of /api/history.
const maxHistoryLimit = 500

// convertResponse is the JSON body of a successful /api/convert.
type convertResponse struct {
	*core.Conversion
	DownloadURL string `json:"download_url"`
}

// handleAPIPreview analyses an export without writing a listing.
func (s *Server) handleAPIPreview(w http.ResponseWriter, r *http.Request) {
	file, header, err := s.uploadedFile(w, r)
	if err != nil {
		respondError(w, r, err, statusFor(err))
		return
	}
	defer file.Close()

	preview, err := s.service.Preview(r.Context(), header.Filename, file)
	if err != nil {
		respondError(w, r, err, statusFor(err))
		return
	}
	writeJSON(w, r, http.StatusOK, preview)
}

// handleAPIConvert converts an export and returns where to download it.
func (s *Server) handleAPIConvert(w http.ResponseWriter, r *http.Request) {
	file, header, err := s.uploadedFile(w, r)
	if err != nil {
		respondError(w, r, err, statusFor(err))
		return
	}
	defer file.Close()

	conv, err := s.service.Convert(WithRequestMetadata(r.Context(), r), header.Filename, file)
	if err != nil {
		respondError(w, r, err, statusFor(err))
		return
	}

	url := templates.DownloadURL(conv.OutputName)
	w.Header().Set("Location", url)
	writeJSON(w, r, http.StatusCreated, convertResponse{Conversion: conv, DownloadURL: url})
}

// handleAPIHistory lists recent conversions, newest first.
func (s *Server) handleAPIHistory(w http.ResponseWriter, r *http.Request) {
	limit := min(parseIntParam(r, "limit", s.cfg.History.ListLimit), maxHistoryLimit)

	entries, err := s.service.RecentConversions(r.Context(), limit)
	if err != nil {
		respondError(w, r, err, http.StatusInternalServerError)
		return
	}
	if entries == nil {
		entries = []core.Conversion{}
	}
	writeJSON(w, r, http.StatusOK, map[string]any{"conversions": entries})
}

// handleStatus reports conversion capacity.
func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, r, http.StatusOK, map[string]any{
		"status":      "ok",
		"conversions": s.service.LimiterStatus(),
	})
}

// parseIntParam parses a positive integer query parameter with a default.
func parseIntParam(r *http.Request, name string, defaultVal int) int {
	val := r.URL.Query().Get(name)
	if val == "" {
		return defaultVal
	}
	i, err := strconv.Atoi(val)
	if err != nil || i < 1 {
		return defaultVal
	}
	return i
}
