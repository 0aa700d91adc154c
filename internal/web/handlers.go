package web

import (
	"errors"
	"fmt"
	"mime"
	"mime/multipart"
	"net/http"
	"os"
	"strconv"
	"strings"

	"github.com/JonMunkholm/fichas/internal/core"
	"github.com/JonMunkholm/fichas/internal/logging"
	"github.com/JonMunkholm/fichas/internal/web/templates"
	"github.com/go-chi/chi/v5"
)

const (
	// formField is the multipart field carrying the export.
	formField = "archivo"

	// multipartOverhead is allowed on top of the file size for boundaries
	// and part headers.
	multipartOverhead = 1 << 20

	// multipartMemory is how much of a form is buffered before parts
	// spill to temporary files.
	multipartMemory = 8 << 20

	// duplicateHeader lists duplicated identifiers on a download.
	duplicateHeader = "X-Duplicate-MFN"

	// duplicateCountHeader carries the number of duplicated identifiers.
	duplicateCountHeader = "X-Duplicate-MFN-Count"

	// maxNoticeMFNs caps how many identifiers a duplicate notice lists.
	maxNoticeMFNs = 50

	xlsxContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
)

// handleIndex renders the upload page with pending notices.
func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	data := templates.IndexData{
		Flashes:     popFlashes(w, r),
		Columns:     core.ColumnNames(),
		MaxFileSize: s.cfg.Conversion.MaxFileSize,
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Header().Set("Cache-Control", "no-store")
	if err := templates.Index(data).Render(r.Context(), w); err != nil {
		logging.FromContext(r.Context()).Error("render index", "error", err)
	}
}

// handleConvertForm converts the submitted export and returns the
// spreadsheet as an attachment. Failures redirect back to the form with a
// notice; duplicate identifiers add a notice without failing.
func (s *Server) handleConvertForm(w http.ResponseWriter, r *http.Request) {
	file, header, err := s.uploadedFile(w, r)
	if err != nil {
		s.redirectWithError(w, r, err)
		return
	}
	defer file.Close()

	conv, err := s.service.Convert(WithRequestMetadata(r.Context(), r), header.Filename, file)
	if err != nil {
		s.redirectWithError(w, r, err)
		return
	}

	var notices []templates.Flash
	if len(conv.Duplicates) > 0 {
		notices = append(notices, templates.Flash{Level: templates.LevelWarning, Message: duplicatesNotice(conv.Duplicates)})
		w.Header().Set(duplicateHeader, duplicatesHeader(conv.Duplicates))
		w.Header().Set(duplicateCountHeader, strconv.Itoa(len(conv.Duplicates)))
	}
	if conv.Replaced > 0 {
		notices = append(notices, templates.Flash{Level: templates.LevelWarning, Message: replacedNotice(conv.Replaced)})
	}
	addFlash(w, r, notices...)
	s.serveListing(w, r, conv.OutputName)
}

// handleDownload serves a previously generated listing.
func (s *Server) handleDownload(w http.ResponseWriter, r *http.Request) {
	s.serveListing(w, r, chi.URLParam(r, "name"))
}

// handleHistory renders recent conversions.
func (s *Server) handleHistory(w http.ResponseWriter, r *http.Request) {
	entries, err := s.service.RecentConversions(r.Context(), 0)
	if err != nil {
		respondError(w, r, err, http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := templates.History(entries).Render(r.Context(), w); err != nil {
		logging.FromContext(r.Context()).Error("render history", "error", err)
	}
}

// handleHealth reports liveness.
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.Write([]byte("ok"))
}

// uploadedFile parses the multipart form and returns the export part.
// The caller closes the file.
func (s *Server) uploadedFile(w http.ResponseWriter, r *http.Request) (multipart.File, *multipart.FileHeader, error) {
	r.Body = http.MaxBytesReader(w, r.Body, s.cfg.Conversion.MaxFileSize+multipartOverhead)

	if err := r.ParseMultipartForm(multipartMemory); err != nil {
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) || strings.Contains(err.Error(), "request body too large") {
			return nil, nil, fmt.Errorf("%w: %v", core.ErrFileTooLarge, err)
		}
		return nil, nil, fmt.Errorf("%w: %v", core.ErrNoFile, err)
	}

	file, header, err := r.FormFile(formField)
	if err != nil {
		return nil, nil, fmt.Errorf("%w: %v", core.ErrNoFile, err)
	}
	if strings.TrimSpace(header.Filename) == "" {
		file.Close()
		return nil, nil, core.ErrNoFile
	}
	return file, header, nil
}

// redirectWithError sends the browser back to the form with a notice.
func (s *Server) redirectWithError(w http.ResponseWriter, r *http.Request, err error) {
	msg := core.MapError(err)
	logging.FromContext(r.Context()).Warn("conversion rejected",
		"error", err.Error(),
		"code", msg.Code,
	)

	text := msg.Message
	var nd *core.NoDigitsError
	if errors.As(err, &nd) {
		text = fmt.Sprintf("%s: %q", text, nd.MFN)
	}
	addFlash(w, r, templates.Flash{Level: templates.LevelError, Message: text})
	http.Redirect(w, r, "/", http.StatusSeeOther)
}

// serveListing streams a generated spreadsheet as an attachment.
func (s *Server) serveListing(w http.ResponseWriter, r *http.Request, name string) {
	path, err := s.service.OutputPath(name)
	if err != nil {
		respondError(w, r, err, statusFor(err))
		return
	}

	f, err := os.Open(path)
	if err != nil {
		respondError(w, r, err, http.StatusInternalServerError)
		return
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		respondError(w, r, err, http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", xlsxContentType)
	w.Header().Set("Content-Disposition", mime.FormatMediaType("attachment", map[string]string{"filename": name}))
	http.ServeContent(w, r, name, info.ModTime(), f)
}

// duplicatesNotice formats the duplicate warning, listing at most
// maxNoticeMFNs identifiers.
func duplicatesNotice(mfns []string) string {
	shown := noticeMFNs(mfns)
	notice := "MFN duplicados detectados: " + strings.Join(shown, ", ")
	if extra := len(mfns) - len(shown); extra > 0 {
		notice += " y " + strconv.Itoa(extra) + " más"
	}
	return notice
}

// replacedNotice tells staff how many cells had control characters
// replaced by "�".
func replacedNotice(cells int) string {
	if cells == 1 {
		return "1 celda tenía caracteres de control y se reemplazaron por �"
	}
	return strconv.Itoa(cells) + " celdas tenían caracteres de control y se reemplazaron por �"
}

// duplicatesHeader lists at most maxNoticeMFNs identifiers; the total is
// sent in duplicateCountHeader.
func duplicatesHeader(mfns []string) string {
	return strings.Join(noticeMFNs(mfns), ",")
}

func noticeMFNs(mfns []string) []string {
	if len(mfns) > maxNoticeMFNs {
		return mfns[:maxNoticeMFNs]
	}
	return mfns
}
