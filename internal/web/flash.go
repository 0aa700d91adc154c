package web

// flash.go carries one-time notices across the redirect that follows a
// form submission. Notices live in a short-lived cookie and are cleared
// when the upload page renders them.

import (
	"encoding/base64"
	"encoding/json"
	"net/http"

	"github.com/JonMunkholm/fichas/internal/logging"
	"github.com/JonMunkholm/fichas/internal/web/templates"
)

const (
	flashCookie = "fichas_flash"
	flashMaxAge = 300 // seconds
	maxFlashes  = 5
)

// readFlashes decodes pending notices; a malformed cookie yields none.
func readFlashes(r *http.Request) []templates.Flash {
	c, err := r.Cookie(flashCookie)
	if err != nil || c.Value == "" {
		return nil
	}
	raw, err := base64.RawURLEncoding.DecodeString(c.Value)
	if err != nil {
		return nil
	}
	var flashes []templates.Flash
	if err := json.Unmarshal(raw, &flashes); err != nil {
		return nil
	}
	return flashes
}

// addFlash queues f after any notices still pending on the request.
func addFlash(w http.ResponseWriter, r *http.Request, fs ...templates.Flash) {
	if len(fs) == 0 {
		return
	}
	flashes := append(readFlashes(r), fs...)
	if len(flashes) > maxFlashes {
		flashes = flashes[len(flashes)-maxFlashes:]
	}
	raw, err := json.Marshal(flashes)
	if err != nil {
		logging.FromContext(r.Context()).Error("encode flash", "error", err)
		return
	}
	http.SetCookie(w, &http.Cookie{
		Name:     flashCookie,
		Value:    base64.RawURLEncoding.EncodeToString(raw),
		Path:     "/",
		MaxAge:   flashMaxAge,
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
}

// popFlashes returns pending notices and clears the cookie.
func popFlashes(w http.ResponseWriter, r *http.Request) []templates.Flash {
	flashes := readFlashes(r)
	if _, err := r.Cookie(flashCookie); err == nil {
		http.SetCookie(w, &http.Cookie{
			Name:     flashCookie,
			Path:     "/",
			MaxAge:   -1,
			HttpOnly: true,
			SameSite: http.SameSiteLaxMode,
		})
	}
	return flashes
}
