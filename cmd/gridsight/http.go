package main

import (
	"crypto/subtle"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"golang.org/x/crypto/bcrypt"

	"github.com/gridsight/gridsight/kit"
	"github.com/gridsight/gridsight/scan"
)

func (a *app) router() http.Handler {
	r := chi.NewRouter()
	r.Use(a.requestContext)

	if a.cfg.HTTP.Username != "" && a.cfg.HTTP.PasswordHash != "" {
		r.Use(a.basicAuth)
	}

	r.Get("/health", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("ok"))
	})

	r.Post("/scan", a.handleScan)
	r.Post("/dump", a.handleDump)
	r.Get("/scans", a.handleListScans)
	r.Get("/scans/{id}", a.handleGetScan)
	r.Get("/stats", a.handleStats)
	r.Get("/annotations", a.handleListAnnotations)
	r.Put("/annotations/{key}", a.handlePutAnnotation)

	return r
}

// requestContext tags every request with a request id, the http transport
// marker, and the caller's session id (X-Session-ID header, default
// per-client "default").
func (a *app) requestContext(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := kit.WithTransport(r.Context(), "http")
		ctx = kit.WithRequestID(ctx, requestID())
		if sess := r.Header.Get("X-Session-ID"); sess != "" {
			ctx = kit.WithSessionID(ctx, sess)
		}
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func (a *app) basicAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		user, pass, ok := r.BasicAuth()
		if !ok ||
			subtle.ConstantTimeCompare([]byte(user), []byte(a.cfg.HTTP.Username)) != 1 ||
			bcrypt.CompareHashAndPassword([]byte(a.cfg.HTTP.PasswordHash), []byte(pass)) != nil {
			w.Header().Set("WWW-Authenticate", `Basic realm="gridsight"`)
			http.Error(w, "unauthorized", http.StatusUnauthorized)
			return
		}
		next.ServeHTTP(w, r)
	})
}

type scanRequest struct {
	URL string `json:"url"`
}

func (a *app) handleScan(w http.ResponseWriter, r *http.Request) {
	var req scanRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.URL == "" {
		http.Error(w, "url is required", http.StatusBadRequest)
		return
	}

	res, err := a.runScan(r.Context(), req.URL)
	if err != nil {
		a.writeScanError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

func (a *app) handleDump(w http.ResponseWriter, r *http.Request) {
	var req scanRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.URL == "" {
		http.Error(w, "url is required", http.StatusBadRequest)
		return
	}

	rec, err := a.runDump(r.Context(), req.URL)
	if err != nil {
		a.writeScanError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, rec)
}

func (a *app) writeScanError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, errScanInProgress):
		http.Error(w, err.Error(), http.StatusConflict)
	case errors.Is(err, scan.ErrAcquisition):
		http.Error(w, err.Error(), http.StatusBadGateway)
	default:
		http.Error(w, err.Error(), http.StatusInternalServerError)
	}
}

func (a *app) handleListScans(w http.ResponseWriter, r *http.Request) {
	list, err := a.store.ListScans(r.Context(), 50)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, list)
}

func (a *app) handleGetScan(w http.ResponseWriter, r *http.Request) {
	rec, err := a.store.GetScan(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	if rec == nil {
		http.Error(w, "not found", http.StatusNotFound)
		return
	}
	writeJSON(w, http.StatusOK, rec)
}

func (a *app) handleStats(w http.ResponseWriter, r *http.Request) {
	text, err := a.stats(r.Context())
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"stats": text})
}

func (a *app) handleListAnnotations(w http.ResponseWriter, r *http.Request) {
	list, err := a.store.ListAnnotations(r.Context())
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, list)
}

type annotationRequest struct {
	Note string `json:"note"`
}

func (a *app) handlePutAnnotation(w http.ResponseWriter, r *http.Request) {
	var req annotationRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid body", http.StatusBadRequest)
		return
	}

	if err := a.store.SaveAnnotation(r.Context(), chi.URLParam(r, "key"), req.Note); err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(v)
}
