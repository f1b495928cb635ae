// Package handler provides the HTTP handlers for the record gateway.
package handler

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"github.com/pkg/errors"
	"github.com/rs/zerolog"

	"github.com/stevemurr/record-gateway/record"
	"github.com/stevemurr/record-gateway/store"
)

const healthTimeout = 2 * time.Second

// Handler holds the server dependencies and registers routes.
type Handler struct {
	store  store.Store
	router *mux.Router
	chain  http.Handler
}

// New creates a Handler and wires up all routes. allowedOrigins controls
// CORS; a single "*" (or an empty list) allows every origin.
func New(s store.Store, allowedOrigins []string) *Handler {
	h := &Handler{store: s, router: mux.NewRouter()}
	h.routes()
	h.chain = corsMiddleware(requestID(accessLog(h.router)), allowedOrigins)
	return h
}

// ServeHTTP makes Handler an http.Handler.
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	h.chain.ServeHTTP(w, r)
}

func (h *Handler) routes() {
	h.router.HandleFunc("/", h.root).Methods(http.MethodGet)
	h.router.HandleFunc("/health", h.health).Methods(http.MethodGet)

	h.router.HandleFunc("/post", h.create).Methods(http.MethodPost)
	h.router.HandleFunc("/get", h.list).Methods(http.MethodGet)
	h.router.HandleFunc("/update/{id}", h.update).Methods(http.MethodPut)
	h.router.HandleFunc("/delete/{id}", h.delete).Methods(http.MethodDelete)
}

// ---------- helpers ----------

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

func writeMessage(w http.ResponseWriter, msg string) {
	writeJSON(w, http.StatusOK, map[string]string{"message": msg})
}

// maxBodyBytes caps request bodies at the same 100kb body-parser allows.
const maxBodyBytes = 100 << 10

var errTrailingData = errors.New("unexpected data after JSON object")

// readRecord decodes a single JSON object body. An empty body reads as {}.
func readRecord(w http.ResponseWriter, r *http.Request) (record.Record, error) {
	defer r.Body.Close()
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	var rec record.Record
	err := dec.Decode(&rec)
	if err == io.EOF {
		return record.Record{}, nil
	}
	if err != nil {
		return nil, err
	}
	if err := dec.Decode(&struct{}{}); err != io.EOF {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			return nil, err
		}
		return nil, errTrailingData
	}
	if rec == nil {
		rec = record.Record{}
	}
	return rec, nil
}

// writeBodyError answers a body that could not be read: 413 when it was
// over the limit, 400 otherwise.
func writeBodyError(w http.ResponseWriter, err error) {
	var tooLarge *http.MaxBytesError
	if errors.As(err, &tooLarge) {
		writeError(w, http.StatusRequestEntityTooLarge, "Request body too large")
		return
	}
	writeError(w, http.StatusBadRequest, "Invalid JSON body: "+err.Error())
}

// ---------- status endpoints ----------

func (h *Handler) root(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{
		"status":  "ok",
		"service": "Record Gateway",
	})
}

func (h *Handler) health(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), healthTimeout)
	defer cancel()
	if err := h.store.Ping(ctx); err != nil {
		zerolog.Ctx(r.Context()).Warn().Err(err).Msg("store ping failed")
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "unhealthy"})
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "healthy"})
}

// ---------- records ----------

func (h *Handler) create(w http.ResponseWriter, r *http.Request) {
	logger := zerolog.Ctx(r.Context())
	rec, err := readRecord(w, r)
	if err != nil {
		writeBodyError(w, err)
		return
	}
	id, err := h.store.Insert(r.Context(), rec)
	if err != nil {
		logger.Error().Err(err).Msg("Failed to add item")
		writeError(w, http.StatusInternalServerError, "Failed to create item: "+errors.Cause(err).Error())
		return
	}
	writeJSON(w, http.StatusCreated, map[string]string{"insertedId": id})
}

func (h *Handler) list(w http.ResponseWriter, r *http.Request) {
	docs, err := h.store.List(r.Context())
	if err != nil {
		zerolog.Ctx(r.Context()).Error().Err(err).Msg("Failed to fetch data")
		writeError(w, http.StatusInternalServerError, "Failed to fetch data")
		return
	}
	if docs == nil {
		docs = []record.Record{}
	}
	writeJSON(w, http.StatusOK, docs)
}

func (h *Handler) update(w http.ResponseWriter, r *http.Request) {
	logger := zerolog.Ctx(r.Context())
	id := mux.Vars(r)["id"]
	if !record.IsValidID(id) {
		writeError(w, http.StatusBadRequest, "Invalid ID format")
		return
	}
	fields, err := readRecord(w, r)
	if err != nil {
		writeBodyError(w, err)
		return
	}
	matched, err := h.store.Update(r.Context(), id, fields)
	if err != nil {
		logger.Error().Err(err).Str("id", id).Msg("Failed to update player")
		writeError(w, http.StatusInternalServerError, "Failed to update player: "+errors.Cause(err).Error())
		return
	}
	if matched == 0 {
		writeError(w, http.StatusNotFound, "Player not found")
		return
	}
	writeMessage(w, "Player updated")
}

// delete does not check the identifier format; a malformed id matches
// nothing and yields 404.
func (h *Handler) delete(w http.ResponseWriter, r *http.Request) {
	logger := zerolog.Ctx(r.Context())
	id := mux.Vars(r)["id"]
	logger.Info().Str("id", id).Msg("Deleting player")
	deleted, err := h.store.Delete(r.Context(), id)
	if err != nil {
		logger.Error().Err(err).Str("id", id).Msg("Failed to delete player")
		writeError(w, http.StatusInternalServerError, "Failed to delete player: "+errors.Cause(err).Error())
		return
	}
	if deleted == 0 {
		writeError(w, http.StatusNotFound, "Player not found")
		return
	}
	writeMessage(w, "Player deleted")
}
