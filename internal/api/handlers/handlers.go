// Package handlers exposes the ledger over HTTP. Every response body is JSON,
// and failures map onto the error taxonomy of the layers below: gateway
// trouble is 502, an unusable model reply is 422, a bad request is 400, a
// missing record is 404.
package handlers

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"
	"strings"

	"github.com/rs/zerolog"

	"github.com/dvoronin/ledgerline/internal/api/middleware"
	"github.com/dvoronin/ledgerline/internal/extract"
	"github.com/dvoronin/ledgerline/internal/gateway"
	"github.com/dvoronin/ledgerline/internal/ingest"
	"github.com/dvoronin/ledgerline/internal/ledger"
	"github.com/dvoronin/ledgerline/internal/store"
)

// maxUploadBytes caps multipart receipt uploads.
const maxUploadBytes = gateway.MaxImageBytes + 1<<20

// TransactionsHandler serves the transaction endpoints.
type TransactionsHandler struct {
	svc *ingest.Service
	log zerolog.Logger
}

func NewTransactionsHandler(svc *ingest.Service, log zerolog.Logger) *TransactionsHandler {
	return &TransactionsHandler{svc: svc, log: log}
}

// Register attaches the routes to the mux.
func (h *TransactionsHandler) Register(mux *http.ServeMux) {
	mux.HandleFunc("/api/transactions", h.transactions)
	mux.HandleFunc("/api/transactions/", h.transactionByID)
	mux.HandleFunc("/api/transactions/text", h.createFromText)
	mux.HandleFunc("/api/transactions/image", h.createFromImage)
	mux.HandleFunc("/api/categories", h.listCategories)
	mux.HandleFunc("/health", h.health)
}

func (h *TransactionsHandler) transactions(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		h.list(w, r)
	case http.MethodPost:
		h.createManual(w, r)
	default:
		middleware.WriteError(w, http.StatusMethodNotAllowed, "Method not allowed")
	}
}

func (h *TransactionsHandler) transactionByID(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodDelete {
		middleware.WriteError(w, http.StatusMethodNotAllowed, "Method not allowed")
		return
	}

	raw := strings.TrimPrefix(r.URL.Path, "/api/transactions/")
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		middleware.WriteError(w, http.StatusBadRequest, "Invalid transaction id")
		return
	}

	if err := h.svc.Delete(r.Context(), id); err != nil {
		h.writeServiceError(w, r, err)
		return
	}

	middleware.WriteJSON(w, http.StatusOK, map[string]interface{}{"id": id, "deleted": true})
}

func (h *TransactionsHandler) createManual(w http.ResponseWriter, r *http.Request) {
	var tx ledger.Transaction
	if err := json.NewDecoder(r.Body).Decode(&tx); err != nil {
		middleware.WriteError(w, http.StatusBadRequest, "Invalid JSON body")
		return
	}

	saved, err := h.svc.CreateManual(r.Context(), &tx)
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}

	middleware.WriteJSON(w, http.StatusCreated, saved)
}

func (h *TransactionsHandler) createFromText(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		middleware.WriteError(w, http.StatusMethodNotAllowed, "Method not allowed")
		return
	}

	var req struct {
		Message string `json:"message"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		middleware.WriteError(w, http.StatusBadRequest, "Invalid JSON body")
		return
	}

	saved, err := h.svc.CreateFromText(r.Context(), req.Message)
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}

	middleware.WriteJSON(w, http.StatusCreated, saved)
}

func (h *TransactionsHandler) createFromImage(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		middleware.WriteError(w, http.StatusMethodNotAllowed, "Method not allowed")
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, maxUploadBytes)
	if err := r.ParseMultipartForm(maxUploadBytes); err != nil {
		middleware.WriteError(w, http.StatusBadRequest, "Invalid multipart form")
		return
	}

	file, header, err := r.FormFile("image")
	if err != nil {
		middleware.WriteError(w, http.StatusBadRequest, "Missing image file")
		return
	}
	defer file.Close()

	data, err := io.ReadAll(file)
	if err != nil {
		middleware.WriteError(w, http.StatusBadRequest, "Failed to read image file")
		return
	}

	mimeType := header.Header.Get("Content-Type")
	if mimeType == "" {
		mimeType = http.DetectContentType(data)
	}

	saved, err := h.svc.CreateFromImage(r.Context(), data, mimeType)
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}

	middleware.WriteJSON(w, http.StatusCreated, saved)
}

func (h *TransactionsHandler) list(w http.ResponseWriter, r *http.Request) {
	params := r.URL.Query()
	q := store.Query{
		SortOrder:       params.Get("sort_order"),
		Category:        params.Get("category"),
		TransactionType: params.Get("transaction_type"),
		IncludeDeleted:  params.Get("include_deleted") == "true",
	}

	txs, err := h.svc.Query(r.Context(), q)
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}

	middleware.WriteJSON(w, http.StatusOK, map[string]interface{}{
		"transactions": txs,
		"count":        len(txs),
	})
}

func (h *TransactionsHandler) listCategories(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		middleware.WriteError(w, http.StatusMethodNotAllowed, "Method not allowed")
		return
	}
	middleware.WriteJSON(w, http.StatusOK, map[string]interface{}{"categories": ledger.Categories()})
}

func (h *TransactionsHandler) health(w http.ResponseWriter, r *http.Request) {
	middleware.WriteJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// writeServiceError translates service errors into HTTP statuses.
func (h *TransactionsHandler) writeServiceError(w http.ResponseWriter, r *http.Request, err error) {
	var vErr *ledger.ValidationError
	var pErr *gateway.ProviderError

	switch {
	case errors.As(err, &vErr):
		middleware.WriteError(w, http.StatusBadRequest, vErr.Error())
	case errors.Is(err, ledger.ErrNotFound):
		middleware.WriteError(w, http.StatusNotFound, "Transaction not found")
	case errors.As(err, &pErr):
		h.log.Error().Err(err).Str("path", r.URL.Path).Msg("AI gateway failure")
		middleware.WriteError(w, http.StatusBadGateway, "AI model is unavailable")
	case errors.Is(err, extract.ErrMalformedReply), errors.Is(err, extract.ErrMissingAmount):
		middleware.WriteError(w, http.StatusUnprocessableEntity, "Could not extract a transaction from the model reply")
	default:
		h.log.Error().Err(err).Str("path", r.URL.Path).Msg("Internal error")
		middleware.WriteError(w, http.StatusInternalServerError, "Internal server error")
	}
}
