package ledgerhttp

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/bloodbank/bloodbank/internal/bloodgroup"
	"github.com/bloodbank/bloodbank/internal/ledger"
)

// LedgerService is the surface the handlers need; satisfied by *ledger.Service.
type LedgerService interface {
	Register(ctx context.Context, code string, minThreshold *int, initialQuantity int) (ledger.Counter, error)
	ApplyTransaction(ctx context.Context, in ledger.ApplyInput) (ledger.Counter, error)
	CheckAvailability(ctx context.Context, code string, quantity int) (bool, error)
	Counter(ctx context.Context, code string) (ledger.Counter, error)
	Counters(ctx context.Context) ([]ledger.Counter, error)
	Transactions(ctx context.Context, filter ledger.TransactionFilter) ([]ledger.Transaction, error)
	ListLowStock(ctx context.Context) ([]ledger.LowStockAlert, error)
}

type Handler struct {
	svc LedgerService
}

func NewHandler(svc LedgerService) *Handler {
	return &Handler{svc: svc}
}

func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

func (h *Handler) ListCounters(w http.ResponseWriter, r *http.Request) {
	counters, err := h.svc.Counters(r.Context())
	if err != nil {
		writeDomainError(w, err)
		return
	}
	if counters == nil {
		counters = []ledger.Counter{}
	}
	writeJSON(w, http.StatusOK, counters)
}

type registerRequest struct {
	BloodGroup   string `json:"bloodGroup"`
	Quantity     int    `json:"quantity"`
	MinThreshold *int   `json:"minThreshold"`
}

func (h *Handler) Register(w http.ResponseWriter, r *http.Request) {
	var req registerRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, codeInvalidInput, "malformed request body")
		return
	}

	c, err := h.svc.Register(r.Context(), req.BloodGroup, req.MinThreshold, req.Quantity)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, c)
}

func (h *Handler) GetCounter(w http.ResponseWriter, r *http.Request) {
	c, err := h.svc.Counter(r.Context(), chi.URLParam(r, "bloodGroup"))
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, c)
}

// CheckAvailability never reports an error for an unknown group: callers use it
// for admission decisions and an unregistered group is simply unavailable.
func (h *Handler) CheckAvailability(w http.ResponseWriter, r *http.Request) {
	code := chi.URLParam(r, "bloodGroup")
	if code == "" {
		code = r.URL.Query().Get("bloodGroup")
	}
	quantity, err := strconv.Atoi(r.URL.Query().Get("quantity"))
	if err != nil || quantity < 1 {
		writeError(w, http.StatusBadRequest, codeInvalidInput, "quantity must be a positive integer")
		return
	}

	available, err := h.svc.CheckAvailability(r.Context(), code, quantity)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, available)
}

type transactionRequest struct {
	BloodGroup  string `json:"bloodGroup"`
	Quantity    int    `json:"quantity"`
	EffectType  string `json:"effectType"`
	Remarks     string `json:"remarks,omitempty"`
	ReferenceID string `json:"referenceId,omitempty"`
}

func (h *Handler) ApplyTransaction(w http.ResponseWriter, r *http.Request) {
	var req transactionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, codeInvalidInput, "malformed request body")
		return
	}
	h.apply(w, r, req)
}

// ApplyEffect serves the per-effect convenience routes, e.g. POST /{bloodGroup}/donate.
func (h *Handler) ApplyEffect(effect ledger.EffectType) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var body struct {
			Quantity    int    `json:"quantity"`
			Remarks     string `json:"remarks,omitempty"`
			ReferenceID string `json:"referenceId,omitempty"`
		}
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			writeError(w, http.StatusBadRequest, codeInvalidInput, "malformed request body")
			return
		}
		h.apply(w, r, transactionRequest{
			BloodGroup:  chi.URLParam(r, "bloodGroup"),
			Quantity:    body.Quantity,
			EffectType:  string(effect),
			Remarks:     body.Remarks,
			ReferenceID: body.ReferenceID,
		})
	}
}

func (h *Handler) apply(w http.ResponseWriter, r *http.Request, req transactionRequest) {
	c, err := h.svc.ApplyTransaction(r.Context(), ledger.ApplyInput{
		BloodGroup:  bloodgroup.Group(req.BloodGroup),
		Quantity:    req.Quantity,
		EffectType:  ledger.EffectType(req.EffectType),
		Remarks:     req.Remarks,
		ReferenceID: req.ReferenceID,
	})
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, c)
}

func (h *Handler) ListTransactions(w http.ResponseWriter, r *http.Request) {
	var filter ledger.TransactionFilter
	q := r.URL.Query()

	if v := q.Get("type"); v != "" {
		filter.EffectType = ledger.EffectType(v)
	}
	for param, dst := range map[string]*time.Time{"start": &filter.Start, "end": &filter.End} {
		if v := q.Get(param); v != "" {
			ts, err := time.Parse(time.RFC3339, v)
			if err != nil {
				writeError(w, http.StatusBadRequest, codeInvalidInput, param+" must be RFC 3339")
				return
			}
			*dst = ts
		}
	}

	txns, err := h.svc.Transactions(r.Context(), filter)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	if txns == nil {
		txns = []ledger.Transaction{}
	}
	writeJSON(w, http.StatusOK, txns)
}

func (h *Handler) ListLowStock(w http.ResponseWriter, r *http.Request) {
	alerts, err := h.svc.ListLowStock(r.Context())
	if err != nil {
		writeDomainError(w, err)
		return
	}
	if alerts == nil {
		alerts = []ledger.LowStockAlert{}
	}
	writeJSON(w, http.StatusOK, alerts)
}

// Stable error codes shared with the request service's ledger client.
const (
	codeNotFound          = "NOT_FOUND"
	codeInvalidInput      = "INVALID_INPUT"
	codeAlreadyExists     = "ALREADY_EXISTS"
	codeInsufficientStock = "INSUFFICIENT_STOCK"
	codeInvalidDiscard    = "INVALID_DISCARD"
	codeInternal          = "INTERNAL"
)

type errorResponse struct {
	Error string `json:"error"`
	Code  string `json:"code"`
}

func writeDomainError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, ledger.ErrNotFound):
		writeError(w, http.StatusNotFound, codeNotFound, err.Error())
	case errors.Is(err, ledger.ErrAlreadyExists):
		writeError(w, http.StatusConflict, codeAlreadyExists, err.Error())
	case errors.Is(err, ledger.ErrInsufficientStock):
		writeError(w, http.StatusConflict, codeInsufficientStock, err.Error())
	case errors.Is(err, ledger.ErrInvalidDiscard):
		writeError(w, http.StatusConflict, codeInvalidDiscard, err.Error())
	case errors.Is(err, bloodgroup.ErrInvalid),
		errors.Is(err, ledger.ErrMissingThreshold),
		errors.Is(err, ledger.ErrInvalidQuantity),
		errors.Is(err, ledger.ErrInvalidEffectType):
		writeError(w, http.StatusBadRequest, codeInvalidInput, err.Error())
	default:
		// Never leak internals to callers.
		writeError(w, http.StatusInternalServerError, codeInternal, "internal error")
	}
}

func writeError(w http.ResponseWriter, status int, code, msg string) {
	writeJSON(w, status, errorResponse{Error: msg, Code: code})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
