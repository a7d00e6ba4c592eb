package requesthttp

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/bloodbank/bloodbank/internal/clients"
	"github.com/bloodbank/bloodbank/internal/ledger"
	"github.com/bloodbank/bloodbank/internal/request"
)

// Coordinator is the request lifecycle surface the handler exposes over HTTP.
type Coordinator interface {
	CreateRequest(ctx context.Context, in request.CreateInput) (*request.Request, error)
	GetRequest(ctx context.Context, id string) (*request.Request, error)
	ListRequests(ctx context.Context) ([]request.Request, error)
	ListByStatus(ctx context.Context, status string) ([]request.Request, error)
	ListByGroupAndStatus(ctx context.Context, group, status string) ([]request.Request, error)
	ListByHospital(ctx context.Context, hospital string) ([]request.Request, error)
	ListByDateRange(ctx context.Context, r request.DateRange) ([]request.Request, error)
	UpdateStatus(ctx context.Context, id string, status request.Status, remarks string) (*request.Request, error)
	ProcessEmergencyRequests(ctx context.Context) (int, error)
}

type Handler struct {
	coordinator Coordinator
}

func NewHandler(coordinator Coordinator) *Handler {
	return &Handler{coordinator: coordinator}
}

type createRequestBody struct {
	PatientName   string     `json:"patientName"`
	BloodGroup    string     `json:"bloodGroup"`
	UnitsRequired int        `json:"unitsRequired"`
	HospitalName  string     `json:"hospitalName"`
	ContactNumber string     `json:"contactNumber"`
	RequiredBy    *time.Time `json:"requiredBy,omitempty"`
	Priority      string     `json:"priority"`
}

func (h *Handler) CreateRequest(w http.ResponseWriter, r *http.Request) {
	var body createRequestBody
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeError(w, http.StatusBadRequest, "malformed request body")
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	created, err := h.coordinator.CreateRequest(ctx, request.CreateInput{
		PatientName:   body.PatientName,
		BloodGroup:    body.BloodGroup,
		UnitsRequired: body.UnitsRequired,
		HospitalName:  body.HospitalName,
		ContactNumber: body.ContactNumber,
		RequiredBy:    body.RequiredBy,
		Priority:      body.Priority,
	})
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, created)
}

func (h *Handler) GetRequest(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if id == "" {
		writeError(w, http.StatusBadRequest, "missing request id")
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 3*time.Second)
	defer cancel()

	req, err := h.coordinator.GetRequest(ctx, id)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, req)
}

func (h *Handler) ListRequests(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	requests, err := h.coordinator.ListRequests(ctx)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeList(w, requests)
}

func (h *Handler) ListByStatus(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	requests, err := h.coordinator.ListByStatus(ctx, r.PathValue("status"))
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeList(w, requests)
}

func (h *Handler) ListByGroupAndStatus(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	requests, err := h.coordinator.ListByGroupAndStatus(ctx, r.PathValue("bloodGroup"), r.PathValue("status"))
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeList(w, requests)
}

func (h *Handler) ListByHospital(w http.ResponseWriter, r *http.Request) {
	hospital := r.PathValue("hospitalName")
	if hospital == "" {
		writeError(w, http.StatusBadRequest, "missing hospital name")
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	requests, err := h.coordinator.ListByHospital(ctx, hospital)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeList(w, requests)
}

func (h *Handler) ListByDateRange(w http.ResponseWriter, r *http.Request) {
	start, err := time.Parse(time.RFC3339, r.URL.Query().Get("start"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "start must be RFC3339")
		return
	}
	end, err := time.Parse(time.RFC3339, r.URL.Query().Get("end"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "end must be RFC3339")
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	requests, err := h.coordinator.ListByDateRange(ctx, request.DateRange{Start: start, End: end})
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeList(w, requests)
}

func (h *Handler) UpdateStatus(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if id == "" {
		writeError(w, http.StatusBadRequest, "missing request id")
		return
	}
	status, err := request.ParseStatus(r.URL.Query().Get("status"))
	if err != nil {
		writeDomainError(w, err)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 10*time.Second)
	defer cancel()

	updated, err := h.coordinator.UpdateStatus(ctx, id, status, r.URL.Query().Get("remarks"))
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, updated)
}

func (h *Handler) ProcessEmergency(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 30*time.Second)
	defer cancel()

	approved, err := h.coordinator.ProcessEmergencyRequests(ctx)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]int{"approved": approved})
}

func writeList(w http.ResponseWriter, requests []request.Request) {
	if requests == nil {
		requests = []request.Request{}
	}
	writeJSON(w, http.StatusOK, requests)
}

func writeDomainError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, request.ErrNotFound), errors.Is(err, ledger.ErrNotFound):
		writeError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, request.ErrInvalidRequest),
		errors.Is(err, request.ErrInvalidStatus),
		errors.Is(err, request.ErrInvalidPriority):
		writeError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, request.ErrInvalidTransition),
		errors.Is(err, ledger.ErrInsufficientStock):
		writeError(w, http.StatusConflict, err.Error())
	case errors.Is(err, clients.ErrAmbiguousOutcome):
		writeError(w, http.StatusBadGateway, "fulfillment outcome unknown, contact the blood bank before retrying")
	case errors.Is(err, clients.ErrUnavailable):
		writeError(w, http.StatusBadGateway, "inventory service unavailable")
	default:
		writeError(w, http.StatusInternalServerError, "internal error")
	}
}
