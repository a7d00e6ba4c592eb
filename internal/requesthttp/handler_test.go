package requesthttp

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bloodbank/bloodbank/internal/bloodgroup"
	"github.com/bloodbank/bloodbank/internal/clients"
	"github.com/bloodbank/bloodbank/internal/ledger"
	"github.com/bloodbank/bloodbank/internal/request"
)

type fakeCoordinator struct {
	createFunc           func(ctx context.Context, in request.CreateInput) (*request.Request, error)
	getFunc              func(ctx context.Context, id string) (*request.Request, error)
	listFunc             func(ctx context.Context) ([]request.Request, error)
	listByStatusFunc     func(ctx context.Context, status string) ([]request.Request, error)
	listByGroupFunc      func(ctx context.Context, group, status string) ([]request.Request, error)
	listByHospitalFunc   func(ctx context.Context, hospital string) ([]request.Request, error)
	listByDateRangeFunc  func(ctx context.Context, r request.DateRange) ([]request.Request, error)
	updateStatusFunc     func(ctx context.Context, id string, status request.Status, remarks string) (*request.Request, error)
	processEmergencyFunc func(ctx context.Context) (int, error)
}

func (f *fakeCoordinator) CreateRequest(ctx context.Context, in request.CreateInput) (*request.Request, error) {
	if f.createFunc != nil {
		return f.createFunc(ctx, in)
	}
	return nil, nil
}

func (f *fakeCoordinator) GetRequest(ctx context.Context, id string) (*request.Request, error) {
	if f.getFunc != nil {
		return f.getFunc(ctx, id)
	}
	return nil, fmt.Errorf("%w: request %s", request.ErrNotFound, id)
}

func (f *fakeCoordinator) ListRequests(ctx context.Context) ([]request.Request, error) {
	if f.listFunc != nil {
		return f.listFunc(ctx)
	}
	return nil, nil
}

func (f *fakeCoordinator) ListByStatus(ctx context.Context, status string) ([]request.Request, error) {
	if f.listByStatusFunc != nil {
		return f.listByStatusFunc(ctx, status)
	}
	if _, err := request.ParseStatus(status); err != nil {
		return nil, err
	}
	return nil, nil
}

func (f *fakeCoordinator) ListByGroupAndStatus(ctx context.Context, group, status string) ([]request.Request, error) {
	if f.listByGroupFunc != nil {
		return f.listByGroupFunc(ctx, group, status)
	}
	return nil, nil
}

func (f *fakeCoordinator) ListByHospital(ctx context.Context, hospital string) ([]request.Request, error) {
	if f.listByHospitalFunc != nil {
		return f.listByHospitalFunc(ctx, hospital)
	}
	return nil, nil
}

func (f *fakeCoordinator) ListByDateRange(ctx context.Context, r request.DateRange) ([]request.Request, error) {
	if f.listByDateRangeFunc != nil {
		return f.listByDateRangeFunc(ctx, r)
	}
	return nil, nil
}

func (f *fakeCoordinator) UpdateStatus(ctx context.Context, id string, status request.Status, remarks string) (*request.Request, error) {
	if f.updateStatusFunc != nil {
		return f.updateStatusFunc(ctx, id, status, remarks)
	}
	return nil, nil
}

func (f *fakeCoordinator) ProcessEmergencyRequests(ctx context.Context) (int, error) {
	if f.processEmergencyFunc != nil {
		return f.processEmergencyFunc(ctx)
	}
	return 0, nil
}

func sampleRequest(id string) *request.Request {
	return &request.Request{
		ID:            id,
		PatientName:   "Jane Doe",
		BloodGroup:    bloodgroup.ABPositive,
		UnitsRequired: 3,
		HospitalName:  "City General",
		ContactNumber: "5551234567",
		RequestDate:   time.Unix(0, 0).UTC(),
		RequiredBy:    time.Unix(0, 0).UTC().Add(24 * time.Hour),
		Priority:      request.PriorityLow,
		Status:        request.StatusPending,
	}
}

func TestCreateRequest_Success(t *testing.T) {
	coordinator := &fakeCoordinator{
		createFunc: func(ctx context.Context, in request.CreateInput) (*request.Request, error) {
			require.Equal(t, "AB+", in.BloodGroup)
			require.Equal(t, 3, in.UnitsRequired)
			return sampleRequest("req-1"), nil
		},
	}
	handler := NewHandler(coordinator)

	body := `{"patientName":"Jane Doe","bloodGroup":"AB+","unitsRequired":3,` +
		`"hospitalName":"City General","contactNumber":"5551234567","priority":"LOW"}`
	req := httptest.NewRequest(http.MethodPost, "/api/requests", bytes.NewBufferString(body))
	rr := httptest.NewRecorder()

	handler.CreateRequest(rr, req)

	require.Equal(t, http.StatusCreated, rr.Code)

	var resp request.Request
	require.NoError(t, json.NewDecoder(rr.Body).Decode(&resp))
	assert.Equal(t, "req-1", resp.ID)
	assert.Equal(t, request.StatusPending, resp.Status)
}

func TestCreateRequest_MalformedBody(t *testing.T) {
	handler := NewHandler(&fakeCoordinator{})

	req := httptest.NewRequest(http.MethodPost, "/api/requests", bytes.NewBufferString("{not json"))
	rr := httptest.NewRecorder()

	handler.CreateRequest(rr, req)

	require.Equal(t, http.StatusBadRequest, rr.Code)
}

func TestCreateRequest_ValidationError(t *testing.T) {
	coordinator := &fakeCoordinator{
		createFunc: func(ctx context.Context, in request.CreateInput) (*request.Request, error) {
			return nil, fmt.Errorf("%w: contact number must be 10 digits", request.ErrInvalidRequest)
		},
	}
	handler := NewHandler(coordinator)

	req := httptest.NewRequest(http.MethodPost, "/api/requests", bytes.NewBufferString(`{}`))
	rr := httptest.NewRecorder()

	handler.CreateRequest(rr, req)

	require.Equal(t, http.StatusBadRequest, rr.Code)

	var resp map[string]string
	require.NoError(t, json.NewDecoder(rr.Body).Decode(&resp))
	assert.Contains(t, resp["error"], "contact number")
}

func TestGetRequest_Success(t *testing.T) {
	coordinator := &fakeCoordinator{
		getFunc: func(ctx context.Context, id string) (*request.Request, error) {
			return sampleRequest(id), nil
		},
	}
	handler := NewHandler(coordinator)

	req := httptest.NewRequest(http.MethodGet, "/api/requests/req-9", nil)
	req.SetPathValue("id", "req-9")
	rr := httptest.NewRecorder()

	handler.GetRequest(rr, req)

	require.Equal(t, http.StatusOK, rr.Code)

	var resp request.Request
	require.NoError(t, json.NewDecoder(rr.Body).Decode(&resp))
	assert.Equal(t, "req-9", resp.ID)
}

func TestGetRequest_NotFound(t *testing.T) {
	handler := NewHandler(&fakeCoordinator{})

	req := httptest.NewRequest(http.MethodGet, "/api/requests/missing", nil)
	req.SetPathValue("id", "missing")
	rr := httptest.NewRecorder()

	handler.GetRequest(rr, req)

	require.Equal(t, http.StatusNotFound, rr.Code)
}

func TestUpdateStatus_FulfillSuccess(t *testing.T) {
	coordinator := &fakeCoordinator{
		updateStatusFunc: func(ctx context.Context, id string, status request.Status, remarks string) (*request.Request, error) {
			require.Equal(t, request.StatusFulfilled, status)
			r := sampleRequest(id)
			r.Status = request.StatusFulfilled
			return r, nil
		},
	}
	handler := NewHandler(coordinator)

	req := httptest.NewRequest(http.MethodPut, "/api/requests/req-1/status?status=FULFILLED", nil)
	req.SetPathValue("id", "req-1")
	rr := httptest.NewRecorder()

	handler.UpdateStatus(rr, req)

	require.Equal(t, http.StatusOK, rr.Code)

	var resp request.Request
	require.NoError(t, json.NewDecoder(rr.Body).Decode(&resp))
	assert.Equal(t, request.StatusFulfilled, resp.Status)
}

func TestUpdateStatus_InvalidStatus(t *testing.T) {
	handler := NewHandler(&fakeCoordinator{})

	req := httptest.NewRequest(http.MethodPut, "/api/requests/req-1/status?status=DONE", nil)
	req.SetPathValue("id", "req-1")
	rr := httptest.NewRecorder()

	handler.UpdateStatus(rr, req)

	require.Equal(t, http.StatusBadRequest, rr.Code)
}

func TestUpdateStatus_InsufficientStockConflict(t *testing.T) {
	coordinator := &fakeCoordinator{
		updateStatusFunc: func(ctx context.Context, id string, status request.Status, remarks string) (*request.Request, error) {
			return nil, fmt.Errorf("apply: %w", ledger.ErrInsufficientStock)
		},
	}
	handler := NewHandler(coordinator)

	req := httptest.NewRequest(http.MethodPut, "/api/requests/req-1/status?status=FULFILLED", nil)
	req.SetPathValue("id", "req-1")
	rr := httptest.NewRecorder()

	handler.UpdateStatus(rr, req)

	require.Equal(t, http.StatusConflict, rr.Code)
}

func TestUpdateStatus_TerminalConflict(t *testing.T) {
	coordinator := &fakeCoordinator{
		updateStatusFunc: func(ctx context.Context, id string, status request.Status, remarks string) (*request.Request, error) {
			return nil, fmt.Errorf("%w: request %s is already FULFILLED", request.ErrInvalidTransition, id)
		},
	}
	handler := NewHandler(coordinator)

	req := httptest.NewRequest(http.MethodPut, "/api/requests/req-1/status?status=CANCELLED", nil)
	req.SetPathValue("id", "req-1")
	rr := httptest.NewRecorder()

	handler.UpdateStatus(rr, req)

	require.Equal(t, http.StatusConflict, rr.Code)
}

func TestUpdateStatus_AmbiguousOutcome(t *testing.T) {
	coordinator := &fakeCoordinator{
		updateStatusFunc: func(ctx context.Context, id string, status request.Status, remarks string) (*request.Request, error) {
			return nil, clients.ErrAmbiguousOutcome
		},
	}
	handler := NewHandler(coordinator)

	req := httptest.NewRequest(http.MethodPut, "/api/requests/req-1/status?status=FULFILLED", nil)
	req.SetPathValue("id", "req-1")
	rr := httptest.NewRecorder()

	handler.UpdateStatus(rr, req)

	require.Equal(t, http.StatusBadGateway, rr.Code)
}

func TestListByStatus_Success(t *testing.T) {
	coordinator := &fakeCoordinator{
		listByStatusFunc: func(ctx context.Context, status string) ([]request.Request, error) {
			return []request.Request{*sampleRequest("req-1"), *sampleRequest("req-2")}, nil
		},
	}
	handler := NewHandler(coordinator)

	req := httptest.NewRequest(http.MethodGet, "/api/requests/status/PENDING", nil)
	req.SetPathValue("status", "PENDING")
	rr := httptest.NewRecorder()

	handler.ListByStatus(rr, req)

	require.Equal(t, http.StatusOK, rr.Code)

	var resp []request.Request
	require.NoError(t, json.NewDecoder(rr.Body).Decode(&resp))
	assert.Len(t, resp, 2)
}

func TestListByStatus_InvalidStatus(t *testing.T) {
	handler := NewHandler(&fakeCoordinator{})

	req := httptest.NewRequest(http.MethodGet, "/api/requests/status/OPEN", nil)
	req.SetPathValue("status", "OPEN")
	rr := httptest.NewRecorder()

	handler.ListByStatus(rr, req)

	require.Equal(t, http.StatusBadRequest, rr.Code)
}

func TestListByGroupAndStatus(t *testing.T) {
	coordinator := &fakeCoordinator{
		listByGroupFunc: func(ctx context.Context, group, status string) ([]request.Request, error) {
			require.Equal(t, "O-", group)
			require.Equal(t, "PENDING", status)
			return []request.Request{*sampleRequest("req-1")}, nil
		},
	}
	handler := NewHandler(coordinator)

	req := httptest.NewRequest(http.MethodGet, "/api/requests/blood-group/O-/status/PENDING", nil)
	req.SetPathValue("bloodGroup", "O-")
	req.SetPathValue("status", "PENDING")
	rr := httptest.NewRecorder()

	handler.ListByGroupAndStatus(rr, req)

	require.Equal(t, http.StatusOK, rr.Code)

	var resp []request.Request
	require.NoError(t, json.NewDecoder(rr.Body).Decode(&resp))
	assert.Len(t, resp, 1)
}

func TestListRequests_EmptyListIsJSONArray(t *testing.T) {
	handler := NewHandler(&fakeCoordinator{})

	req := httptest.NewRequest(http.MethodGet, "/api/requests", nil)
	rr := httptest.NewRecorder()

	handler.ListRequests(rr, req)

	require.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, "[]\n", rr.Body.String())
}

func TestListByDateRange(t *testing.T) {
	var got request.DateRange
	coordinator := &fakeCoordinator{
		listByDateRangeFunc: func(ctx context.Context, r request.DateRange) ([]request.Request, error) {
			got = r
			return nil, nil
		},
	}
	handler := NewHandler(coordinator)

	req := httptest.NewRequest(http.MethodGet,
		"/api/requests/date-range?start=2026-01-01T00:00:00Z&end=2026-01-31T00:00:00Z", nil)
	rr := httptest.NewRecorder()

	handler.ListByDateRange(rr, req)

	require.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, 2026, got.Start.Year())
	assert.Equal(t, time.January, got.End.Month())
}

func TestListByDateRange_BadStart(t *testing.T) {
	handler := NewHandler(&fakeCoordinator{})

	req := httptest.NewRequest(http.MethodGet, "/api/requests/date-range?start=yesterday&end=2026-01-31T00:00:00Z", nil)
	rr := httptest.NewRecorder()

	handler.ListByDateRange(rr, req)

	require.Equal(t, http.StatusBadRequest, rr.Code)
}

func TestProcessEmergency(t *testing.T) {
	coordinator := &fakeCoordinator{
		processEmergencyFunc: func(ctx context.Context) (int, error) {
			return 2, nil
		},
	}
	handler := NewHandler(coordinator)

	req := httptest.NewRequest(http.MethodPost, "/api/requests/process-emergency", nil)
	rr := httptest.NewRecorder()

	handler.ProcessEmergency(rr, req)

	require.Equal(t, http.StatusOK, rr.Code)

	var resp map[string]int
	require.NoError(t, json.NewDecoder(rr.Body).Decode(&resp))
	assert.Equal(t, 2, resp["approved"])
}

func TestProcessEmergency_Error(t *testing.T) {
	coordinator := &fakeCoordinator{
		processEmergencyFunc: func(ctx context.Context) (int, error) {
			return 0, errors.New("db down")
		},
	}
	handler := NewHandler(coordinator)

	req := httptest.NewRequest(http.MethodPost, "/api/requests/process-emergency", nil)
	rr := httptest.NewRecorder()

	handler.ProcessEmergency(rr, req)

	require.Equal(t, http.StatusInternalServerError, rr.Code)
}

func TestHealthHandler(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	rr := httptest.NewRecorder()

	healthHandler(rr, req)

	require.Equal(t, http.StatusOK, rr.Code)

	var resp map[string]string
	require.NoError(t, json.NewDecoder(rr.Body).Decode(&resp))
	assert.Equal(t, "ok", resp["status"])
	assert.Equal(t, "request-service", resp["service"])
}
