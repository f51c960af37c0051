package handler

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	bookingserrors "bookingguard/internal/bookings/errors"
	apperrors "bookingguard/pkg/errors"
	"bookingguard/pkg/logger"
	"bookingguard/pkg/model"

	"github.com/julienschmidt/httprouter"
	"go.mongodb.org/mongo-driver/mongo/readpref"
)

// Mock service for testing
type mockBookingService struct {
	validateFunc func(ctx context.Context, req *model.ValidationRequest) (*model.Verdict, error)
	createFunc   func(ctx context.Context, change *model.BookingChange) (*model.Booking, error)
	updateFunc   func(ctx context.Context, id string, change *model.BookingChange) (*model.Booking, error)
	listFunc     func(ctx context.Context, workOrderID string) ([]*model.Booking, error)
}

func (m *mockBookingService) ValidateBooking(ctx context.Context, req *model.ValidationRequest) (*model.Verdict, error) {
	if m.validateFunc != nil {
		return m.validateFunc(ctx, req)
	}
	return model.Accept(""), nil
}

func (m *mockBookingService) Create(ctx context.Context, change *model.BookingChange) (*model.Booking, error) {
	if m.createFunc != nil {
		return m.createFunc(ctx, change)
	}
	return &model.Booking{ID: "b-1"}, nil
}

func (m *mockBookingService) Update(ctx context.Context, id string, change *model.BookingChange) (*model.Booking, error) {
	if m.updateFunc != nil {
		return m.updateFunc(ctx, id, change)
	}
	return &model.Booking{ID: id}, nil
}

func (m *mockBookingService) GetByID(ctx context.Context, id string) (*model.Booking, error) {
	if id == "missing" {
		return nil, apperrors.NotFoundWithID("Booking", id)
	}
	return &model.Booking{ID: id}, nil
}

func (m *mockBookingService) ListByWorkOrder(ctx context.Context, workOrderID string) ([]*model.Booking, error) {
	if m.listFunc != nil {
		return m.listFunc(ctx, workOrderID)
	}
	return []*model.Booking{}, nil
}

func newRouter(svc *mockBookingService) *httprouter.Router {
	router := httprouter.New()
	NewBookingHandler(svc, logger.NewNop()).RegisterRoutes(router)
	return router
}

func serve(router http.Handler, method, path, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func TestValidate_ReturnsVerdict(t *testing.T) {
	var received *model.ValidationRequest
	router := newRouter(&mockBookingService{
		validateFunc: func(_ context.Context, req *model.ValidationRequest) (*model.Verdict, error) {
			received = req
			return model.Reject("wo-1", "work order wo-1 already has a booking on 2024-03-01"), nil
		},
	})

	body := `{"candidate":{"work_order_id":"wo-1","start_time":"2024-03-01T14:00:00Z"},"is_update":false}`
	w := serve(router, http.MethodPost, "/api/v1/bookings/validate", body)

	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", w.Code, w.Body.String())
	}
	if received == nil || received.Candidate.WorkOrderID == nil || *received.Candidate.WorkOrderID != "wo-1" {
		t.Fatalf("candidate not decoded: %+v", received)
	}

	var resp struct {
		Data model.Verdict `json:"data"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("invalid JSON: %v", err)
	}
	if resp.Data.Accepted || resp.Data.Reason == "" {
		t.Errorf("expected rejected verdict with reason, got %+v", resp.Data)
	}
}

func TestValidate_InvalidBody(t *testing.T) {
	w := serve(newRouter(&mockBookingService{}), http.MethodPost, "/api/v1/bookings/validate", `{not json`)

	if w.Code != http.StatusBadRequest {
		t.Errorf("expected 400, got %d", w.Code)
	}
}

func TestCreate_StatusCodes(t *testing.T) {
	tests := []struct {
		name       string
		err        error
		wantStatus int
	}{
		{name: "created", wantStatus: http.StatusCreated},
		{
			name:       "duplicate day",
			err:        apperrors.DuplicateBooking("work order wo-1 already has a booking on 2024-03-01", bookingserrors.ErrDuplicateBooking),
			wantStatus: http.StatusConflict,
		},
		{
			name:       "gateway fault",
			err:        apperrors.GatewayFault("Failed to create booking", errors.New("timeout")),
			wantStatus: http.StatusBadGateway,
		},
		{
			name:       "validation",
			err:        apperrors.Validation("Booking validation failed", map[string]any{"start_time": "required"}),
			wantStatus: http.StatusUnprocessableEntity,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			router := newRouter(&mockBookingService{
				createFunc: func(context.Context, *model.BookingChange) (*model.Booking, error) {
					if tt.err != nil {
						return nil, tt.err
					}
					return &model.Booking{ID: "b-1", WorkOrderID: "wo-1"}, nil
				},
			})

			w := serve(router, http.MethodPost, "/api/v1/bookings", `{"work_order_id":"wo-1","start_time":"2024-03-01T09:00:00Z"}`)

			if w.Code != tt.wantStatus {
				t.Errorf("expected status %d, got %d", tt.wantStatus, w.Code)
			}
		})
	}
}

func TestUpdate_PassesIDAndPartialChange(t *testing.T) {
	var gotID string
	var gotChange *model.BookingChange
	router := newRouter(&mockBookingService{
		updateFunc: func(_ context.Context, id string, change *model.BookingChange) (*model.Booking, error) {
			gotID, gotChange = id, change
			return &model.Booking{ID: id}, nil
		},
	})

	w := serve(router, http.MethodPatch, "/api/v1/bookings/id/x", `{"work_order_id":"wo-2"}`)

	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	if gotID != "x" {
		t.Errorf("expected id x, got %s", gotID)
	}
	if gotChange.StartTime != nil {
		t.Errorf("omitted start_time must stay absent, got %v", gotChange.StartTime)
	}
}

func TestGetByID_NotFound(t *testing.T) {
	w := serve(newRouter(&mockBookingService{}), http.MethodGet, "/api/v1/bookings/id/missing", "")

	if w.Code != http.StatusNotFound {
		t.Errorf("expected 404, got %d", w.Code)
	}
}

func TestSearch(t *testing.T) {
	router := newRouter(&mockBookingService{
		listFunc: func(_ context.Context, workOrderID string) ([]*model.Booking, error) {
			if workOrderID == "" || workOrderID == "{}" {
				return nil, apperrors.InvalidInput("work_order_id is required")
			}
			return []*model.Booking{{ID: "b-1", WorkOrderID: workOrderID}}, nil
		},
	})

	for _, query := range []string{"", "?work_order_id=%7B%7D"} {
		if w := serve(router, http.MethodGet, "/api/v1/bookings/search"+query, ""); w.Code != http.StatusBadRequest {
			t.Errorf("expected 400 for %q, got %d", query, w.Code)
		}
	}

	w := serve(router, http.MethodGet, "/api/v1/bookings/search?work_order_id=wo-1", "")
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}

	var resp struct {
		Data       []model.Booking `json:"data"`
		TotalCount int             `json:"total_count"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("invalid JSON: %v", err)
	}
	if resp.TotalCount != 1 || resp.Data[0].WorkOrderID != "wo-1" {
		t.Errorf("unexpected response %+v", resp)
	}
}

type stubPinger struct {
	err error
}

func (s stubPinger) Ping(context.Context, *readpref.ReadPref) error {
	return s.err
}

func TestReady(t *testing.T) {
	tests := []struct {
		name       string
		pingErr    error
		wantStatus int
	}{
		{name: "database up", wantStatus: http.StatusOK},
		{name: "database down", pingErr: errors.New("no reachable servers"), wantStatus: http.StatusServiceUnavailable},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			router := httprouter.New()
			NewHealthHandler(stubPinger{err: tt.pingErr}, nil, logger.NewNop()).RegisterRoutes(router)

			w := serve(router, http.MethodGet, "/ready", "")

			if w.Code != tt.wantStatus {
				t.Errorf("expected %d, got %d", tt.wantStatus, w.Code)
			}
		})
	}
}

func TestMetricsRoute(t *testing.T) {
	metrics := http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusTeapot)
	})
	router := httprouter.New()
	NewHealthHandler(stubPinger{}, metrics, logger.NewNop()).RegisterRoutes(router)

	if w := serve(router, http.MethodGet, "/metrics", ""); w.Code != http.StatusTeapot {
		t.Errorf("expected metrics handler to be mounted, got %d", w.Code)
	}
}
