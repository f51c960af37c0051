package validator

import (
	"encoding/json"
	"errors"
	"testing"
	"time"

	bookingserrors "bookingguard/internal/bookings/errors"
	"bookingguard/pkg/logger"
	"bookingguard/pkg/model"

	"go.mongodb.org/mongo-driver/bson"
)

func ptr[T any](v T) *T { return &v }

func at(year int, month time.Month, day, hour, minute, second int) time.Time {
	return time.Date(year, month, day, hour, minute, second, 0, time.UTC)
}

func TestCheckSameDay(t *testing.T) {
	existing := []*model.Booking{
		{ID: "b-1", WorkOrderID: "wo-1", StartTime: at(2024, time.March, 1, 9, 0, 0)},
	}

	tests := []struct {
		name        string
		start       time.Time
		existing    []*model.Booking
		wantError   bool
		description string
	}{
		{
			name:        "same day later hour",
			start:       at(2024, time.March, 1, 14, 0, 0),
			existing:    existing,
			wantError:   true,
			description: "09:00 and 14:00 on 2024-03-01 share a calendar day",
		},
		{
			name:        "next day",
			start:       at(2024, time.March, 2, 9, 0, 0),
			existing:    existing,
			wantError:   false,
			description: "2024-03-02 is a different calendar day",
		},
		{
			name:      "empty set",
			start:     at(2024, time.March, 1, 9, 0, 0),
			existing:  nil,
			wantError: false,
		},
		{
			name:  "midnight and end of same day",
			start: at(2024, time.March, 5, 23, 59, 59),
			existing: []*model.Booking{
				{ID: "b-2", StartTime: at(2024, time.March, 5, 0, 0, 0)},
			},
			wantError:   true,
			description: "00:00:00 and 23:59:59 on one day must conflict",
		},
		{
			name:  "end of day and just after midnight",
			start: at(2024, time.March, 6, 0, 0, 1),
			existing: []*model.Booking{
				{ID: "b-3", StartTime: at(2024, time.March, 5, 23, 59, 59)},
			},
			wantError:   false,
			description: "23:59:59 and 00:00:01 on consecutive days must not conflict",
		},
		{
			name:  "same day different year",
			start: at(2025, time.March, 1, 9, 0, 0),
			existing: []*model.Booking{
				{ID: "b-4", StartTime: at(2024, time.March, 1, 9, 0, 0)},
			},
			wantError: false,
		},
		{
			name:  "match anywhere in the set",
			start: at(2024, time.April, 10, 8, 0, 0),
			existing: []*model.Booking{
				{ID: "b-5", StartTime: at(2024, time.April, 8, 8, 0, 0)},
				{ID: "b-6", StartTime: at(2024, time.April, 9, 8, 0, 0)},
				{ID: "b-7", StartTime: at(2024, time.April, 10, 17, 30, 0)},
			},
			wantError: true,
		},
		{
			name:     "nil entries are skipped",
			start:    at(2024, time.April, 10, 8, 0, 0),
			existing: []*model.Booking{nil},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			candidate := &model.Booking{WorkOrderID: "wo-1", StartTime: tt.start}
			err := CheckSameDay(candidate, tt.existing)
			if (err != nil) != tt.wantError {
				t.Errorf("%s: CheckSameDay() error = %v, wantError %v", tt.description, err, tt.wantError)
			}
			if err != nil && !errors.Is(err, bookingserrors.ErrDuplicateBooking) {
				t.Errorf("expected ErrDuplicateBooking in chain, got %v", err)
			}
		})
	}
}

func TestCheckSameDay_ConflictCarriesDetails(t *testing.T) {
	candidate := &model.Booking{WorkOrderID: "wo-9", StartTime: at(2024, time.March, 1, 14, 0, 0)}
	existing := []*model.Booking{{ID: "b-1", StartTime: at(2024, time.March, 1, 9, 0, 0)}}

	err := CheckSameDay(candidate, existing)

	conflict, ok := bookingserrors.AsDuplicateBookingConflict(err)
	if !ok {
		t.Fatalf("expected *DuplicateBookingConflict, got %T", err)
	}
	if conflict.WorkOrderID != "wo-9" || conflict.ConflictingBookingID != "b-1" {
		t.Errorf("unexpected conflict %+v", conflict)
	}
	if want := "work order wo-9 already has a booking on 2024-03-01"; conflict.Error() != want {
		t.Errorf("expected message %q, got %q", want, conflict.Error())
	}
}

func TestCheckSameDay_Idempotent(t *testing.T) {
	candidate := &model.Booking{WorkOrderID: "wo-1", StartTime: at(2024, time.March, 1, 14, 0, 0)}
	existing := []*model.Booking{
		{ID: "b-1", StartTime: at(2024, time.March, 1, 9, 0, 0)},
		{ID: "b-2", StartTime: at(2024, time.March, 3, 9, 0, 0)},
	}

	first := CheckSameDay(candidate, existing)
	second := CheckSameDay(candidate, existing)

	if (first == nil) != (second == nil) || first.Error() != second.Error() {
		t.Errorf("expected identical results, got %v and %v", first, second)
	}
	if len(existing) != 2 || existing[0].ID != "b-1" {
		t.Errorf("existing set must not be modified")
	}
}

func TestSameCalendarDay_ComparesInUTC(t *testing.T) {
	plus3 := time.FixedZone("UTC+3", 3*60*60)

	// 2024-03-01T23:30 UTC is 2024-03-02T02:30 in UTC+3.
	utc := at(2024, time.March, 1, 23, 30, 0)
	local := utc.In(plus3)

	if !SameCalendarDay(utc, local) {
		t.Errorf("expected one calendar day for %v and %v", utc, local)
	}
	if SameCalendarDay(local, time.Date(2024, time.March, 2, 9, 0, 0, 0, plus3)) {
		t.Errorf("expected 2024-03-02T09:00+03:00 to fall on a different UTC day")
	}
}

// storeRoundTrip returns b as it reads back from the bookings collection.
func storeRoundTrip(t *testing.T, b *model.Booking) *model.Booking {
	t.Helper()
	raw, err := bson.Marshal(b)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	var stored model.Booking
	if err := bson.Unmarshal(raw, &stored); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	return &stored
}

func TestCheckSameDay_AgreesWithStoredBookings(t *testing.T) {
	existing := storeRoundTrip(t, &model.Booking{ID: "a", WorkOrderID: "w", StartTime: at(2024, time.March, 1, 9, 0, 0)})

	var decoded model.Booking
	if err := json.Unmarshal([]byte(`{"id":"b","work_order_id":"w","start_time":"2024-03-02T00:30:00+02:00"}`), &decoded); err != nil {
		t.Fatalf("decode candidate: %v", err)
	}
	if _, offset := decoded.StartTime.Zone(); offset != 2*60*60 {
		t.Fatalf("expected the candidate to keep its +02:00 offset, got %v", decoded.StartTime)
	}

	err := CheckSameDay(&decoded, []*model.Booking{existing})
	var conflict *bookingserrors.DuplicateBookingConflict
	if !errors.As(err, &conflict) {
		t.Fatalf("expected a same-day conflict, got %v", err)
	}
	if conflict.ConflictingBookingID != "a" {
		t.Errorf("expected conflict with a, got %q", conflict.ConflictingBookingID)
	}
	if got := conflict.Date.Format(time.DateOnly); got != "2024-03-01" {
		t.Errorf("expected conflict date 2024-03-01, got %s", got)
	}

	// Once stored, the candidate still conflicts with the same booking.
	stored := storeRoundTrip(t, &decoded)
	if err := CheckSameDay(stored, []*model.Booking{existing}); !errors.As(err, &conflict) {
		t.Errorf("expected stored candidate to conflict too, got %v", err)
	}
}

func TestValidate(t *testing.T) {
	log := logger.NewNop()
	validator := NewBookingValidator(log)

	end := at(2024, time.March, 1, 8, 0, 0)
	longID := string(make([]byte, 65))

	tests := []struct {
		name      string
		booking   *model.Booking
		wantError bool
		wantField string
	}{
		{
			name:    "valid booking",
			booking: &model.Booking{WorkOrderID: "wo-1", StartTime: at(2024, time.March, 1, 9, 0, 0)},
		},
		{
			name:    "no work order and no start time",
			booking: &model.Booking{Name: "Unassigned"},
		},
		{
			name:      "work order without start time",
			booking:   &model.Booking{WorkOrderID: "wo-1"},
			wantError: true,
			wantField: "start_time",
		},
		{
			name:      "end before start",
			booking:   &model.Booking{WorkOrderID: "wo-1", StartTime: at(2024, time.March, 1, 9, 0, 0), EndTime: &end},
			wantError: true,
			wantField: "end_time",
		},
		{
			name:      "work order too long",
			booking:   &model.Booking{WorkOrderID: longID, StartTime: at(2024, time.March, 1, 9, 0, 0)},
			wantError: true,
			wantField: "work_order_id",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := validator.Validate(tt.booking)
			if (err != nil) != tt.wantError {
				t.Fatalf("Validate() error = %v, wantError %v", err, tt.wantError)
			}
			if err == nil {
				return
			}

			var validationErrs ValidationErrors
			if !errors.As(err, &validationErrs) {
				t.Fatalf("expected ValidationErrors, got %T", err)
			}
			if validationErrs[0].Field != tt.wantField {
				t.Errorf("expected field %s, got %s", tt.wantField, validationErrs[0].Field)
			}
		})
	}
}

func TestValidateChange_EndBeforeStart(t *testing.T) {
	validator := NewBookingValidator(logger.NewNop())

	change := &model.BookingChange{
		StartTime: ptr(at(2024, time.March, 1, 9, 0, 0)),
		EndTime:   ptr(at(2024, time.March, 1, 8, 0, 0)),
	}
	if err := validator.ValidateChange(change); err == nil {
		t.Error("expected error for end_time before start_time")
	}

	change.EndTime = ptr(at(2024, time.March, 1, 10, 0, 0))
	if err := validator.ValidateChange(change); err != nil {
		t.Errorf("unexpected error: %v", err)
	}
}

func TestValidateRequest_UpdateNeedsPriorState(t *testing.T) {
	validator := NewBookingValidator(logger.NewNop())

	req := &model.ValidationRequest{
		Candidate: model.BookingChange{WorkOrderID: ptr("wo-2")},
		IsUpdate:  true,
	}
	err := validator.ValidateRequest(req)

	var validationErrs ValidationErrors
	if !errors.As(err, &validationErrs) {
		t.Fatalf("expected ValidationErrors, got %v", err)
	}
	if validationErrs[0].Field != "prior_state" {
		t.Errorf("expected prior_state field, got %s", validationErrs[0].Field)
	}

	req.PriorState = &model.Booking{ID: "x", StartTime: at(2024, time.March, 1, 9, 0, 0)}
	if err := validator.ValidateRequest(req); err != nil {
		t.Errorf("unexpected error: %v", err)
	}
}
