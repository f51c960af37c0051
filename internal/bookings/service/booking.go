package service

import (
	"context"
	"errors"

	bookingserrors "bookingguard/internal/bookings/errors"
	"bookingguard/internal/bookings/repository"
	"bookingguard/internal/bookings/validator"
	"bookingguard/pkg/config"
	apperrors "bookingguard/pkg/errors"
	"bookingguard/pkg/metrics"
	"bookingguard/pkg/model"
	"bookingguard/pkg/sanitizer"

	"go.mongodb.org/mongo-driver/mongo"
)

const (
	opValidate = "validate"
	opCreate   = "create"
	opUpdate   = "update"
)

type BookingService interface {
	ValidateBooking(ctx context.Context, req *model.ValidationRequest) (*model.Verdict, error)
	Create(ctx context.Context, change *model.BookingChange) (*model.Booking, error)
	Update(ctx context.Context, id string, change *model.BookingChange) (*model.Booking, error)
	GetByID(ctx context.Context, id string) (*model.Booking, error)
	ListByWorkOrder(ctx context.Context, workOrderID string) ([]*model.Booking, error)
}

// BookingGateway is the serialized query and insert path to the record store.
type BookingGateway interface {
	FindBookingsByWorkOrder(ctx context.Context, workOrderID string) ([]*model.Booking, error)
	Insert(ctx context.Context, booking *model.Booking) (*model.Booking, error)
}

type bookingService struct {
	repo      repository.BookingRepository
	gateway   BookingGateway
	validator *validator.BookingValidator
	metrics   *metrics.Metrics
	cfg       *config.Config
}

func NewBookingService(
	repo repository.BookingRepository,
	gateway BookingGateway,
	validator *validator.BookingValidator,
	m *metrics.Metrics,
	cfg *config.Config,
) BookingService {
	return &bookingService{
		repo:      repo,
		gateway:   gateway,
		validator: validator,
		metrics:   m,
		cfg:       cfg,
	}
}

// ValidateBooking resolves the effective booking and checks it against every
// booking already on its work order. A duplicate day is a rejected verdict,
// not an error. Errors are reserved for bad input and gateway faults.
func (s *bookingService) ValidateBooking(ctx context.Context, req *model.ValidationRequest) (*model.Verdict, error) {
	if req == nil {
		return nil, apperrors.InvalidInput("Validation request cannot be empty")
	}
	if err := s.validator.ValidateRequest(req); err != nil {
		return nil, s.invalid(opValidate, "Invalid validation request", err)
	}

	effective := s.resolve(req)
	if err := s.validator.Validate(effective); err != nil {
		return nil, s.invalid(opValidate, "Booking validation failed", err)
	}

	if effective.WorkOrderID == "" {
		s.cfg.Log.Debug("Booking has no work order, nothing to compare", "id", effective.ID)
		s.observe(opValidate, metrics.OutcomeAccepted)
		return model.Accept(""), nil
	}

	err := s.verifyDuplication(ctx, effective)
	if conflict, ok := bookingserrors.AsDuplicateBookingConflict(err); ok {
		s.cfg.Log.Info("Booking rejected",
			"work_order_id", effective.WorkOrderID,
			"start_time", effective.StartTime,
			"conflicting_booking_id", conflict.ConflictingBookingID,
			"is_update", req.IsUpdate,
		)
		s.observe(opValidate, metrics.OutcomeRejected)
		return model.Reject(effective.WorkOrderID, conflict.Error()), nil
	}
	if err != nil {
		s.observe(opValidate, metrics.OutcomeError)
		return nil, s.mapError("Failed to check existing bookings", err)
	}

	s.observe(opValidate, metrics.OutcomeAccepted)
	return model.Accept(effective.WorkOrderID), nil
}

func (s *bookingService) Create(ctx context.Context, change *model.BookingChange) (*model.Booking, error) {
	if change == nil {
		return nil, apperrors.InvalidInput("Booking cannot be empty")
	}
	if err := s.validator.ValidateChange(change); err != nil {
		return nil, s.invalid(opCreate, "Invalid booking input", err)
	}

	booking := model.Merge(nil, sanitizeChange(change))
	if err := s.validator.Validate(booking); err != nil {
		return nil, s.invalid(opCreate, "Booking validation failed", err)
	}

	var created *model.Booking
	err := s.repo.ExecuteTransaction(ctx, func(sessCtx mongo.SessionContext) error {
		if err := s.verifyDuplication(sessCtx, booking); err != nil {
			return s.mapError("Failed to check existing bookings", err)
		}

		var err error
		created, err = s.gateway.Insert(sessCtx, booking)
		if err != nil {
			return s.mapError("Failed to create booking", err)
		}
		return nil
	})
	if err != nil {
		s.cfg.Log.Error("Failed to create booking", "work_order_id", booking.WorkOrderID, "error", err)
		s.observe(opCreate, outcomeOf(err))
		return nil, err
	}

	s.observe(opCreate, metrics.OutcomeAccepted)
	s.cfg.Log.Info("Booking created successfully",
		"id", created.ID,
		"work_order_id", created.WorkOrderID,
		"resource_id", created.ResourceID,
		"start_time", created.StartTime,
	)
	return created, nil
}

func (s *bookingService) Update(ctx context.Context, id string, change *model.BookingChange) (*model.Booking, error) {
	if id == "" {
		return nil, apperrors.InvalidInput("Booking ID cannot be empty")
	}
	if change == nil {
		return nil, apperrors.InvalidInput("Booking update cannot be empty")
	}
	if err := s.validator.ValidateChange(change); err != nil {
		return nil, s.invalid(opUpdate, "Invalid update input", err)
	}

	existing, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, s.lookupError(id, err)
	}

	merged := model.Merge(existing, sanitizeChange(change))
	merged.ID = existing.ID
	if err := s.validator.Validate(merged); err != nil {
		return nil, s.invalid(opUpdate, "Booking validation failed", err)
	}

	err = s.repo.ExecuteTransaction(ctx, func(sessCtx mongo.SessionContext) error {
		if err := s.verifyDuplication(sessCtx, merged); err != nil {
			return s.mapError("Failed to check existing bookings", err)
		}
		if err := s.repo.Update(sessCtx, id, merged); err != nil {
			if errors.Is(err, bookingserrors.ErrNotFound) {
				return apperrors.NotFoundWithID("Booking", id)
			}
			return apperrors.Internal("Failed to update booking", err)
		}
		return nil
	})
	if err != nil {
		s.cfg.Log.Error("Failed to update booking", "id", id, "error", err)
		s.observe(opUpdate, outcomeOf(err))
		return nil, err
	}

	s.observe(opUpdate, metrics.OutcomeAccepted)
	s.cfg.Log.Info("Booking updated successfully", "id", id, "work_order_id", merged.WorkOrderID)
	return merged, nil
}

func (s *bookingService) GetByID(ctx context.Context, id string) (*model.Booking, error) {
	if id == "" {
		return nil, apperrors.InvalidInput("Booking ID cannot be empty")
	}

	booking, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, s.lookupError(id, err)
	}

	return booking, nil
}

func (s *bookingService) ListByWorkOrder(ctx context.Context, workOrderID string) ([]*model.Booking, error) {
	workOrderID = sanitizer.SanitizeIdentifier(workOrderID)
	if workOrderID == "" {
		return nil, apperrors.InvalidInput("work_order_id is required")
	}

	bookings, err := s.gateway.FindBookingsByWorkOrder(ctx, workOrderID)
	if err != nil {
		s.cfg.Log.Error("Failed to list bookings", "work_order_id", workOrderID, "error", err)
		return nil, s.mapError("Failed to retrieve bookings", err)
	}

	s.cfg.Log.Debug("Booking search completed",
		"work_order_id", workOrderID,
		"count", len(bookings),
	)
	return bookings, nil
}

// --- Helpers ---

// resolve builds the effective booking of a validation request. Updates start
// from the prior stored state and overlay only the supplied fields.
func (s *bookingService) resolve(req *model.ValidationRequest) *model.Booking {
	var prior *model.Booking
	if req.IsUpdate && req.PriorState != nil {
		stored := *req.PriorState
		stored.WorkOrderID = sanitizer.SanitizeIdentifier(stored.WorkOrderID)
		stored.ResourceID = sanitizer.SanitizeIdentifier(stored.ResourceID)
		prior = &stored
	}

	effective := model.Merge(prior, sanitizeChange(&req.Candidate))
	if req.ID != "" {
		effective.ID = req.ID
	}
	return effective
}

// verifyDuplication fetches the booking set of the work order and runs the
// same-day check. The booking's own stored copy is left out of the set.
func (s *bookingService) verifyDuplication(ctx context.Context, booking *model.Booking) error {
	if booking.WorkOrderID == "" {
		return nil
	}

	existing, err := s.gateway.FindBookingsByWorkOrder(ctx, booking.WorkOrderID)
	if err != nil {
		return err
	}

	others := make([]*model.Booking, 0, len(existing))
	for _, b := range existing {
		if booking.ID != "" && b.ID == booking.ID {
			continue
		}
		others = append(others, b)
	}

	return validator.CheckSameDay(booking, others)
}

func (s *bookingService) mapError(message string, err error) error {
	if conflict, ok := bookingserrors.AsDuplicateBookingConflict(err); ok {
		return apperrors.DuplicateBooking(conflict.Error(), err)
	}
	if bookingserrors.IsGatewayFault(err) {
		return apperrors.GatewayFault(message, err)
	}
	if apperrors.IsAppError(err) {
		return err
	}
	return apperrors.Internal(message, err)
}

func (s *bookingService) lookupError(id string, err error) error {
	if errors.Is(err, bookingserrors.ErrNotFound) {
		return apperrors.NotFoundWithID("Booking", id)
	}
	if errors.Is(err, bookingserrors.ErrInvalidID) {
		return apperrors.InvalidInput("Invalid booking ID format")
	}
	return apperrors.Internal("Failed to retrieve booking", err)
}

func (s *bookingService) invalid(op, message string, err error) error {
	s.cfg.Log.Warn(message, "operation", op, "error", err)
	s.observe(op, metrics.OutcomeInvalid)

	var validationErrs validator.ValidationErrors
	if errors.As(err, &validationErrs) {
		return apperrors.Validation(message, validationErrs.Details())
	}
	return apperrors.Validation(message, map[string]any{"error": err.Error()})
}

func (s *bookingService) observe(op, outcome string) {
	if s.metrics == nil {
		return
	}
	s.metrics.ObserveValidation(op, outcome)
}

func outcomeOf(err error) string {
	appErr := apperrors.AsAppError(err)
	if appErr.Code == apperrors.CodeDuplicateBooking {
		return metrics.OutcomeRejected
	}
	return metrics.OutcomeError
}

// sanitizeChange returns a copy of change with identifiers normalized. Absent
// fields stay absent.
func sanitizeChange(change *model.BookingChange) *model.BookingChange {
	sanitized := *change
	sanitized.ResourceID = sanitizer.SanitizeOptionalIdentifier(change.ResourceID)
	sanitized.WorkOrderID = sanitizer.SanitizeOptionalIdentifier(change.WorkOrderID)
	if change.Name != nil {
		name := sanitizer.NormalizeName(*change.Name)
		sanitized.Name = &name
	}
	return &sanitized
}
