package workspace

import (
	"context"
	"sort"
	"strings"
	"time"

	"studio-backend/internal/apperror"
	"studio-backend/internal/identity"
	"studio-backend/internal/model"
	"studio-backend/internal/permission"
	"studio-backend/internal/validation"

	"github.com/google/uuid"
)

const BookingStatusScheduled = "scheduled"

type BookingInput struct {
	TenantID string
	ClientID string   `validate:"required,max=64"`
	Address  string   `validate:"required,max=240"`
	Services []string `validate:"omitempty,max=20,dive,required,max=64"`
	StartsAt string   `validate:"required"`
	EndsAt   string   `validate:"required"`
	Notes    string   `validate:"omitempty,max=2000"`
}

func (s *Service) ListBookings(ctx context.Context, sess *identity.Session) ([]model.BookingItem, error) {
	vis, err := visibilityFor(sess)
	if err != nil {
		return nil, err
	}
	acc, err := s.open(sess)
	if err != nil {
		return nil, err
	}

	bookings, err := acc.Bookings().Filter(ctx, func(b model.BookingItem) bool {
		return vis.allows(b.ClientID, b.AgentID)
	})
	if err != nil {
		return nil, err
	}
	sort.Slice(bookings, func(i, j int) bool { return bookings[i].StartsAt < bookings[j].StartsAt })
	return bookings, nil
}

func parseWindow(startsAt, endsAt string) (time.Time, time.Time, error) {
	start, err := time.Parse(time.RFC3339, startsAt)
	if err != nil {
		return time.Time{}, time.Time{}, apperror.Validation("startsAt must be an RFC3339 timestamp")
	}
	end, err := time.Parse(time.RFC3339, endsAt)
	if err != nil {
		return time.Time{}, time.Time{}, apperror.Validation("endsAt must be an RFC3339 timestamp")
	}
	if !end.After(start) {
		return time.Time{}, time.Time{}, apperror.Validation("endsAt must be after startsAt")
	}
	return start.UTC(), end.UTC(), nil
}

// CreateBooking books a shoot for a client of the session tenant. The booking
// inherits the client's agent so agent visibility follows the client.
func (s *Service) CreateBooking(ctx context.Context, sess *identity.Session, input BookingInput) (*model.BookingItem, error) {
	input.TenantID = strings.TrimSpace(input.TenantID)
	input.ClientID = strings.TrimSpace(input.ClientID)
	input.Address = strings.TrimSpace(input.Address)
	input.Notes = strings.TrimSpace(input.Notes)

	acc, vis, err := s.openVisible(ctx, sess, permission.ManageBookings, input.TenantID)
	if err != nil {
		return nil, err
	}
	if err := validation.Struct(input); err != nil {
		return nil, err
	}
	start, end, err := parseWindow(input.StartsAt, input.EndsAt)
	if err != nil {
		return nil, err
	}
	client, err := s.ensureVisibleClient(ctx, acc, vis, input.ClientID)
	if err != nil {
		return nil, err
	}

	booking := &model.BookingItem{
		BookingID: uuid.NewString(),
		ClientID:  client.ClientID,
		AgentID:   client.AgentID,
		Address:   input.Address,
		Services:  input.Services,
		StartsAt:  start.Format(time.RFC3339),
		EndsAt:    end.Format(time.RFC3339),
		Status:    BookingStatusScheduled,
		Notes:     input.Notes,
		CreatedAt: s.timestamp(),
	}
	if err := acc.Bookings().Create(ctx, booking); err != nil {
		return nil, err
	}
	return booking, nil
}

func (s *Service) DeleteBooking(ctx context.Context, sess *identity.Session, bookingID string) error {
	acc, vis, err := s.openVisible(ctx, sess, permission.ManageBookings, "")
	if err != nil {
		return err
	}

	booking, err := acc.Bookings().Get(ctx, bookingID)
	if err != nil {
		return err
	}
	if !vis.allows(booking.ClientID, booking.AgentID) {
		return apperror.NotFound("booking not found")
	}
	return acc.Bookings().Delete(ctx, bookingID)
}
