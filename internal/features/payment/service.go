package payment

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/mo-amir99/course-platform-go/pkg/apperrors"
	"github.com/mo-amir99/course-platform-go/pkg/pagination"
	"github.com/mo-amir99/course-platform-go/pkg/paymentprovider"
	"github.com/mo-amir99/course-platform-go/pkg/types"
)

// DefaultProviderTimeout bounds each processor round trip.
const DefaultProviderTimeout = 15 * time.Second

// Processor is the external checkout provider.
type Processor interface {
	CreateProduct(ctx context.Context, name string) (string, error)
	CreatePrice(ctx context.Context, productID string, minorUnits int64) (string, error)
	CreateCheckoutSession(ctx context.Context, priceID string) (paymentprovider.Session, error)
	SessionStatus(ctx context.Context, sessionID string) (types.PaymentStatus, error)
}

// Service runs the checkout workflow: initiate, poll and list.
type Service struct {
	repo      Repository
	processor Processor
	timeout   time.Duration
	logger    *slog.Logger
	now       func() time.Time
}

// NewService wires the workflow. A non-positive timeout uses DefaultProviderTimeout.
func NewService(repo Repository, processor Processor, timeout time.Duration, logger *slog.Logger) *Service {
	if timeout <= 0 {
		timeout = DefaultProviderTimeout
	}
	return &Service{repo: repo, processor: processor, timeout: timeout, logger: logger, now: time.Now}
}

// Initiate opens a checkout for a course. Nothing is stored unless all three
// processor calls succeed.
func (s *Service) Initiate(ctx context.Context, userID, courseID uuid.UUID) (Payment, error) {
	c, err := s.repo.Course(ctx, courseID)
	if err != nil {
		return Payment{}, err
	}

	callCtx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	productID, err := s.processor.CreateProduct(callCtx, c.Title)
	if err != nil {
		return Payment{}, apperrors.PaymentProvider("create product", err)
	}

	priceID, err := s.processor.CreatePrice(callCtx, productID, c.Price.MinorUnits())
	if err != nil {
		return Payment{}, apperrors.PaymentProvider("create price", err)
	}

	session, err := s.processor.CreateCheckoutSession(callCtx, priceID)
	if err != nil {
		return Payment{}, apperrors.PaymentProvider("create session", err)
	}

	courseRef := c.ID
	p := Payment{
		UserID:        userID,
		PaidCourseID:  &courseRef,
		Amount:        c.Price,
		PaymentMethod: types.PaymentMethodStripe,
		ProductID:     &productID,
		PriceID:       &priceID,
		SessionID:     &session.ID,
		PaymentLink:   &session.URL,
		Status:        types.PaymentStatusPending,
		PaymentDate:   s.now(),
	}

	if err := s.repo.Create(ctx, &p); err != nil {
		return Payment{}, err
	}

	s.logger.Info("checkout session created",
		slog.String("payment_id", p.ID.String()),
		slog.String("course_id", courseRef.String()),
		slog.String("session_id", session.ID))

	return p, nil
}

// PollResult is a payment after its status was refreshed.
type PollResult struct {
	Payment     Payment
	CourseTitle *string
}

// Poll refreshes the status of one of the user's payments from the processor.
func (s *Service) Poll(ctx context.Context, userID, paymentID uuid.UUID) (PollResult, error) {
	p, err := s.repo.GetForUser(ctx, paymentID, userID)
	if err != nil {
		return PollResult{}, err
	}

	if p.SessionID == nil || *p.SessionID == "" {
		return PollResult{}, ErrNoSession
	}

	callCtx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	status, err := s.processor.SessionStatus(callCtx, *p.SessionID)
	if err != nil {
		return PollResult{}, apperrors.PaymentProvider("retrieve session", err)
	}

	if err := s.repo.UpdateStatus(ctx, p.ID, userID, status); err != nil {
		return PollResult{}, err
	}
	p.Status = status

	result := PollResult{Payment: p}
	if p.PaidCourseID != nil {
		c, err := s.repo.Course(ctx, *p.PaidCourseID)
		switch {
		case err == nil:
			result.CourseTitle = &c.Title
		case !errors.Is(err, ErrCourseNotFound):
			return PollResult{}, err
		}
	}

	return result, nil
}

// List returns the user's own payments.
func (s *Service) List(ctx context.Context, filters ListFilters, params pagination.Params) ([]Payment, int64, error) {
	return s.repo.List(ctx, filters, params)
}
