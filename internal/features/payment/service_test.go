package payment

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/mo-amir99/course-platform-go/internal/features/course"
	"github.com/mo-amir99/course-platform-go/internal/testutil"
	"github.com/mo-amir99/course-platform-go/pkg/apperrors"
	"github.com/mo-amir99/course-platform-go/pkg/pagination"
	"github.com/mo-amir99/course-platform-go/pkg/paymentprovider"
	"github.com/mo-amir99/course-platform-go/pkg/types"
)

type mockProcessor struct{ mock.Mock }

func (m *mockProcessor) CreateProduct(ctx context.Context, name string) (string, error) {
	args := m.Called(ctx, name)
	return args.String(0), args.Error(1)
}

func (m *mockProcessor) CreatePrice(ctx context.Context, productID string, minorUnits int64) (string, error) {
	args := m.Called(ctx, productID, minorUnits)
	return args.String(0), args.Error(1)
}

func (m *mockProcessor) CreateCheckoutSession(ctx context.Context, priceID string) (paymentprovider.Session, error) {
	args := m.Called(ctx, priceID)
	return args.Get(0).(paymentprovider.Session), args.Error(1)
}

func (m *mockProcessor) SessionStatus(ctx context.Context, sessionID string) (types.PaymentStatus, error) {
	args := m.Called(ctx, sessionID)
	return args.Get(0).(types.PaymentStatus), args.Error(1)
}

type mockRepository struct{ mock.Mock }

func (m *mockRepository) Course(ctx context.Context, id uuid.UUID) (course.Course, error) {
	args := m.Called(ctx, id)
	return args.Get(0).(course.Course), args.Error(1)
}

func (m *mockRepository) Create(ctx context.Context, p *Payment) error {
	args := m.Called(ctx, p)
	if args.Error(0) == nil {
		p.ID = uuid.New()
	}
	return args.Error(0)
}

func (m *mockRepository) GetForUser(ctx context.Context, id, userID uuid.UUID) (Payment, error) {
	args := m.Called(ctx, id, userID)
	return args.Get(0).(Payment), args.Error(1)
}

func (m *mockRepository) UpdateStatus(ctx context.Context, id, userID uuid.UUID, status types.PaymentStatus) error {
	return m.Called(ctx, id, userID, status).Error(0)
}

func (m *mockRepository) List(ctx context.Context, filters ListFilters, params pagination.Params) ([]Payment, int64, error) {
	args := m.Called(ctx, filters, params)
	return args.Get(0).([]Payment), args.Get(1).(int64), args.Error(2)
}

func testCourse(price string) course.Course {
	amount, err := types.NewMoneyFromString(price)
	if err != nil {
		panic(err)
	}
	c := course.Course{Title: "Go basics", Price: amount}
	c.ID = uuid.New()
	return c
}

func newService(repo Repository, proc Processor) *Service {
	return NewService(repo, proc, time.Second, testutil.DiscardLogger())
}

func TestInitiate_ConvertsPriceAndPersistsPending(t *testing.T) {
	repo := &mockRepository{}
	proc := &mockProcessor{}
	c := testCourse("100.00")
	userID := uuid.New()

	repo.On("Course", mock.Anything, c.ID).Return(c, nil)
	proc.On("CreateProduct", mock.Anything, "Go basics").Return("prod_1", nil)
	proc.On("CreatePrice", mock.Anything, "prod_1", int64(10000)).Return("price_1", nil)
	proc.On("CreateCheckoutSession", mock.Anything, "price_1").
		Return(paymentprovider.Session{ID: "cs_1", URL: "https://pay.example/cs_1"}, nil)
	repo.On("Create", mock.Anything, mock.MatchedBy(func(p *Payment) bool {
		return p.UserID == userID &&
			*p.PaidCourseID == c.ID &&
			p.PaidLessonID == nil &&
			p.Amount.Equal(c.Price) &&
			p.PaymentMethod == types.PaymentMethodStripe &&
			*p.ProductID == "prod_1" && *p.PriceID == "price_1" && *p.SessionID == "cs_1" &&
			p.Status == types.PaymentStatusPending
	})).Return(nil)

	p, err := newService(repo, proc).Initiate(t.Context(), userID, c.ID)
	require.NoError(t, err)
	assert.NotEqual(t, uuid.Nil, p.ID)
	assert.Equal(t, "https://pay.example/cs_1", *p.PaymentLink)

	repo.AssertExpectations(t)
	proc.AssertExpectations(t)
}

func TestInitiate_TruncatesFractionalMinorUnits(t *testing.T) {
	repo := &mockRepository{}
	proc := &mockProcessor{}
	c := testCourse("19.999")

	repo.On("Course", mock.Anything, c.ID).Return(c, nil)
	proc.On("CreateProduct", mock.Anything, mock.Anything).Return("prod_1", nil)
	proc.On("CreatePrice", mock.Anything, "prod_1", int64(1999)).Return("", assert.AnError)

	_, err := newService(repo, proc).Initiate(t.Context(), uuid.New(), c.ID)
	require.Error(t, err)
	proc.AssertExpectations(t)
}

func TestInitiate_ProviderFailurePersistsNothing(t *testing.T) {
	tests := []struct {
		name  string
		setup func(p *mockProcessor)
		op    string
	}{
		{
			name: "product",
			setup: func(p *mockProcessor) {
				p.On("CreateProduct", mock.Anything, mock.Anything).Return("", assert.AnError)
			},
			op: "create product",
		},
		{
			name: "price",
			setup: func(p *mockProcessor) {
				p.On("CreateProduct", mock.Anything, mock.Anything).Return("prod_1", nil)
				p.On("CreatePrice", mock.Anything, mock.Anything, mock.Anything).Return("", assert.AnError)
			},
			op: "create price",
		},
		{
			name: "session",
			setup: func(p *mockProcessor) {
				p.On("CreateProduct", mock.Anything, mock.Anything).Return("prod_1", nil)
				p.On("CreatePrice", mock.Anything, mock.Anything, mock.Anything).Return("price_1", nil)
				p.On("CreateCheckoutSession", mock.Anything, mock.Anything).Return(paymentprovider.Session{}, assert.AnError)
			},
			op: "create session",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			repo := &mockRepository{}
			proc := &mockProcessor{}
			c := testCourse("100.00")
			repo.On("Course", mock.Anything, c.ID).Return(c, nil)
			tt.setup(proc)

			_, err := newService(repo, proc).Initiate(t.Context(), uuid.New(), c.ID)

			require.Error(t, err)
			assert.True(t, apperrors.Is(err, apperrors.ErrPaymentProvider))
			assert.Contains(t, err.Error(), tt.op)
			assert.Contains(t, err.Error(), assert.AnError.Error())
			repo.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
		})
	}
}

func TestInitiate_TimeoutIsProviderError(t *testing.T) {
	repo := &mockRepository{}
	proc := &mockProcessor{}
	c := testCourse("10.00")
	repo.On("Course", mock.Anything, c.ID).Return(c, nil)
	proc.On("CreateProduct", mock.Anything, mock.Anything).
		Run(func(args mock.Arguments) {
			<-args.Get(0).(context.Context).Done()
		}).
		Return("", context.DeadlineExceeded)

	svc := NewService(repo, proc, 20*time.Millisecond, testutil.DiscardLogger())
	_, err := svc.Initiate(t.Context(), uuid.New(), c.ID)

	assert.True(t, apperrors.Is(err, apperrors.ErrPaymentProvider))
	repo.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
}

func TestInitiate_UnknownCourse(t *testing.T) {
	repo := &mockRepository{}
	proc := &mockProcessor{}
	id := uuid.New()
	repo.On("Course", mock.Anything, id).Return(course.Course{}, ErrCourseNotFound)

	_, err := newService(repo, proc).Initiate(t.Context(), uuid.New(), id)
	assert.ErrorIs(t, err, ErrCourseNotFound)
	proc.AssertNotCalled(t, "CreateProduct", mock.Anything, mock.Anything)
}

func TestPoll(t *testing.T) {
	userID := uuid.New()
	c := testCourse("100.00")
	session := "cs_1"

	stored := Payment{UserID: userID, PaidCourseID: &c.ID, Amount: c.Price, SessionID: &session, Status: types.PaymentStatusPending}
	stored.ID = uuid.New()

	t.Run("refreshes status and resolves course", func(t *testing.T) {
		repo := &mockRepository{}
		proc := &mockProcessor{}
		repo.On("GetForUser", mock.Anything, stored.ID, userID).Return(stored, nil)
		proc.On("SessionStatus", mock.Anything, "cs_1").Return(types.PaymentStatusPaid, nil)
		repo.On("UpdateStatus", mock.Anything, stored.ID, userID, types.PaymentStatusPaid).Return(nil)
		repo.On("Course", mock.Anything, c.ID).Return(c, nil)

		result, err := newService(repo, proc).Poll(t.Context(), userID, stored.ID)
		require.NoError(t, err)
		assert.Equal(t, types.PaymentStatusPaid, result.Payment.Status)
		require.NotNil(t, result.CourseTitle)
		assert.Equal(t, "Go basics", *result.CourseTitle)
		repo.AssertExpectations(t)
	})

	t.Run("someone else's payment is not found", func(t *testing.T) {
		repo := &mockRepository{}
		proc := &mockProcessor{}
		other := uuid.New()
		repo.On("GetForUser", mock.Anything, stored.ID, other).Return(Payment{}, ErrPaymentNotFound)

		_, err := newService(repo, proc).Poll(t.Context(), other, stored.ID)
		assert.ErrorIs(t, err, ErrPaymentNotFound)
		proc.AssertNotCalled(t, "SessionStatus", mock.Anything, mock.Anything)
	})

	t.Run("deleted course leaves title empty", func(t *testing.T) {
		repo := &mockRepository{}
		proc := &mockProcessor{}
		repo.On("GetForUser", mock.Anything, stored.ID, userID).Return(stored, nil)
		proc.On("SessionStatus", mock.Anything, "cs_1").Return(types.PaymentStatus("unpaid"), nil)
		repo.On("UpdateStatus", mock.Anything, stored.ID, userID, types.PaymentStatusUnpaid).Return(nil)
		repo.On("Course", mock.Anything, c.ID).Return(course.Course{}, ErrCourseNotFound)

		result, err := newService(repo, proc).Poll(t.Context(), userID, stored.ID)
		require.NoError(t, err)
		assert.Nil(t, result.CourseTitle)
	})

	t.Run("provider failure keeps stored status", func(t *testing.T) {
		repo := &mockRepository{}
		proc := &mockProcessor{}
		repo.On("GetForUser", mock.Anything, stored.ID, userID).Return(stored, nil)
		proc.On("SessionStatus", mock.Anything, "cs_1").Return(types.PaymentStatus(""), assert.AnError)

		_, err := newService(repo, proc).Poll(t.Context(), userID, stored.ID)
		assert.True(t, apperrors.Is(err, apperrors.ErrPaymentProvider))
		repo.AssertNotCalled(t, "UpdateStatus", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("manual payment has nothing to poll", func(t *testing.T) {
		repo := &mockRepository{}
		manual := Payment{UserID: userID, PaymentMethod: types.PaymentMethodCash}
		manual.ID = uuid.New()
		repo.On("GetForUser", mock.Anything, manual.ID, userID).Return(manual, nil)

		_, err := newService(repo, &mockProcessor{}).Poll(t.Context(), userID, manual.ID)
		assert.ErrorIs(t, err, ErrNoSession)
	})
}

func TestListFilters_Normalize(t *testing.T) {
	f := ListFilters{}
	require.NoError(t, f.Normalize())
	assert.Equal(t, "date", f.SortBy)
	assert.Equal(t, "desc", f.SortOrder)

	f = ListFilters{SortBy: "Amount", SortOrder: "ASC", PaymentMethod: types.PaymentMethodCash}
	require.NoError(t, f.Normalize())
	assert.Equal(t, "amount", f.SortBy)
	assert.Equal(t, "asc", f.SortOrder)

	assert.ErrorIs(t, (&ListFilters{SortBy: "status"}).Normalize(), ErrInvalidSort)
	assert.ErrorIs(t, (&ListFilters{SortOrder: "sideways"}).Normalize(), ErrInvalidOrder)
	assert.ErrorIs(t, (&ListFilters{PaymentMethod: "barter"}).Normalize(), ErrInvalidMethod)
}
