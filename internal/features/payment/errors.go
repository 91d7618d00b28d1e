package payment

import (
	"errors"

	"github.com/mo-amir99/course-platform-go/pkg/types"
)

var (
	ErrPaymentNotFound = errors.New("payment not found")
	ErrCourseNotFound  = errors.New("course not found")
	ErrNoSession       = errors.New("payment has no checkout session to poll")
	ErrInvalidSort     = errors.New("sortBy must be one of: date, amount")
	ErrInvalidOrder    = errors.New("sortOrder must be asc or desc")
	ErrInvalidMethod   = errors.New("paymentMethod must be one of: cash, transfer, stripe")
)

// ValidPaymentMethods returns all accepted payment method tags.
func ValidPaymentMethods() []types.PaymentMethod {
	return []types.PaymentMethod{types.PaymentMethodCash, types.PaymentMethodTransfer, types.PaymentMethodStripe}
}
