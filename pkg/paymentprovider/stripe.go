// Package paymentprovider adapts the Stripe checkout API to the narrow processor
// contract used by the payment workflow.
package paymentprovider

import (
	"context"
	"errors"
	"fmt"

	"github.com/stripe/stripe-go/v82"
	"github.com/stripe/stripe-go/v82/client"

	"github.com/mo-amir99/course-platform-go/pkg/config"
	"github.com/mo-amir99/course-platform-go/pkg/metrics"
	"github.com/mo-amir99/course-platform-go/pkg/types"
)

// Session is a hosted checkout session.
type Session struct {
	ID  string
	URL string
}

// Stripe implements the processor contract with stripe-go.
type Stripe struct {
	api        *client.API
	currency   string
	successURL string
	cancelURL  string
}

// NewStripe creates a processor using the default Stripe backends.
func NewStripe(cfg config.StripeConfig) *Stripe {
	return NewStripeWithBackends(cfg, nil)
}

// NewStripeWithBackends lets callers point the client at a different API host.
func NewStripeWithBackends(cfg config.StripeConfig, backends *stripe.Backends) *Stripe {
	currency := cfg.Currency
	if currency == "" {
		currency = string(stripe.CurrencyRUB)
	}
	return &Stripe{
		api:        client.New(cfg.SecretKey, backends),
		currency:   currency,
		successURL: cfg.SuccessURL,
		cancelURL:  cfg.CancelURL,
	}
}

// CreateProduct registers a product named after the purchased course.
func (s *Stripe) CreateProduct(ctx context.Context, name string) (string, error) {
	params := &stripe.ProductParams{Name: stripe.String(name)}
	params.Context = ctx

	product, err := s.api.Products.New(params)
	metrics.RecordProviderCall("create_product", err)
	if err != nil {
		return "", fmt.Errorf("create product: %w", describe(err))
	}
	return product.ID, nil
}

// CreatePrice creates a one-off price in minor units of the configured currency.
func (s *Stripe) CreatePrice(ctx context.Context, productID string, minorUnits int64) (string, error) {
	params := &stripe.PriceParams{
		Product:    stripe.String(productID),
		UnitAmount: stripe.Int64(minorUnits),
		Currency:   stripe.String(s.currency),
	}
	params.Context = ctx

	price, err := s.api.Prices.New(params)
	metrics.RecordProviderCall("create_price", err)
	if err != nil {
		return "", fmt.Errorf("create price: %w", describe(err))
	}
	return price.ID, nil
}

// CreateCheckoutSession opens a single-item payment session for priceID.
func (s *Stripe) CreateCheckoutSession(ctx context.Context, priceID string) (Session, error) {
	params := &stripe.CheckoutSessionParams{
		Mode:       stripe.String(string(stripe.CheckoutSessionModePayment)),
		SuccessURL: stripe.String(s.successURL),
		CancelURL:  stripe.String(s.cancelURL),
		LineItems: []*stripe.CheckoutSessionLineItemParams{
			{Price: stripe.String(priceID), Quantity: stripe.Int64(1)},
		},
	}
	params.Context = ctx

	sess, err := s.api.CheckoutSessions.New(params)
	metrics.RecordProviderCall("create_session", err)
	if err != nil {
		return Session{}, fmt.Errorf("create checkout session: %w", describe(err))
	}
	return Session{ID: sess.ID, URL: sess.URL}, nil
}

// SessionStatus returns the session's payment status tag ("paid", "unpaid", ...).
func (s *Stripe) SessionStatus(ctx context.Context, sessionID string) (types.PaymentStatus, error) {
	params := &stripe.CheckoutSessionParams{}
	params.Context = ctx

	sess, err := s.api.CheckoutSessions.Get(sessionID, params)
	metrics.RecordProviderCall("session_status", err)
	if err != nil {
		return "", fmt.Errorf("retrieve checkout session: %w", describe(err))
	}
	return types.PaymentStatus(sess.PaymentStatus), nil
}

// describe keeps the API's own message when Stripe returned a structured error.
func describe(err error) error {
	var stripeErr *stripe.Error
	if errors.As(err, &stripeErr) && stripeErr.Msg != "" {
		return fmt.Errorf("%s (%s)", stripeErr.Msg, stripeErr.Code)
	}
	return err
}
