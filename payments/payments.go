// Package payments charges a card for a placed order.
package payments

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"
	"github.com/stripe/stripe-go/v72"
	"github.com/stripe/stripe-go/v72/charge"
	"go.uber.org/zap"
)

var (
	ErrNotConfigured = errors.New("payments are not configured")
	ErrInvalidAmount = errors.New("charge amount must be positive")
	ErrMissingSource = errors.New("card token is required")
)

type ChargeRequest struct {
	OrderID     int64
	Amount      decimal.Decimal
	Currency    string
	SourceToken string
}

type Receipt struct {
	ChargeID    string `json:"chargeId"`
	Status      string `json:"status"`
	AmountMinor int64  `json:"amount"`
	Currency    string `json:"currency"`
}

type Charger interface {
	Charge(ctx context.Context, req ChargeRequest) (*Receipt, error)
}

// MinorUnits converts a major-unit amount to cents, rounding half away
// from zero.
func MinorUnits(amount decimal.Decimal) int64 {
	return amount.Shift(2).Round(0).IntPart()
}

type StripeCharger struct {
	charges  *charge.Client
	currency string
	logger   *zap.Logger

	newCharge func(*stripe.ChargeParams) (*stripe.Charge, error)
}

// NewStripeCharger returns nil when no secret key is configured.
func NewStripeCharger(secretKey, currency string, logger *zap.Logger) *StripeCharger {
	if secretKey == "" {
		return nil
	}
	c := &StripeCharger{
		charges:  &charge.Client{B: stripe.GetBackend(stripe.APIBackend), Key: secretKey},
		currency: strings.ToLower(currency),
		logger:   logger,
	}
	c.newCharge = c.charges.New
	return c
}

func (s *StripeCharger) Charge(ctx context.Context, req ChargeRequest) (*Receipt, error) {
	if s == nil {
		return nil, ErrNotConfigured
	}
	if req.SourceToken == "" {
		return nil, ErrMissingSource
	}
	amount := MinorUnits(req.Amount)
	if amount <= 0 {
		return nil, ErrInvalidAmount
	}
	currency := s.currency
	if req.Currency != "" {
		currency = strings.ToLower(req.Currency)
	}

	params := &stripe.ChargeParams{
		Amount:      stripe.Int64(amount),
		Currency:    stripe.String(currency),
		Source:      &stripe.SourceParams{Token: stripe.String(req.SourceToken)},
		Description: stripe.String(fmt.Sprintf("Mr. Smoothy order #%d", req.OrderID)),
	}
	params.Context = ctx
	params.AddMetadata("order_id", strconv.FormatInt(req.OrderID, 10))

	ch, err := s.newCharge(params)
	if err != nil {
		s.logger.Error("card charge failed", zap.Int64("order_id", req.OrderID), zap.Error(err))
		return nil, fmt.Errorf("charge order %d: %w", req.OrderID, err)
	}

	s.logger.Info("card charged",
		zap.Int64("order_id", req.OrderID),
		zap.String("charge_id", ch.ID),
		zap.Int64("amount", amount))
	return &Receipt{
		ChargeID:    ch.ID,
		Status:      string(ch.Status),
		AmountMinor: amount,
		Currency:    currency,
	}, nil
}
