// Package checkout turns a cart into a backend order: it validates the
// pickup details, submits once and records the result in the session.
package checkout

import (
	"context"
	"fmt"
	"net/url"

	"go.uber.org/zap"

	"mrsmoothy/backend"
	"mrsmoothy/cart"
	"mrsmoothy/events"
	"mrsmoothy/models"
	"mrsmoothy/payments"
	"mrsmoothy/session"
)

const (
	pathOrders      = "/api/orders"
	pathGuestOrders = "/api/orders/guest"
)

type Request struct {
	PickupTime string `json:"pickupTime"`
	Phone      string `json:"phoneNumber"`
	Notes      string `json:"notes,omitempty"`
	GuestName  string `json:"guestName,omitempty"`
	GuestEmail string `json:"guestEmail,omitempty"`
	// CardToken is an optional Stripe token for paying up front.
	CardToken string `json:"cardToken,omitempty"`
}

type Result struct {
	Order        models.Order      `json:"order"`
	Redirect     string            `json:"redirect"`
	Payment      *payments.Receipt `json:"payment,omitempty"`
	PaymentError string            `json:"paymentError,omitempty"`
}

// Poster is the part of the backend client checkout needs.
type Poster interface {
	Post(ctx context.Context, path, token string, body, out any) error
}

type Submitter struct {
	api     Poster
	state   *session.State
	guest   *cart.GuestStore
	charger payments.Charger
	logger  *zap.Logger
}

// New builds a Submitter. charger may be nil when card payment is off.
func New(api Poster, state *session.State, guest *cart.GuestStore, charger payments.Charger, logger *zap.Logger) *Submitter {
	return &Submitter{api: api, state: state, guest: guest, charger: charger, logger: logger}
}

func ConfirmationPath(id int64) string {
	return fmt.Sprintf("/orders/%d/confirmation", id)
}

// Submit places the order for session sid. Validation failures return
// before any network call. A backend failure leaves the cart untouched and
// is not retried.
func (s *Submitter) Submit(ctx context.Context, sid string, req Request) (*Result, error) {
	token := s.state.Token(ctx, sid)
	guest := token == ""

	if err := req.Validate(guest); err != nil {
		return nil, err
	}

	var order models.Order
	if guest {
		c := s.guest.Read(ctx, sid)
		if len(c.Items) == 0 {
			return nil, ErrEmptyCart
		}
		body := models.OrderRequest{
			PickupTime: req.PickupTime,
			Phone:      req.Phone,
			Notes:      req.Notes,
			GuestName:  req.GuestName,
			GuestEmail: req.GuestEmail,
			TotalPrice: &c.TotalPrice,
		}
		for _, it := range c.Items {
			body.Items = append(body.Items, models.OrderItemFromCart(it))
		}
		if err := s.api.Post(ctx, pathGuestOrders, "", body, &order); err != nil {
			return nil, err
		}

		if _, err := s.guest.Clear(ctx, sid); err != nil {
			s.logger.Error("failed to clear guest cart after checkout", zap.Int64("order_id", order.ID), zap.Error(err))
		}
		if err := s.state.RecordGuestOrder(ctx, sid, order.ID, req.Phone); err != nil {
			s.logger.Error("failed to record guest order", zap.Int64("order_id", order.ID), zap.Error(err))
		}
	} else {
		body := models.OrderRequest{
			PickupTime: req.PickupTime,
			Phone:      req.Phone,
			Notes:      req.Notes,
		}
		if err := s.api.Post(ctx, pathOrders, token, body, &order); err != nil {
			return nil, err
		}
		// The backend empties the server cart once the order is placed.
		s.state.Bus().Publish(ctx, events.Event{
			Topic:     events.TopicCartUpdated,
			SessionID: sid,
			Payload:   events.CartUpdated{},
		})
	}

	s.logger.Info("order placed",
		zap.Int64("order_id", order.ID),
		zap.Bool("guest", guest),
		zap.String("total", order.TotalPrice.StringFixed(2)))

	res := &Result{Order: order, Redirect: ConfirmationPath(order.ID)}
	if req.CardToken != "" {
		s.pay(ctx, res, req.CardToken)
	}
	return res, nil
}

// pay charges the placed order. The order stands even when the charge
// fails; the shopper can pay at pickup.
func (s *Submitter) pay(ctx context.Context, res *Result, cardToken string) {
	if s.charger == nil {
		res.PaymentError = payments.ErrNotConfigured.Error()
		return
	}
	receipt, err := s.charger.Charge(ctx, payments.ChargeRequest{
		OrderID:     res.Order.ID,
		Amount:      res.Order.TotalPrice,
		SourceToken: cardToken,
	})
	if err != nil {
		res.PaymentError = "Payment could not be processed. You can pay at pickup."
		return
	}
	res.Payment = receipt
}

// Orders reads placed orders back from the backend.
type Orders struct {
	api *backend.Client
}

func NewOrders(api *backend.Client) *Orders {
	return &Orders{api: api}
}

func (o *Orders) Mine(ctx context.Context, token string) ([]models.Order, error) {
	var out []models.Order
	if err := o.api.Get(ctx, pathOrders+"/my", token, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (o *Orders) Get(ctx context.Context, token string, id int64) (*models.Order, error) {
	var out models.Order
	if err := o.api.Get(ctx, fmt.Sprintf("%s/%d", pathOrders, id), token, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Guest looks up a guest order; the backend matches it against phone.
func (o *Orders) Guest(ctx context.Context, id int64, phone string) (*models.Order, error) {
	var out models.Order
	path := fmt.Sprintf("%s/%d?phone=%s", pathGuestOrders, id, url.QueryEscape(phone))
	if err := o.api.Get(ctx, path, "", &out); err != nil {
		return nil, err
	}
	return &out, nil
}
