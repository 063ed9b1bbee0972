package checkout

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"mrsmoothy/backend"
	"mrsmoothy/cart"
	"mrsmoothy/events"
	"mrsmoothy/models"
	"mrsmoothy/payments"
	"mrsmoothy/session"
)

func TestNormalizePickupTime(t *testing.T) {
	cases := []struct {
		in, want string
		err      error
	}{
		{in: "2024-05-01T10:30", want: "2024-05-01T10:30:00"},
		{in: "2024-05-01T10:30:15", want: "2024-05-01T10:30:15"},
		{in: "2024-05-01T10:30:00Z", want: "2024-05-01T10:30:00"},
		{in: "2024-05-01T10:30:00.123Z", want: "2024-05-01T10:30:00"},
		{in: "2024-05-01T10:30+02:00", want: "2024-05-01T10:30:00"},
		{in: "2024-05-01T10:30:45-05:00", want: "2024-05-01T10:30:45"},
		{in: "2024-05-01 10:30", want: "2024-05-01T10:30:00"},
		{in: "  ", err: ErrPickupTimeRequired},
		{in: "tomorrow", err: ErrInvalidPickupTime},
		{in: "2024-13-01T10:30", err: ErrInvalidPickupTime},
	}
	for _, tc := range cases {
		got, err := NormalizePickupTime(tc.in)
		if tc.err != nil {
			assert.ErrorIs(t, err, tc.err, tc.in)
			continue
		}
		require.NoError(t, err, tc.in)
		assert.Equal(t, tc.want, got, tc.in)
	}
}

func TestRequestValidate(t *testing.T) {
	ok := Request{PickupTime: "2024-05-01T10:30", Phone: "(555) 123-4567", GuestName: "Ana"}
	r := ok
	require.NoError(t, r.Validate(true))
	assert.Equal(t, "2024-05-01T10:30:00", r.PickupTime)

	r = ok
	r.Phone = ""
	assert.ErrorIs(t, r.Validate(false), ErrPhoneRequired)

	r = ok
	r.Phone = "555-1234"
	assert.ErrorIs(t, r.Validate(false), ErrPhoneTooShort)

	r = ok
	r.GuestName = " "
	assert.ErrorIs(t, r.Validate(true), ErrGuestNameRequired)
	r = ok
	r.GuestName = ""
	assert.NoError(t, r.Validate(false))

	assert.True(t, IsValidationError(ErrPhoneTooShort))
	assert.False(t, IsValidationError(io.EOF))
}

type fakeBackend struct {
	calls   atomic.Int32
	lastReq map[string]any
	lastURL string
	lastTok string
	status  int
	body    string
}

func (f *fakeBackend) handler(t *testing.T) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		f.calls.Add(1)
		f.lastURL = r.URL.Path
		f.lastTok = r.Header.Get("Authorization")
		f.lastReq = map[string]any{}
		_ = json.NewDecoder(r.Body).Decode(&f.lastReq)
		if f.status != 0 {
			w.WriteHeader(f.status)
		}
		w.Write([]byte(f.body))
	}
}

type fixture struct {
	fake  *fakeBackend
	sub   *Submitter
	state *session.State
	guest *cart.GuestStore
}

func setup(t *testing.T, charger payments.Charger) *fixture {
	t.Helper()
	fake := &fakeBackend{body: `{"success":true,"data":{"id":77,"totalPrice":12,"status":"PENDING"}}`}
	srv := httptest.NewServer(fake.handler(t))
	t.Cleanup(srv.Close)

	api, err := backend.New(srv.URL, time.Second, zap.NewNop())
	require.NoError(t, err)

	bus := events.NewBus(zap.NewNop())
	store := session.NewMemoryStorage(time.Hour)
	state := session.NewState(store, bus, zap.NewNop())
	guest := cart.NewGuestStore(store, bus, zap.NewNop())
	return &fixture{
		fake:  fake,
		sub:   New(api, state, guest, charger, zap.NewNop()),
		state: state,
		guest: guest,
	}
}

func (f *fixture) addGuestItem(t *testing.T) {
	t.Helper()
	id := int64(3)
	_, err := f.guest.Add(context.Background(), "s", models.CartItem{
		Type: models.LineItemPredefined, DrinkID: &id, CupSizeID: 1, Quantity: 2,
		UnitPrice: decimal.NewFromInt(6), TotalPrice: decimal.NewFromInt(12),
	})
	require.NoError(t, err)
}

var guestReq = Request{
	PickupTime: "2024-05-01T10:30:00Z",
	Phone:      "555 123 4567",
	GuestName:  "Ana",
	GuestEmail: "ana@example.com",
}

func TestInvalidInputNeverReachesBackend(t *testing.T) {
	f := setup(t, nil)
	f.addGuestItem(t)

	bad := guestReq
	bad.Phone = "123"
	_, err := f.sub.Submit(context.Background(), "s", bad)
	assert.ErrorIs(t, err, ErrPhoneTooShort)

	bad = guestReq
	bad.PickupTime = ""
	_, err = f.sub.Submit(context.Background(), "s", bad)
	assert.ErrorIs(t, err, ErrPickupTimeRequired)

	assert.Zero(t, f.fake.calls.Load())
	assert.Len(t, f.guest.Read(context.Background(), "s").Items, 1)
}

func TestEmptyGuestCartNeverReachesBackend(t *testing.T) {
	f := setup(t, nil)
	_, err := f.sub.Submit(context.Background(), "s", guestReq)
	assert.ErrorIs(t, err, ErrEmptyCart)
	assert.Zero(t, f.fake.calls.Load())
}

func TestGuestCheckout(t *testing.T) {
	f := setup(t, nil)
	f.addGuestItem(t)
	ctx := context.Background()

	res, err := f.sub.Submit(ctx, "s", guestReq)
	require.NoError(t, err)

	assert.EqualValues(t, 1, f.fake.calls.Load())
	assert.Equal(t, "/api/orders/guest", f.fake.lastURL)
	assert.Empty(t, f.fake.lastTok)
	assert.Equal(t, "2024-05-01T10:30:00", f.fake.lastReq["pickupTime"])
	assert.Equal(t, "Ana", f.fake.lastReq["guestName"])
	assert.Len(t, f.fake.lastReq["items"], 1)

	assert.Equal(t, "/orders/77/confirmation", res.Redirect)
	assert.Empty(t, f.guest.Read(ctx, "s").Items)
	assert.Equal(t, []int64{77}, f.state.GuestOrderIDs(ctx, "s"))
	assert.Equal(t, "555 123 4567", f.state.GuestPhone(ctx, "s"))
}

func TestAuthenticatedCheckoutUsesServerCart(t *testing.T) {
	f := setup(t, nil)
	ctx := context.Background()
	require.NoError(t, f.state.Login(ctx, "s", "tok", models.User{ID: 1, Username: "ana"}))

	req := guestReq
	req.GuestName = ""
	res, err := f.sub.Submit(ctx, "s", req)
	require.NoError(t, err)

	assert.Equal(t, "/api/orders", f.fake.lastURL)
	assert.Equal(t, "Bearer tok", f.fake.lastTok)
	assert.NotContains(t, f.fake.lastReq, "items")
	assert.Equal(t, int64(77), res.Order.ID)
	assert.Empty(t, f.state.GuestOrderIDs(ctx, "s"))
}

func TestAuthenticatedCheckoutAnnouncesEmptyCart(t *testing.T) {
	f := setup(t, nil)
	ctx := context.Background()
	require.NoError(t, f.state.Login(ctx, "s", "tok", models.User{ID: 1, Username: "ana"}))

	var got []events.Event
	f.state.Bus().Subscribe(events.TopicCartUpdated, func(_ context.Context, ev events.Event) { got = append(got, ev) })

	req := guestReq
	req.GuestName = ""
	_, err := f.sub.Submit(ctx, "s", req)
	require.NoError(t, err)

	require.Len(t, got, 1)
	assert.Equal(t, "s", got[0].SessionID)
	assert.Equal(t, events.CartUpdated{}, got[0].Payload)
}

func TestBackendFailureKeepsCart(t *testing.T) {
	f := setup(t, nil)
	f.addGuestItem(t)
	f.fake.status = http.StatusBadRequest
	f.fake.body = `{"success":false,"message":"Pickup time must be at least 15 minutes from now"}`

	_, err := f.sub.Submit(context.Background(), "s", guestReq)
	require.Error(t, err)
	assert.Equal(t, "Pickup time must be at least 15 minutes from now", backend.UserMessage(err))
	assert.EqualValues(t, 1, f.fake.calls.Load())
	assert.Len(t, f.guest.Read(context.Background(), "s").Items, 1)
	assert.Empty(t, f.state.GuestOrderIDs(context.Background(), "s"))
}

func TestTechnicalBackendMessageIsFiltered(t *testing.T) {
	f := setup(t, nil)
	f.addGuestItem(t)
	f.fake.status = http.StatusInternalServerError
	f.fake.body = `{"success":false,"message":"SQL error: relation orders does not exist"}`

	_, err := f.sub.Submit(context.Background(), "s", guestReq)
	assert.Equal(t, backend.MsgGeneric, backend.UserMessage(err))
}

type fakeCharger struct {
	got payments.ChargeRequest
	err error
}

func (c *fakeCharger) Charge(_ context.Context, req payments.ChargeRequest) (*payments.Receipt, error) {
	c.got = req
	if c.err != nil {
		return nil, c.err
	}
	return &payments.Receipt{ChargeID: "ch_1", AmountMinor: payments.MinorUnits(req.Amount)}, nil
}

func TestPrepayment(t *testing.T) {
	charger := &fakeCharger{}
	f := setup(t, charger)
	f.addGuestItem(t)

	req := guestReq
	req.CardToken = "tok_visa"
	res, err := f.sub.Submit(context.Background(), "s", req)
	require.NoError(t, err)
	require.NotNil(t, res.Payment)
	assert.Equal(t, int64(1200), res.Payment.AmountMinor)
	assert.Equal(t, int64(77), charger.got.OrderID)
}

func TestPrepaymentFailureKeepsOrder(t *testing.T) {
	f := setup(t, &fakeCharger{err: io.ErrUnexpectedEOF})
	f.addGuestItem(t)

	req := guestReq
	req.CardToken = "tok_visa"
	res, err := f.sub.Submit(context.Background(), "s", req)
	require.NoError(t, err)
	assert.Nil(t, res.Payment)
	assert.NotEmpty(t, res.PaymentError)
	assert.Equal(t, "/orders/77/confirmation", res.Redirect)
}

func TestOrderLookups(t *testing.T) {
	fake := &fakeBackend{body: `{"success":true,"data":{"id":77,"totalPrice":12}}`}
	var query string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		query = r.URL.Query().Get("phone")
		fake.handler(t)(w, r)
	}))
	t.Cleanup(srv.Close)
	api, err := backend.New(srv.URL, time.Second, zap.NewNop())
	require.NoError(t, err)
	orders := NewOrders(api)

	o, err := orders.Guest(context.Background(), 77, "+1 555 123 4567")
	require.NoError(t, err)
	assert.Equal(t, int64(77), o.ID)
	assert.Equal(t, "/api/orders/guest/77", fake.lastURL)
	assert.Equal(t, "+1 555 123 4567", query)
	assert.Empty(t, fake.lastTok)

	_, err = orders.Get(context.Background(), "tok", 77)
	require.NoError(t, err)
	assert.Equal(t, "/api/orders/77", fake.lastURL)
	assert.Equal(t, "Bearer tok", fake.lastTok)

	fake.body = `{"success":true,"data":[{"id":1},{"id":2}]}`
	mine, err := orders.Mine(context.Background(), "tok")
	require.NoError(t, err)
	assert.Len(t, mine, 2)
	assert.Equal(t, "/api/orders/my", fake.lastURL)
}
