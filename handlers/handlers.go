// Package handlers serves the storefront API: the menu, price quotes, the
// cart, checkout, order lookup, sign-in, the back office and a live event
// stream. Responses use the same {success, message, data, timestamp}
// envelope as the shop backend.
package handlers

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	"mrsmoothy/admin"
	"mrsmoothy/auth"
	"mrsmoothy/cart"
	"mrsmoothy/catalog"
	"mrsmoothy/checkout"
	"mrsmoothy/events"
	"mrsmoothy/pricing"
	"mrsmoothy/session"
	"mrsmoothy/utils"
)

const tracerName = "storefront"

// Define Prometheus metrics
var (
	cartMutations = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "storefront_cart_mutations_total",
			Help: "Cart changes by operation and cart kind",
		},
		[]string{"op", "cart"},
	)

	checkoutCount = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "storefront_checkouts_total",
			Help: "Checkout attempts by shopper kind and outcome",
		},
		[]string{"shopper", "status"},
	)

	checkoutDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "storefront_checkout_duration_seconds",
			Help:    "Time spent placing an order",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"status"},
	)

	loginRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "storefront_login_requests_total",
			Help: "Sign-in attempts by outcome",
		},
		[]string{"status"},
	)
)

// Init registers the handler metrics with reg.
func Init(reg prometheus.Registerer) {
	reg.MustRegister(cartMutations, checkoutCount, checkoutDuration, loginRequests)
}

type Deps struct {
	Catalog  *catalog.Catalog
	Pricing  pricing.Calculator
	Guest    *cart.GuestStore
	Server   *cart.Server
	State    *session.State
	Checkout *checkout.Submitter
	Orders   *checkout.Orders
	Admin    *admin.Service
	Auth     *auth.Service
	Bus      *events.Bus
	Logger   *zap.Logger

	// Heartbeat is how often the event stream writes a keep-alive.
	Heartbeat time.Duration
}

type Handler struct {
	catalog   *catalog.Catalog
	calc      pricing.Calculator
	guest     *cart.GuestStore
	server    *cart.Server
	state     *session.State
	checkout  *checkout.Submitter
	orders    *checkout.Orders
	admin     *admin.Service
	auth      *auth.Service
	bus       *events.Bus
	logger    *zap.Logger
	heartbeat time.Duration
}

func New(d Deps) *Handler {
	hb := d.Heartbeat
	if hb <= 0 {
		hb = 25 * time.Second
	}
	return &Handler{
		catalog:   d.Catalog,
		calc:      d.Pricing,
		guest:     d.Guest,
		server:    d.Server,
		state:     d.State,
		checkout:  d.Checkout,
		orders:    d.Orders,
		admin:     d.Admin,
		auth:      d.Auth,
		bus:       d.Bus,
		logger:    d.Logger,
		heartbeat: hb,
	}
}

func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	utils.RespondWithJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func decodeJSON(r *http.Request, v any) error {
	return json.NewDecoder(r.Body).Decode(v)
}

func respondInvalidPayload(w http.ResponseWriter) {
	utils.RespondWithError(w, http.StatusBadRequest, "Invalid request payload", nil)
}
