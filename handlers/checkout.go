package handlers

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"

	"mrsmoothy/backend"
	"mrsmoothy/checkout"
	"mrsmoothy/middleware"
	"mrsmoothy/models"
	"mrsmoothy/utils"
)

func (h *Handler) Checkout(w http.ResponseWriter, r *http.Request) {
	// Start the request duration timer
	start := time.Now()

	ctx, span := otel.Tracer(tracerName).Start(r.Context(), "Checkout")
	defer span.End()

	sid := middleware.SessionID(ctx)
	shopper := "guest"
	if h.state.Token(ctx, sid) != "" {
		shopper = "account"
	}
	span.SetAttributes(attribute.String("checkout.shopper", shopper))

	var req checkout.Request
	if err := decodeJSON(r, &req); err != nil {
		checkoutCount.WithLabelValues(shopper, "invalid").Inc()
		respondInvalidPayload(w)
		return
	}

	res, err := h.checkout.Submit(ctx, sid, req)
	if err != nil {
		status := "error"
		if checkout.IsValidationError(err) {
			status = "invalid"
		}
		span.RecordError(err)
		checkoutCount.WithLabelValues(shopper, status).Inc()
		checkoutDuration.WithLabelValues(status).Observe(time.Since(start).Seconds())
		h.writeError(w, err)
		return
	}

	span.SetAttributes(attribute.Int64("order.id", res.Order.ID))
	checkoutCount.WithLabelValues(shopper, "success").Inc()
	checkoutDuration.WithLabelValues("success").Observe(time.Since(start).Seconds())
	utils.RespondWithJSON(w, http.StatusCreated, res)
}

// MyOrders lists the account's orders, or for guests the orders placed
// from this browser.
func (h *Handler) MyOrders(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	sid := middleware.SessionID(ctx)

	if token := h.state.Token(ctx, sid); token != "" {
		orders, err := h.orders.Mine(ctx, token)
		if err != nil {
			h.writeError(w, err)
			return
		}
		utils.RespondWithJSON(w, http.StatusOK, orders)
		return
	}

	// One order that cannot be read does not hide the others. Only when
	// every lookup failed for a reason other than not found is it an error.
	phone := h.state.GuestPhone(ctx, sid)
	ids := h.state.GuestOrderIDs(ctx, sid)
	out := []models.Order{}
	var failed error
	for _, id := range ids {
		o, err := h.orders.Guest(ctx, id, phone)
		if errors.Is(err, backend.ErrNotFound) {
			continue
		}
		if err != nil {
			h.logger.Warn("skipping unreadable guest order", zap.Int64("order_id", id), zap.Error(err))
			failed = err
			continue
		}
		out = append(out, *o)
	}
	if len(out) == 0 && failed != nil {
		h.writeError(w, failed)
		return
	}
	utils.RespondWithJSON(w, http.StatusOK, out)
}

// Order shows one order. Guests may pass ?phone= to look up an order
// placed elsewhere; otherwise the phone remembered at checkout is used.
func (h *Handler) Order(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	ctx := r.Context()
	sid := middleware.SessionID(ctx)

	var (
		o   *models.Order
		err error
	)
	if token := h.state.Token(ctx, sid); token != "" {
		o, err = h.orders.Get(ctx, token, id)
	} else {
		phone := strings.TrimSpace(r.URL.Query().Get("phone"))
		if phone == "" {
			phone = h.state.GuestPhone(ctx, sid)
		}
		if phone == "" {
			utils.RespondWithError(w, http.StatusBadRequest, checkout.ErrPhoneRequired.Error(), nil)
			return
		}
		o, err = h.orders.Guest(ctx, id, phone)
	}
	if err != nil {
		h.writeError(w, err)
		return
	}
	utils.RespondWithJSON(w, http.StatusOK, o)
}
