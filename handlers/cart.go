package handlers

import (
	"context"
	"net/http"

	"github.com/gorilla/mux"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"

	"mrsmoothy/cart"
	"mrsmoothy/events"
	"mrsmoothy/middleware"
	"mrsmoothy/models"
	"mrsmoothy/utils"
)

func cartKind(token string) string {
	if token == "" {
		return "guest"
	}
	return "server"
}

// publishCart announces a server cart change. Guest carts publish their own.
func (h *Handler) publishCart(ctx context.Context, sid string, c models.Cart) {
	h.bus.Publish(ctx, cartEvent(sid, c))
}

func cartEvent(sid string, c models.Cart) events.Event {
	return events.Event{
		Topic:     events.TopicCartUpdated,
		SessionID: sid,
		Payload:   events.CartUpdated{Count: c.Count(), TotalPrice: c.TotalPrice},
	}
}

// GetCart returns the server cart for signed-in shoppers and the session
// cart otherwise.
func (h *Handler) GetCart(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	sid := middleware.SessionID(ctx)
	token := h.state.Token(ctx, sid)
	if token == "" {
		utils.RespondWithJSON(w, http.StatusOK, h.guest.Read(ctx, sid))
		return
	}
	c, err := h.server.Get(ctx, token)
	if err != nil {
		h.writeError(w, err)
		return
	}
	utils.RespondWithJSON(w, http.StatusOK, c)
}

func (h *Handler) AddToCart(w http.ResponseWriter, r *http.Request) {
	ctx, span := otel.Tracer(tracerName).Start(r.Context(), "AddToCart")
	defer span.End()

	var req itemRequest
	if err := decodeJSON(r, &req); err != nil {
		respondInvalidPayload(w)
		return
	}

	item, _, err := h.priceItem(ctx, req)
	if err == nil {
		err = item.Validate()
	}
	if err != nil {
		span.RecordError(err)
		h.writeError(w, err)
		return
	}

	sid := middleware.SessionID(ctx)
	token := h.state.Token(ctx, sid)
	span.SetAttributes(attribute.String("cart.kind", cartKind(token)), attribute.String("cart.item_type", string(item.Type)))

	if token == "" {
		c, err := h.guest.Add(ctx, sid, item)
		if err != nil {
			h.writeError(w, err)
			return
		}
		cartMutations.WithLabelValues("add", "guest").Inc()
		utils.RespondWithJSON(w, http.StatusCreated, c)
		return
	}

	c, err := h.server.Add(ctx, token, cart.AddItemRequestFrom(item))
	if err != nil {
		h.writeError(w, err)
		return
	}
	cartMutations.WithLabelValues("add", "server").Inc()
	h.publishCart(ctx, sid, c)
	utils.RespondWithJSON(w, http.StatusCreated, c)
}

func (h *Handler) RemoveFromCart(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	sid := middleware.SessionID(ctx)
	id := mux.Vars(r)["id"]
	token := h.state.Token(ctx, sid)

	if token == "" {
		c, err := h.guest.Remove(ctx, sid, id)
		if err != nil {
			h.writeError(w, err)
			return
		}
		cartMutations.WithLabelValues("remove", "guest").Inc()
		utils.RespondWithJSON(w, http.StatusOK, c)
		return
	}

	if err := h.server.Remove(ctx, token, id); err != nil {
		h.writeError(w, err)
		return
	}
	cartMutations.WithLabelValues("remove", "server").Inc()
	c, err := h.server.Get(ctx, token)
	if err != nil {
		h.writeError(w, err)
		return
	}
	h.publishCart(ctx, sid, c)
	utils.RespondWithJSON(w, http.StatusOK, c)
}

func (h *Handler) ClearCart(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	sid := middleware.SessionID(ctx)
	token := h.state.Token(ctx, sid)

	if token == "" {
		c, err := h.guest.Clear(ctx, sid)
		if err != nil {
			h.writeError(w, err)
			return
		}
		cartMutations.WithLabelValues("clear", "guest").Inc()
		utils.RespondWithJSON(w, http.StatusOK, c)
		return
	}

	if err := h.server.Clear(ctx, token); err != nil {
		h.writeError(w, err)
		return
	}
	cartMutations.WithLabelValues("clear", "server").Inc()
	c, err := h.server.Get(ctx, token)
	if err != nil {
		h.writeError(w, err)
		return
	}
	h.publishCart(ctx, sid, c)
	utils.RespondWithJSON(w, http.StatusOK, c)
}
