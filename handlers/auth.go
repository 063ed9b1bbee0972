package handlers

import (
	"net/http"

	"go.opentelemetry.io/otel"
	"go.uber.org/zap"

	"mrsmoothy/backend"
	"mrsmoothy/middleware"
	"mrsmoothy/models"
	"mrsmoothy/utils"
)

type loginResponse struct {
	User          models.User `json:"user"`
	MigratedItems int         `json:"migratedItems"`
	CartWarning   string      `json:"cartWarning,omitempty"`
}

func (h *Handler) Login(w http.ResponseWriter, r *http.Request) {
	ctx, span := otel.Tracer(tracerName).Start(r.Context(), "Login")
	defer span.End()

	var creds models.Credentials
	if err := decodeJSON(r, &creds); err != nil {
		loginRequests.WithLabelValues("invalid").Inc()
		respondInvalidPayload(w)
		return
	}

	res, err := h.auth.Login(ctx, middleware.SessionID(ctx), creds)
	if err != nil {
		span.RecordError(err)
		loginRequests.WithLabelValues("error").Inc()
		h.writeError(w, err)
		return
	}
	if err := h.reissueSession(w, r, res.SessionID); err != nil {
		span.RecordError(err)
		loginRequests.WithLabelValues("error").Inc()
		h.writeError(w, err)
		return
	}
	loginRequests.WithLabelValues("success").Inc()
	utils.RespondWithJSON(w, http.StatusOK, h.loginResponse(res.User, res.MigratedItems, res.MigrationError))
}

func (h *Handler) Register(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	var reg models.Registration
	if err := decodeJSON(r, &reg); err != nil {
		respondInvalidPayload(w)
		return
	}
	res, err := h.auth.Register(ctx, middleware.SessionID(ctx), reg)
	if err != nil {
		h.writeError(w, err)
		return
	}
	if err := h.reissueSession(w, r, res.SessionID); err != nil {
		h.writeError(w, err)
		return
	}
	utils.RespondWithJSON(w, http.StatusCreated, h.loginResponse(res.User, res.MigratedItems, res.MigrationError))
}

// reissueSession moves the browser onto the session rotated at sign-in.
func (h *Handler) reissueSession(w http.ResponseWriter, r *http.Request, sid string) error {
	if sid == "" {
		return nil
	}
	if err := middleware.ReissueSession(w, r, sid); err != nil {
		h.logger.Error("could not reissue session cookie", zap.Error(err))
		return err
	}
	return nil
}

func (h *Handler) loginResponse(u models.User, migrated int, migErr error) loginResponse {
	resp := loginResponse{User: u, MigratedItems: migrated}
	if migErr != nil {
		resp.CartWarning = "Some items from your cart could not be moved to your account: " + backend.UserMessage(migErr)
	}
	return resp
}

func (h *Handler) Logout(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if err := h.auth.Logout(ctx, middleware.SessionID(ctx)); err != nil {
		h.logger.Error("logout failed", zap.Error(err))
		h.writeError(w, err)
		return
	}
	utils.RespondWithMessage(w, http.StatusOK, "Signed out")
}

type meResponse struct {
	Authenticated bool         `json:"authenticated"`
	User          *models.User `json:"user,omitempty"`
	GuestOrderIDs []int64      `json:"guestOrderIds,omitempty"`
}

func (h *Handler) Me(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	sid := middleware.SessionID(ctx)
	resp := meResponse{GuestOrderIDs: h.state.GuestOrderIDs(ctx, sid)}
	if h.state.Token(ctx, sid) != "" {
		resp.User = h.state.User(ctx, sid)
		resp.Authenticated = resp.User != nil
	}
	utils.RespondWithJSON(w, http.StatusOK, resp)
}
