package handlers

import (
	"context"
	"errors"
	"net/http"

	"mrsmoothy/middleware"
	"mrsmoothy/utils"
)

const maxUploadBytes = 5 << 20

func (h *Handler) adminToken(r *http.Request) string {
	return h.state.Token(r.Context(), middleware.SessionID(r.Context()))
}

// listHandler, createHandler, updateHandler and deleteHandler adapt one
// admin.Service collection to HTTP.
func listHandler[T any](h *Handler, list func(context.Context, string) ([]T, error)) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		out, err := list(r.Context(), h.adminToken(r))
		if err != nil {
			h.writeError(w, err)
			return
		}
		utils.RespondWithJSON(w, http.StatusOK, out)
	}
}

func createHandler[T any](h *Handler, create func(context.Context, string, T) ([]T, error)) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var in T
		if err := decodeJSON(r, &in); err != nil {
			h.writeError(w, decodeErr(err))
			return
		}
		out, err := create(r.Context(), h.adminToken(r), in)
		if err != nil {
			h.writeError(w, err)
			return
		}
		utils.RespondWithJSON(w, http.StatusCreated, out)
	}
}

func updateHandler[T any](h *Handler, update func(context.Context, string, int64, T) ([]T, error)) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, ok := pathID(w, r)
		if !ok {
			return
		}
		var in T
		if err := decodeJSON(r, &in); err != nil {
			h.writeError(w, decodeErr(err))
			return
		}
		out, err := update(r.Context(), h.adminToken(r), id, in)
		if err != nil {
			h.writeError(w, err)
			return
		}
		utils.RespondWithJSON(w, http.StatusOK, out)
	}
}

func deleteHandler[T any](h *Handler, remove func(context.Context, string, int64) ([]T, error)) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, ok := pathID(w, r)
		if !ok {
			return
		}
		out, err := remove(r.Context(), h.adminToken(r), id)
		if err != nil {
			h.writeError(w, err)
			return
		}
		utils.RespondWithJSON(w, http.StatusOK, out)
	}
}

// decodeErr keeps typed validation errors raised while decoding (an
// unknown category, say) and reports anything else as a bad payload.
func decodeErr(err error) error {
	for _, e := range badRequest {
		if errors.Is(err, e) {
			return err
		}
	}
	return errInvalidPayload
}

var errInvalidPayload = errors.New("Invalid request payload")

func (h *Handler) AdminOrders(w http.ResponseWriter, r *http.Request) {
	orders, err := h.admin.Orders(r.Context(), h.adminToken(r))
	if err != nil {
		h.writeError(w, err)
		return
	}
	utils.RespondWithJSON(w, http.StatusOK, orders)
}

func (h *Handler) UpdateOrderStatus(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	var body struct {
		Status string `json:"status"`
	}
	if err := decodeJSON(r, &body); err != nil {
		respondInvalidPayload(w)
		return
	}
	o, err := h.admin.UpdateOrderStatus(r.Context(), h.adminToken(r), id, body.Status)
	if err != nil {
		h.writeError(w, err)
		return
	}
	utils.RespondWithJSON(w, http.StatusOK, o)
}

func (h *Handler) UploadImage(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxUploadBytes)
	if err := r.ParseMultipartForm(maxUploadBytes); err != nil {
		utils.RespondWithError(w, http.StatusBadRequest, "Image must be a multipart upload under 5 MB", nil)
		return
	}
	file, header, err := r.FormFile("file")
	if err != nil {
		utils.RespondWithError(w, http.StatusBadRequest, "file is required", nil)
		return
	}
	defer file.Close()

	u, err := h.admin.UploadImage(r.Context(), h.adminToken(r), header.Filename, file)
	if err != nil {
		h.writeError(w, err)
		return
	}
	utils.RespondWithJSON(w, http.StatusCreated, map[string]string{"url": u})
}

