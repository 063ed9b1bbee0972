package handlers

import (
	"errors"
	"net/http"

	"go.uber.org/zap"

	"mrsmoothy/admin"
	"mrsmoothy/auth"
	"mrsmoothy/backend"
	"mrsmoothy/builder"
	"mrsmoothy/catalog"
	"mrsmoothy/checkout"
	"mrsmoothy/models"
	"mrsmoothy/pricing"
	"mrsmoothy/utils"
)

var errUnavailableIngredient = errors.New("one of the chosen ingredients is not available")

var badRequest = []error{
	models.ErrNameRequired, models.ErrNegativePrice, models.ErrMissingCategory,
	models.ErrUnknownCategory, models.ErrInvalidVolume, models.ErrNoIngredients,
	models.ErrInvalidQuantity, models.ErrDrinkRequired, models.ErrUnknownItemType,
	models.ErrUnknownStatus,
	builder.ErrTooManyUnits, builder.ErrEmpty,
	pricing.ErrCupSizeNotFound, pricing.ErrNoCupSize,
	admin.ErrInvalidID, admin.ErrUnsupportedImage,
	auth.ErrCredentialsRequired, auth.ErrEmailRequired,
	errUnavailableIngredient, errInvalidPayload,
}

// writeError maps err onto a status and a message fit for shoppers.
func (h *Handler) writeError(w http.ResponseWriter, err error) {
	for _, e := range badRequest {
		if errors.Is(err, e) {
			utils.RespondWithError(w, http.StatusBadRequest, err.Error(), nil)
			return
		}
	}
	if checkout.IsValidationError(err) {
		utils.RespondWithError(w, http.StatusBadRequest, err.Error(), nil)
		return
	}
	if errors.Is(err, catalog.ErrDrinkNotFound) {
		utils.RespondWithError(w, http.StatusNotFound, err.Error(), nil)
		return
	}

	var be *backend.Error
	if errors.As(err, &be) {
		status := http.StatusBadGateway
		switch {
		case be.Kind == backend.KindBusiness && be.Status >= 400:
			status = be.Status
		case be.Kind == backend.KindBusiness:
			status = http.StatusUnprocessableEntity
		}
		utils.RespondWithError(w, status, backend.UserMessage(err), nil)
		return
	}

	h.logger.Error("unhandled error", zap.Error(err))
	utils.RespondWithError(w, http.StatusInternalServerError, backend.MsgGeneric, nil)
}
