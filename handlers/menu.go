package handlers

import (
	"context"
	"net/http"
	"strconv"
	"strings"

	"github.com/gorilla/mux"
	"go.opentelemetry.io/otel"

	"mrsmoothy/builder"
	"mrsmoothy/catalog"
	"mrsmoothy/models"
	"mrsmoothy/pricing"
	"mrsmoothy/utils"
)

// Ingredients lists active ingredients, optionally filtered by
// ?category=FRUIT|VEGETABLE|ADDON.
func (h *Handler) Ingredients(w http.ResponseWriter, r *http.Request) {
	var want models.Category
	if c := r.URL.Query().Get("category"); c != "" {
		cat, err := models.ParseCategory(c)
		if err != nil {
			h.writeError(w, err)
			return
		}
		want = cat
	}

	all, err := h.catalog.Ingredients(r.Context())
	if err != nil {
		h.writeError(w, err)
		return
	}
	out := make([]models.Ingredient, 0, len(all))
	for _, ing := range all {
		if ing.Active && (want == "" || ing.Category == want) {
			out = append(out, ing)
		}
	}
	utils.RespondWithJSON(w, http.StatusOK, out)
}

func (h *Handler) SeasonalIngredients(w http.ResponseWriter, r *http.Request) {
	all, err := h.catalog.SeasonalIngredients(r.Context())
	if err != nil {
		h.writeError(w, err)
		return
	}
	out := make([]models.Ingredient, 0, len(all))
	for _, ing := range all {
		if ing.Active {
			out = append(out, ing)
		}
	}
	utils.RespondWithJSON(w, http.StatusOK, out)
}

func (h *Handler) CupSizes(w http.ResponseWriter, r *http.Request) {
	all, err := h.catalog.CupSizes(r.Context())
	if err != nil {
		h.writeError(w, err)
		return
	}
	out := make([]models.CupSize, 0, len(all))
	for _, c := range all {
		if c.Active {
			out = append(out, c)
		}
	}
	utils.RespondWithJSON(w, http.StatusOK, out)
}

func (h *Handler) Drinks(w http.ResponseWriter, r *http.Request) {
	all, err := h.catalog.Drinks(r.Context())
	if err != nil {
		h.writeError(w, err)
		return
	}
	out := make([]models.Drink, 0, len(all))
	for _, d := range all {
		if d.Active {
			out = append(out, d)
		}
	}
	utils.RespondWithJSON(w, http.StatusOK, out)
}

func (h *Handler) Drink(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	d, err := h.catalog.Drink(r.Context(), id)
	if err == nil && !d.Active {
		err = catalog.ErrDrinkNotFound
	}
	if err != nil {
		h.writeError(w, err)
		return
	}
	utils.RespondWithJSON(w, http.StatusOK, d)
}

func (h *Handler) Nutrition(w http.ResponseWriter, r *http.Request) {
	name := strings.TrimSpace(r.URL.Query().Get("name"))
	if name == "" {
		utils.RespondWithError(w, http.StatusBadRequest, "name is required", nil)
		return
	}
	n, err := h.catalog.Nutrition(r.Context(), name)
	if err != nil {
		h.writeError(w, err)
		return
	}
	utils.RespondWithJSON(w, http.StatusOK, n)
}

// itemRequest describes one line: either a menu drink or a custom build.
type itemRequest struct {
	DrinkID     *int64                   `json:"drinkId,omitempty"`
	Ingredients []models.DrinkIngredient `json:"ingredients,omitempty"`
	CupSizeID   *int64                   `json:"cupSizeId,omitempty"`
	Quantity    int                      `json:"quantity"`
}

type quoteResponse struct {
	pricing.Quote
	Display struct {
		UnitPrice  string `json:"unitPrice"`
		TotalPrice string `json:"totalPrice"`
	} `json:"display"`
}

func (h *Handler) Quote(w http.ResponseWriter, r *http.Request) {
	ctx, span := otel.Tracer(tracerName).Start(r.Context(), "Quote")
	defer span.End()

	var req itemRequest
	if err := decodeJSON(r, &req); err != nil {
		respondInvalidPayload(w)
		return
	}
	_, q, err := h.priceItem(ctx, req)
	if err != nil {
		span.RecordError(err)
		h.writeError(w, err)
		return
	}

	resp := quoteResponse{Quote: q}
	resp.Display.UnitPrice = pricing.Format(q.UnitPrice)
	resp.Display.TotalPrice = pricing.Format(q.TotalPrice)
	utils.RespondWithJSON(w, http.StatusOK, resp)
}

// priceItem prices req against a fresh catalog snapshot and returns the
// cart line it describes.
func (h *Handler) priceItem(ctx context.Context, req itemRequest) (models.CartItem, pricing.Quote, error) {
	if req.Quantity == 0 {
		req.Quantity = 1
	}

	snap, err := h.catalog.PricingSnapshot(ctx)
	if err != nil {
		return models.CartItem{}, pricing.Quote{}, err
	}

	var item models.CartItem
	var drink models.Drink
	if req.DrinkID != nil {
		d, err := h.catalog.Drink(ctx, *req.DrinkID)
		if err != nil {
			return models.CartItem{}, pricing.Quote{}, err
		}
		if !d.Active {
			return models.CartItem{}, pricing.Quote{}, catalog.ErrDrinkNotFound
		}
		drink = *d
		item.Type = models.LineItemPredefined
		item.DrinkID = &d.ID
		item.DrinkName = d.Name
	} else {
		sel, err := builder.FromIngredients(req.Ingredients)
		if err != nil {
			return models.CartItem{}, pricing.Quote{}, err
		}
		if err := checkAvailable(sel.Ingredients(), snap.Ingredients); err != nil {
			return models.CartItem{}, pricing.Quote{}, err
		}
		if drink, err = sel.Drink(); err != nil {
			return models.CartItem{}, pricing.Quote{}, err
		}
		item.Type = models.LineItemCustom
	}

	if req.CupSizeID != nil && !cupActive(snap.CupSizes, *req.CupSizeID) {
		return models.CartItem{}, pricing.Quote{}, pricing.ErrCupSizeNotFound
	}
	q, err := h.calc.Price(drink, snap.Ingredients, snap.CupSizes, req.CupSizeID, req.Quantity)
	if err != nil {
		return models.CartItem{}, pricing.Quote{}, err
	}

	item.CupSizeID = q.CupSize.ID
	item.CupSizeName = q.CupSize.Name
	item.Quantity = q.Quantity
	item.UnitPrice = q.UnitPrice
	item.TotalPrice = q.TotalPrice
	if item.Type == models.LineItemCustom {
		item.Ingredients = q.Lines
	}
	return item, q, nil
}

func checkAvailable(wanted []models.DrinkIngredient, all []models.Ingredient) error {
	active := make(map[int64]bool, len(all))
	for _, ing := range all {
		active[ing.ID] = ing.Active
	}
	for _, w := range wanted {
		if !active[w.IngredientID] {
			return errUnavailableIngredient
		}
	}
	return nil
}

func cupActive(cups []models.CupSize, id int64) bool {
	for _, c := range cups {
		if c.ID == id {
			return c.Active
		}
	}
	return false
}

func pathID(w http.ResponseWriter, r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(mux.Vars(r)["id"], 10, 64)
	if err != nil || id <= 0 {
		utils.RespondWithError(w, http.StatusBadRequest, "Invalid id", nil)
		return 0, false
	}
	return id, true
}
