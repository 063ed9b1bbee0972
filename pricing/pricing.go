// Package pricing derives line-item prices from the ingredient and cup-size
// catalogs. Everything here is pure: the same inputs give the same quote.
package pricing

import (
	"errors"
	"sort"

	"github.com/shopspring/decimal"

	"mrsmoothy/models"
)

var (
	ErrCupSizeNotFound = errors.New("cup size not found")
	ErrNoCupSize       = errors.New("no active cup size available")
)

var (
	legacyThreshold = decimal.NewFromInt(1000)
	hundred         = decimal.NewFromInt(100)
)

type Calculator struct {
	// LegacyMinorUnitHeuristic divides an ingredient sum above 1000 by 100.
	// It papers over cents-denominated source data that is not tagged with
	// PriceUnitMinor and is off unless configured.
	LegacyMinorUnitHeuristic bool
}

// Quote is the price of one line item.
type Quote struct {
	// Lines are the ingredients that contributed, with the unit price used.
	// Empty when the drink's base price was used.
	Lines      []models.CustomIngredient `json:"lines,omitempty"`
	BasePrice  decimal.Decimal           `json:"basePrice"`
	CupSize    models.CupSize            `json:"cupSize"`
	UnitPrice  decimal.Decimal           `json:"unitPrice"`
	Quantity   int                       `json:"quantity"`
	TotalPrice decimal.Decimal           `json:"totalPrice"`
}

// Price quotes quantity cups of drink. cupSizeID nil selects the default
// cup (see DefaultCupSize). Ingredients missing from the catalog contribute
// nothing.
func (c Calculator) Price(drink models.Drink, ingredients []models.Ingredient, cups []models.CupSize, cupSizeID *int64, quantity int) (Quote, error) {
	if quantity < 1 {
		return Quote{}, models.ErrInvalidQuantity
	}

	cup, err := selectCup(cups, cupSizeID)
	if err != nil {
		return Quote{}, err
	}

	q := Quote{CupSize: cup, Quantity: quantity}
	if drink.BasePrice != nil {
		q.BasePrice = drink.BasePriceUnit.Normalize(*drink.BasePrice)
	} else {
		q.Lines, q.BasePrice = c.ingredientSum(drink.Ingredients, ingredients)
	}

	q.UnitPrice = q.BasePrice.Add(cup.Surcharge)
	q.TotalPrice = q.UnitPrice.Mul(decimal.NewFromInt(int64(quantity)))
	return q, nil
}

func (c Calculator) ingredientSum(wanted []models.DrinkIngredient, catalog []models.Ingredient) ([]models.CustomIngredient, decimal.Decimal) {
	byID := make(map[int64]models.Ingredient, len(catalog))
	for _, ing := range catalog {
		byID[ing.ID] = ing
	}

	sum := decimal.Zero
	var lines []models.CustomIngredient
	for _, w := range wanted {
		ing, ok := byID[w.IngredientID]
		if !ok {
			continue
		}
		unit := ing.UnitPrice()
		sum = sum.Add(unit.Mul(decimal.NewFromInt(int64(w.Quantity))))
		lines = append(lines, models.CustomIngredient{
			IngredientID: ing.ID,
			Name:         ing.Name,
			Quantity:     w.Quantity,
			UnitPrice:    unit,
		})
	}

	if c.LegacyMinorUnitHeuristic && sum.GreaterThan(legacyThreshold) {
		sum = sum.Div(hundred)
	}
	return lines, sum
}

func selectCup(cups []models.CupSize, id *int64) (models.CupSize, error) {
	if id != nil {
		for _, c := range cups {
			if c.ID == *id {
				return c, nil
			}
		}
		return models.CupSize{}, ErrCupSizeNotFound
	}
	cup, ok := DefaultCupSize(cups)
	if !ok {
		return models.CupSize{}, ErrNoCupSize
	}
	return cup, nil
}

// DefaultCupSize is the first active cup ordered by volume, then surcharge.
func DefaultCupSize(cups []models.CupSize) (models.CupSize, bool) {
	active := make([]models.CupSize, 0, len(cups))
	for _, c := range cups {
		if c.Active {
			active = append(active, c)
		}
	}
	if len(active) == 0 {
		return models.CupSize{}, false
	}
	sort.SliceStable(active, func(i, j int) bool {
		if active[i].VolumeML != active[j].VolumeML {
			return active[i].VolumeML < active[j].VolumeML
		}
		return active[i].Surcharge.LessThan(active[j].Surcharge)
	})
	return active[0], true
}

// Format renders a price for display with two decimals.
func Format(p decimal.Decimal) string {
	return p.StringFixed(2)
}
