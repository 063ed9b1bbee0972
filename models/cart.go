package models

import (
	"time"

	"github.com/shopspring/decimal"
)

type LineItemType string

const (
	LineItemPredefined LineItemType = "PREDEFINED"
	LineItemCustom     LineItemType = "CUSTOM"
)

// CustomIngredient is one ingredient of a custom build, with the unit price
// it was quoted at.
type CustomIngredient struct {
	IngredientID int64           `json:"fruitId"`
	Name         string          `json:"fruitName,omitempty"`
	Quantity     int             `json:"quantity"`
	UnitPrice    decimal.Decimal `json:"pricePerUnit"`
}

// CartItem is one line of a cart. ID and CreatedAt are assigned locally for
// guest carts and by the backend for server carts.
type CartItem struct {
	ID          string             `json:"id"`
	Type        LineItemType       `json:"itemType"`
	CupSizeID   int64              `json:"cupSizeId"`
	CupSizeName string             `json:"cupSizeName,omitempty"`
	Quantity    int                `json:"quantity"`
	DrinkID     *int64             `json:"productId,omitempty"`
	DrinkName   string             `json:"productName,omitempty"`
	Ingredients []CustomIngredient `json:"ingredients,omitempty"`
	UnitPrice   decimal.Decimal    `json:"unitPrice"`
	TotalPrice  decimal.Decimal    `json:"totalPrice"`
	CreatedAt   time.Time          `json:"createdAt"`
}

func (it CartItem) Validate() error {
	if it.Quantity <= 0 {
		return ErrInvalidQuantity
	}
	switch it.Type {
	case LineItemPredefined:
		if it.DrinkID == nil {
			return ErrDrinkRequired
		}
	case LineItemCustom:
		if len(it.Ingredients) == 0 {
			return ErrNoIngredients
		}
	default:
		return ErrUnknownItemType
	}
	return nil
}

type Cart struct {
	Items      []CartItem      `json:"items"`
	TotalPrice decimal.Decimal `json:"totalPrice"`
}

// Recompute sets TotalPrice to the sum of the item totals.
func (c *Cart) Recompute() {
	total := decimal.Zero
	for _, it := range c.Items {
		total = total.Add(it.TotalPrice)
	}
	c.TotalPrice = total
}

// Count is the number of cups in the cart.
func (c Cart) Count() int {
	n := 0
	for _, it := range c.Items {
		n += it.Quantity
	}
	return n
}
