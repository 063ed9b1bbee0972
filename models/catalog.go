package models

import (
	"encoding/json"
	"strings"

	"github.com/shopspring/decimal"
)

func init() {
	// The backend speaks JSON numbers, not quoted decimals.
	decimal.MarshalJSONWithoutQuotes = true
}

// Category tags an ingredient. There is no implicit default: an ingredient
// without a category is invalid.
type Category string

const (
	CategoryFruit     Category = "FRUIT"
	CategoryVegetable Category = "VEGETABLE"
	CategoryAddon     Category = "ADDON"
)

// ParseCategory normalizes s and checks it against the known tags.
func ParseCategory(s string) (Category, error) {
	c := Category(strings.ToUpper(strings.TrimSpace(s)))
	if err := c.Validate(); err != nil {
		return "", err
	}
	return c, nil
}

func (c Category) Validate() error {
	switch c {
	case CategoryFruit, CategoryVegetable, CategoryAddon:
		return nil
	case "":
		return ErrMissingCategory
	default:
		return ErrUnknownCategory
	}
}

func (c *Category) UnmarshalJSON(b []byte) error {
	var s string
	if err := json.Unmarshal(b, &s); err != nil {
		return err
	}
	*c = Category(strings.ToUpper(strings.TrimSpace(s)))
	return nil
}

// PriceUnit says how a stored price is denominated. Some upstream data is
// kept in minor units (cents) and must be scaled before use.
type PriceUnit string

const (
	PriceUnitMajor PriceUnit = "MAJOR"
	PriceUnitMinor PriceUnit = "MINOR"
)

// Normalize converts p to major units according to u.
func (u PriceUnit) Normalize(p decimal.Decimal) decimal.Decimal {
	if u == PriceUnitMinor {
		return p.Div(decimal.NewFromInt(100))
	}
	return p
}

type Nutrition struct {
	Calories *float64 `json:"calories,omitempty"`
	Protein  *float64 `json:"protein,omitempty"`
	Fiber    *float64 `json:"fiber,omitempty"`
}

// Ingredient is a fruit, vegetable or add-on a drink can be built from.
type Ingredient struct {
	ID        int64           `json:"id"`
	Name      string          `json:"name"`
	Price     decimal.Decimal `json:"pricePerUnit"`
	PriceUnit PriceUnit       `json:"priceUnit,omitempty"`
	Category  Category        `json:"category"`
	Active    bool            `json:"isActive"`
	Seasonal  bool            `json:"isSeasonal,omitempty"`
	ImageURL  string          `json:"imageUrl,omitempty"`
	Nutrition
}

// UnitPrice is the ingredient price in major currency units.
func (i Ingredient) UnitPrice() decimal.Decimal {
	return i.PriceUnit.Normalize(i.Price)
}

func (i Ingredient) Validate() error {
	if strings.TrimSpace(i.Name) == "" {
		return ErrNameRequired
	}
	if i.Price.IsNegative() {
		return ErrNegativePrice
	}
	return i.Category.Validate()
}

type CupSize struct {
	ID          int64           `json:"id"`
	Name        string          `json:"name"`
	VolumeML    int             `json:"volumeMl"`
	Surcharge   decimal.Decimal `json:"extraPrice"`
	Active      bool            `json:"isActive"`
	Description string          `json:"description,omitempty"`
}

func (c CupSize) Validate() error {
	if strings.TrimSpace(c.Name) == "" {
		return ErrNameRequired
	}
	if c.VolumeML <= 0 {
		return ErrInvalidVolume
	}
	if c.Surcharge.IsNegative() {
		return ErrNegativePrice
	}
	return nil
}

type DrinkIngredient struct {
	IngredientID int64 `json:"fruitId"`
	Quantity     int   `json:"quantity"`
}

// Drink is a predefined menu item. BasePrice, when set, overrides the
// price derived from its ingredients.
type Drink struct {
	ID            int64             `json:"id"`
	Name          string            `json:"name"`
	Description   string            `json:"description,omitempty"`
	ImageURL      string            `json:"imageUrl,omitempty"`
	Active        bool              `json:"isActive"`
	Ingredients   []DrinkIngredient `json:"ingredients"`
	BasePrice     *decimal.Decimal  `json:"basePrice,omitempty"`
	BasePriceUnit PriceUnit         `json:"basePriceUnit,omitempty"`
}

func (d Drink) Validate() error {
	if strings.TrimSpace(d.Name) == "" {
		return ErrNameRequired
	}
	if d.BasePrice != nil && d.BasePrice.IsNegative() {
		return ErrNegativePrice
	}
	if d.BasePrice == nil && len(d.Ingredients) == 0 {
		return ErrNoIngredients
	}
	for _, di := range d.Ingredients {
		if di.Quantity <= 0 {
			return ErrInvalidQuantity
		}
	}
	return nil
}
