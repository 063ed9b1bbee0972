package models

import (
	"encoding/json"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIngredientMissingCategoryIsInvalid(t *testing.T) {
	var ing Ingredient
	require.NoError(t, json.Unmarshal([]byte(`{"id":1,"name":"Mango","pricePerUnit":12.5}`), &ing))

	assert.ErrorIs(t, ing.Validate(), ErrMissingCategory)
}

func TestIngredientCategoryIsNormalized(t *testing.T) {
	var ing Ingredient
	require.NoError(t, json.Unmarshal([]byte(`{"id":1,"name":"Kale","pricePerUnit":3,"category":"vegetable"}`), &ing))

	assert.Equal(t, CategoryVegetable, ing.Category)
	assert.NoError(t, ing.Validate())
}

func TestParseCategory(t *testing.T) {
	c, err := ParseCategory(" addon ")
	require.NoError(t, err)
	assert.Equal(t, CategoryAddon, c)

	_, err = ParseCategory("DAIRY")
	assert.ErrorIs(t, err, ErrUnknownCategory)
}

func TestMinorUnitPriceIsScaled(t *testing.T) {
	ing := Ingredient{Price: decimal.NewFromInt(1250), PriceUnit: PriceUnitMinor}
	assert.True(t, ing.UnitPrice().Equal(decimal.RequireFromString("12.5")))
}

func TestOrderWithoutStatusDisplaysPending(t *testing.T) {
	var o Order
	require.NoError(t, json.Unmarshal([]byte(`{"id":7,"totalPrice":40}`), &o))
	assert.Equal(t, OrderPending, o.Status.Display())

	b, err := json.Marshal(o)
	require.NoError(t, err)
	assert.Contains(t, string(b), `"status":"PENDING"`)
}

func TestCartRecompute(t *testing.T) {
	c := Cart{
		Items: []CartItem{
			{TotalPrice: decimal.NewFromInt(120)},
			{TotalPrice: decimal.RequireFromString("35.5")},
		},
		TotalPrice: decimal.NewFromInt(9999),
	}
	c.Recompute()
	assert.True(t, c.TotalPrice.Equal(decimal.RequireFromString("155.5")))
}

func TestCartItemValidate(t *testing.T) {
	id := int64(3)
	assert.NoError(t, CartItem{Type: LineItemPredefined, DrinkID: &id, Quantity: 1}.Validate())
	assert.ErrorIs(t, CartItem{Type: LineItemPredefined, Quantity: 1}.Validate(), ErrDrinkRequired)
	assert.ErrorIs(t, CartItem{Type: LineItemCustom, Quantity: 1}.Validate(), ErrNoIngredients)
	assert.ErrorIs(t, CartItem{Type: LineItemCustom, Quantity: 0}.Validate(), ErrInvalidQuantity)
	assert.ErrorIs(t, CartItem{Type: "OTHER", Quantity: 1}.Validate(), ErrUnknownItemType)
}
