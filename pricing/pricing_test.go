package pricing

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"mrsmoothy/models"
)

func d(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func idPtr(v int64) *int64 { return &v }

var (
	catalog = []models.Ingredient{
		{ID: 1, Name: "A", Price: d("10"), Category: models.CategoryFruit, Active: true},
		{ID: 2, Name: "B", Price: d("15"), Category: models.CategoryFruit, Active: true},
	}
	cups = []models.CupSize{
		{ID: 10, Name: "L", VolumeML: 700, Surcharge: d("8"), Active: true},
		{ID: 11, Name: "M", VolumeML: 500, Surcharge: d("5"), Active: true},
		{ID: 12, Name: "S", VolumeML: 300, Surcharge: d("0"), Active: false},
	}
	drink = models.Drink{
		Name: "Duo",
		Ingredients: []models.DrinkIngredient{
			{IngredientID: 1, Quantity: 2},
			{IngredientID: 2, Quantity: 1},
		},
	}
)

func TestPriceSumsIngredientsAndSurcharge(t *testing.T) {
	q, err := Calculator{}.Price(drink, catalog, cups, idPtr(11), 3)
	require.NoError(t, err)

	assert.True(t, q.UnitPrice.Equal(d("40")), q.UnitPrice.String())
	assert.True(t, q.TotalPrice.Equal(d("120")), q.TotalPrice.String())
	require.Len(t, q.Lines, 2)
	assert.True(t, q.Lines[0].UnitPrice.Equal(d("10")))
}

func TestPriceIsDeterministic(t *testing.T) {
	first, err := Calculator{}.Price(drink, catalog, cups, nil, 2)
	require.NoError(t, err)
	for i := 0; i < 10; i++ {
		again, err := Calculator{}.Price(drink, catalog, cups, nil, 2)
		require.NoError(t, err)
		assert.True(t, first.UnitPrice.Equal(again.UnitPrice))
	}
}

func TestBasePriceOverridesIngredients(t *testing.T) {
	base := d("25")
	override := drink
	override.BasePrice = &base

	q, err := Calculator{}.Price(override, catalog, cups, idPtr(11), 1)
	require.NoError(t, err)
	assert.True(t, q.UnitPrice.Equal(d("30")), q.UnitPrice.String())
	assert.Empty(t, q.Lines)

	// Changing the ingredient catalog must not move the price.
	q2, err := Calculator{}.Price(override, nil, cups, idPtr(11), 1)
	require.NoError(t, err)
	assert.True(t, q.UnitPrice.Equal(q2.UnitPrice))
}

func TestMissingIngredientContributesZero(t *testing.T) {
	withGhost := models.Drink{Ingredients: []models.DrinkIngredient{
		{IngredientID: 1, Quantity: 1},
		{IngredientID: 99, Quantity: 4},
	}}
	q, err := Calculator{}.Price(withGhost, catalog, cups, idPtr(11), 1)
	require.NoError(t, err)
	assert.True(t, q.UnitPrice.Equal(d("15")), q.UnitPrice.String())
	assert.Len(t, q.Lines, 1)
}

func TestDefaultCupIsSmallestActive(t *testing.T) {
	q, err := Calculator{}.Price(drink, catalog, cups, nil, 1)
	require.NoError(t, err)
	assert.Equal(t, int64(11), q.CupSize.ID)
}

func TestDefaultCupTieBreaksOnSurcharge(t *testing.T) {
	tied := []models.CupSize{
		{ID: 1, VolumeML: 500, Surcharge: d("6"), Active: true},
		{ID: 2, VolumeML: 500, Surcharge: d("4"), Active: true},
	}
	c, ok := DefaultCupSize(tied)
	require.True(t, ok)
	assert.Equal(t, int64(2), c.ID)
}

func TestCupErrors(t *testing.T) {
	_, err := Calculator{}.Price(drink, catalog, cups, idPtr(404), 1)
	assert.ErrorIs(t, err, ErrCupSizeNotFound)

	_, err = Calculator{}.Price(drink, catalog, []models.CupSize{{ID: 1, Active: false}}, nil, 1)
	assert.ErrorIs(t, err, ErrNoCupSize)
}

func TestQuantityMustBePositive(t *testing.T) {
	_, err := Calculator{}.Price(drink, catalog, cups, nil, 0)
	assert.ErrorIs(t, err, models.ErrInvalidQuantity)
}

func TestMinorUnitIngredientsAreScaled(t *testing.T) {
	cents := []models.Ingredient{
		{ID: 1, Price: d("1000"), PriceUnit: models.PriceUnitMinor, Category: models.CategoryFruit},
		{ID: 2, Price: d("1500"), PriceUnit: models.PriceUnitMinor, Category: models.CategoryFruit},
	}
	q, err := Calculator{}.Price(drink, cents, cups, idPtr(11), 1)
	require.NoError(t, err)
	assert.True(t, q.UnitPrice.Equal(d("40")), q.UnitPrice.String())
}

func TestLegacyHeuristic(t *testing.T) {
	untagged := []models.Ingredient{
		{ID: 1, Price: d("1000"), Category: models.CategoryFruit},
		{ID: 2, Price: d("1500"), Category: models.CategoryFruit},
	}

	off, err := Calculator{}.Price(drink, untagged, cups, idPtr(11), 1)
	require.NoError(t, err)
	assert.True(t, off.UnitPrice.Equal(d("3505")), off.UnitPrice.String())

	on, err := Calculator{LegacyMinorUnitHeuristic: true}.Price(drink, untagged, cups, idPtr(11), 1)
	require.NoError(t, err)
	assert.True(t, on.UnitPrice.Equal(d("40")), on.UnitPrice.String())
}

func TestFormat(t *testing.T) {
	assert.Equal(t, "40.00", Format(d("40")))
	assert.Equal(t, "0.30", Format(d("0.1").Add(d("0.2"))))
}
