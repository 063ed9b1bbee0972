// Package catalog fetches the public menu from the backend: ingredients,
// cup sizes and predefined drinks.
package catalog

import (
	"context"
	"net/url"

	"go.uber.org/zap"

	"mrsmoothy/backend"
	"mrsmoothy/models"
)

const (
	pathFruits    = "/api/fruits"
	pathSeasonal  = "/api/fruits/seasonal"
	pathCupSizes  = "/api/cup-sizes"
	pathDrinks    = "/api/drinks"
	pathNutrition = "/api/nutrition"
)

type Catalog struct {
	api    *backend.Client
	logger *zap.Logger
}

func New(api *backend.Client, logger *zap.Logger) *Catalog {
	return &Catalog{api: api, logger: logger}
}

// Ingredients returns every ingredient with a valid category. Rows the
// backend sends without one are dropped and logged, not defaulted.
func (c *Catalog) Ingredients(ctx context.Context) ([]models.Ingredient, error) {
	var all []models.Ingredient
	if err := c.api.Get(ctx, pathFruits, "", &all); err != nil {
		return nil, err
	}
	return c.validIngredients(all), nil
}

func (c *Catalog) SeasonalIngredients(ctx context.Context) ([]models.Ingredient, error) {
	var all []models.Ingredient
	if err := c.api.Get(ctx, pathSeasonal, "", &all); err != nil {
		return nil, err
	}
	return c.validIngredients(all), nil
}

func (c *Catalog) CupSizes(ctx context.Context) ([]models.CupSize, error) {
	var sizes []models.CupSize
	if err := c.api.Get(ctx, pathCupSizes, "", &sizes); err != nil {
		return nil, err
	}
	return sizes, nil
}

func (c *Catalog) Drinks(ctx context.Context) ([]models.Drink, error) {
	var drinks []models.Drink
	if err := c.api.Get(ctx, pathDrinks, "", &drinks); err != nil {
		return nil, err
	}
	for i := range drinks {
		drinks[i].ImageURL = c.api.ResolveURL(drinks[i].ImageURL)
	}
	return drinks, nil
}

// Drink finds one drink by id among the active menu.
func (c *Catalog) Drink(ctx context.Context, id int64) (*models.Drink, error) {
	drinks, err := c.Drinks(ctx)
	if err != nil {
		return nil, err
	}
	for i := range drinks {
		if drinks[i].ID == id {
			return &drinks[i], nil
		}
	}
	return nil, ErrDrinkNotFound
}

// Nutrition asks the backend to look up nutrition facts for a name.
func (c *Catalog) Nutrition(ctx context.Context, name string) (*models.Nutrition, error) {
	var n models.Nutrition
	if err := c.api.Get(ctx, pathNutrition+"?name="+url.QueryEscape(name), "", &n); err != nil {
		return nil, err
	}
	return &n, nil
}

// Snapshot is everything the price calculator needs.
type Snapshot struct {
	Ingredients []models.Ingredient
	CupSizes    []models.CupSize
}

func (c *Catalog) PricingSnapshot(ctx context.Context) (*Snapshot, error) {
	ings, err := c.Ingredients(ctx)
	if err != nil {
		return nil, err
	}
	cups, err := c.CupSizes(ctx)
	if err != nil {
		return nil, err
	}
	return &Snapshot{Ingredients: ings, CupSizes: cups}, nil
}

func (c *Catalog) validIngredients(all []models.Ingredient) []models.Ingredient {
	out := make([]models.Ingredient, 0, len(all))
	for _, ing := range all {
		if err := ing.Validate(); err != nil {
			c.logger.Warn("dropping invalid ingredient from catalog",
				zap.Int64("id", ing.ID),
				zap.String("name", ing.Name),
				zap.Error(err))
			continue
		}
		ing.ImageURL = c.api.ResolveURL(ing.ImageURL)
		out = append(out, ing)
	}
	return out
}
