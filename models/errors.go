package models

import "errors"

var (
	ErrNameRequired    = errors.New("name is required")
	ErrNegativePrice   = errors.New("price must not be negative")
	ErrMissingCategory = errors.New("category is required")
	ErrUnknownCategory = errors.New("category must be FRUIT, VEGETABLE or ADDON")
	ErrInvalidVolume   = errors.New("volume must be positive")
	ErrNoIngredients   = errors.New("at least one ingredient is required")
	ErrInvalidQuantity = errors.New("quantity must be positive")
	ErrDrinkRequired   = errors.New("predefined item needs a drink")
	ErrUnknownItemType = errors.New("item type must be PREDEFINED or CUSTOM")
	ErrUnknownStatus   = errors.New("unknown order status")
)
