// Package builder holds the ingredient selection of a custom drink and
// enforces the per-drink unit cap before anything is priced.
package builder

import (
	"errors"
	"fmt"

	"mrsmoothy/models"
)

// MaxUnits is the most ingredient units one custom drink may hold.
const MaxUnits = 5

var (
	ErrTooManyUnits = fmt.Errorf("a custom drink holds at most %d ingredient units", MaxUnits)
	ErrEmpty        = errors.New("pick at least one ingredient")
)

// Selection is an ordered set of ingredient quantities. The zero value is
// an empty selection.
type Selection struct {
	order []int64
	qty   map[int64]int
}

// FromIngredients builds a selection from a client-submitted list, merging
// repeated ids. Non-positive quantities are rejected.
func FromIngredients(items []models.DrinkIngredient) (*Selection, error) {
	s := &Selection{}
	for _, it := range items {
		if it.Quantity <= 0 {
			return nil, models.ErrInvalidQuantity
		}
		if err := s.AddN(it.IngredientID, it.Quantity); err != nil {
			return nil, err
		}
	}
	return s, nil
}

// Add puts one more unit of an ingredient in the drink.
func (s *Selection) Add(id int64) error { return s.AddN(id, 1) }

func (s *Selection) AddN(id int64, n int) error {
	if n <= 0 {
		return models.ErrInvalidQuantity
	}
	if s.Units()+n > MaxUnits {
		return ErrTooManyUnits
	}
	if s.qty == nil {
		s.qty = make(map[int64]int)
	}
	if _, ok := s.qty[id]; !ok {
		s.order = append(s.order, id)
	}
	s.qty[id] += n
	return nil
}

// Remove takes one unit out. Dropping the last unit drops the ingredient.
func (s *Selection) Remove(id int64) {
	q, ok := s.qty[id]
	if !ok {
		return
	}
	if q > 1 {
		s.qty[id] = q - 1
		return
	}
	delete(s.qty, id)
	for i, v := range s.order {
		if v == id {
			s.order = append(s.order[:i], s.order[i+1:]...)
			break
		}
	}
}

func (s *Selection) Quantity(id int64) int { return s.qty[id] }

// Units is the total number of ingredient units selected.
func (s *Selection) Units() int {
	n := 0
	for _, q := range s.qty {
		n += q
	}
	return n
}

func (s *Selection) Ingredients() []models.DrinkIngredient {
	out := make([]models.DrinkIngredient, 0, len(s.order))
	for _, id := range s.order {
		out = append(out, models.DrinkIngredient{IngredientID: id, Quantity: s.qty[id]})
	}
	return out
}

// Drink turns the selection into a drink definition the price calculator
// understands.
func (s *Selection) Drink() (models.Drink, error) {
	if s.Units() == 0 {
		return models.Drink{}, ErrEmpty
	}
	return models.Drink{Name: "Custom", Ingredients: s.Ingredients()}, nil
}
