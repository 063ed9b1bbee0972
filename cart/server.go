package cart

import (
	"context"
	"fmt"
	"net/url"

	"mrsmoothy/backend"
	"mrsmoothy/models"
)

const (
	pathCart      = "/api/cart"
	pathCartItems = "/api/cart/items"
)

// AddItemRequest is the body the backend expects when adding to a server
// cart. Prices are left to the backend.
type AddItemRequest struct {
	Type        models.LineItemType      `json:"itemType"`
	DrinkID     *int64                   `json:"productId,omitempty"`
	CupSizeID   int64                    `json:"cupSizeId"`
	Quantity    int                      `json:"quantity"`
	Ingredients []models.DrinkIngredient `json:"ingredients,omitempty"`
}

func AddItemRequestFrom(it models.CartItem) AddItemRequest {
	req := AddItemRequest{
		Type:      it.Type,
		DrinkID:   it.DrinkID,
		CupSizeID: it.CupSizeID,
		Quantity:  it.Quantity,
	}
	for _, ing := range it.Ingredients {
		req.Ingredients = append(req.Ingredients, models.DrinkIngredient{
			IngredientID: ing.IngredientID,
			Quantity:     ing.Quantity,
		})
	}
	return req
}

// Server is the signed-in shopper's cart, owned by the backend.
type Server struct {
	api *backend.Client
}

func NewServer(api *backend.Client) *Server {
	return &Server{api: api}
}

func (s *Server) Get(ctx context.Context, token string) (models.Cart, error) {
	var c models.Cart
	if err := s.api.Get(ctx, pathCart, token, &c); err != nil {
		return models.Cart{}, err
	}
	if c.Items == nil {
		c.Items = []models.CartItem{}
	}
	return c, nil
}

func (s *Server) Add(ctx context.Context, token string, req AddItemRequest) (models.Cart, error) {
	var c models.Cart
	if err := s.api.Post(ctx, pathCartItems, token, req, &c); err != nil {
		return models.Cart{}, err
	}
	return c, nil
}

func (s *Server) Remove(ctx context.Context, token, id string) error {
	return s.api.Delete(ctx, fmt.Sprintf("%s/%s", pathCartItems, url.PathEscape(id)), token)
}

func (s *Server) Clear(ctx context.Context, token string) error {
	return s.api.Delete(ctx, pathCart, token)
}
