// Package admin is the back office: validated create, update and delete for
// the menu, the order queue and image uploads. Every call carries the
// admin's backend token; the backend makes the authorization decision.
package admin

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"path"
	"strings"

	"go.uber.org/zap"

	"mrsmoothy/backend"
	"mrsmoothy/models"
)

var (
	ErrUnsupportedImage = errors.New("only jpg, png, gif and webp images can be uploaded")
	ErrInvalidID        = errors.New("id must be positive")
)

type validator interface {
	Validate() error
}

// entity is one CRUD collection: read through the public list, written
// through the admin endpoints.
type entity[T validator] struct {
	name      string
	listPath  string
	adminPath string
}

var (
	ingredients = entity[models.Ingredient]{name: "ingredient", listPath: "/api/fruits", adminPath: "/api/admin/fruits"}
	drinks      = entity[models.Drink]{name: "drink", listPath: "/api/drinks", adminPath: "/api/admin/drinks"}
	cupSizes    = entity[models.CupSize]{name: "cup size", listPath: "/api/cup-sizes", adminPath: "/api/admin/cup-sizes"}
)

func (e entity[T]) list(ctx context.Context, api *backend.Client, token string) ([]T, error) {
	var out []T
	if err := api.Get(ctx, e.listPath, token, &out); err != nil {
		return nil, err
	}
	if out == nil {
		out = []T{}
	}
	return out, nil
}

func (e entity[T]) create(ctx context.Context, api *backend.Client, token string, v T) ([]T, error) {
	if err := v.Validate(); err != nil {
		return nil, err
	}
	if err := api.Post(ctx, e.adminPath, token, v, nil); err != nil {
		return nil, err
	}
	return e.list(ctx, api, token)
}

func (e entity[T]) update(ctx context.Context, api *backend.Client, token string, id int64, v T) ([]T, error) {
	if id <= 0 {
		return nil, ErrInvalidID
	}
	if err := v.Validate(); err != nil {
		return nil, err
	}
	if err := api.Put(ctx, fmt.Sprintf("%s/%d", e.adminPath, id), token, v, nil); err != nil {
		return nil, err
	}
	return e.list(ctx, api, token)
}

func (e entity[T]) remove(ctx context.Context, api *backend.Client, token string, id int64) ([]T, error) {
	if id <= 0 {
		return nil, ErrInvalidID
	}
	if err := api.Delete(ctx, fmt.Sprintf("%s/%d", e.adminPath, id), token); err != nil {
		return nil, err
	}
	return e.list(ctx, api, token)
}

type Service struct {
	api    *backend.Client
	logger *zap.Logger
}

func New(api *backend.Client, logger *zap.Logger) *Service {
	return &Service{api: api, logger: logger}
}

// Ingredients lists every ingredient as the backend stores it, including
// rows the storefront menu hides, so they can be fixed here.
func (s *Service) Ingredients(ctx context.Context, token string) ([]models.Ingredient, error) {
	return ingredients.list(ctx, s.api, token)
}

func (s *Service) CreateIngredient(ctx context.Context, token string, in models.Ingredient) ([]models.Ingredient, error) {
	s.audit("create", ingredients.name, 0)
	return ingredients.create(ctx, s.api, token, in)
}

func (s *Service) UpdateIngredient(ctx context.Context, token string, id int64, in models.Ingredient) ([]models.Ingredient, error) {
	s.audit("update", ingredients.name, id)
	return ingredients.update(ctx, s.api, token, id, in)
}

func (s *Service) DeleteIngredient(ctx context.Context, token string, id int64) ([]models.Ingredient, error) {
	s.audit("delete", ingredients.name, id)
	return ingredients.remove(ctx, s.api, token, id)
}

func (s *Service) Drinks(ctx context.Context, token string) ([]models.Drink, error) {
	return drinks.list(ctx, s.api, token)
}

func (s *Service) CreateDrink(ctx context.Context, token string, in models.Drink) ([]models.Drink, error) {
	s.audit("create", drinks.name, 0)
	return drinks.create(ctx, s.api, token, in)
}

func (s *Service) UpdateDrink(ctx context.Context, token string, id int64, in models.Drink) ([]models.Drink, error) {
	s.audit("update", drinks.name, id)
	return drinks.update(ctx, s.api, token, id, in)
}

func (s *Service) DeleteDrink(ctx context.Context, token string, id int64) ([]models.Drink, error) {
	s.audit("delete", drinks.name, id)
	return drinks.remove(ctx, s.api, token, id)
}

func (s *Service) CupSizes(ctx context.Context, token string) ([]models.CupSize, error) {
	return cupSizes.list(ctx, s.api, token)
}

func (s *Service) CreateCupSize(ctx context.Context, token string, in models.CupSize) ([]models.CupSize, error) {
	s.audit("create", cupSizes.name, 0)
	return cupSizes.create(ctx, s.api, token, in)
}

func (s *Service) UpdateCupSize(ctx context.Context, token string, id int64, in models.CupSize) ([]models.CupSize, error) {
	s.audit("update", cupSizes.name, id)
	return cupSizes.update(ctx, s.api, token, id, in)
}

func (s *Service) DeleteCupSize(ctx context.Context, token string, id int64) ([]models.CupSize, error) {
	s.audit("delete", cupSizes.name, id)
	return cupSizes.remove(ctx, s.api, token, id)
}

func (s *Service) Orders(ctx context.Context, token string) ([]models.Order, error) {
	var out []models.Order
	if err := s.api.Get(ctx, "/api/admin/orders", token, &out); err != nil {
		return nil, err
	}
	if out == nil {
		out = []models.Order{}
	}
	return out, nil
}

// UpdateOrderStatus moves an order to status. Only known values are sent;
// whether the move is allowed is the backend's call.
func (s *Service) UpdateOrderStatus(ctx context.Context, token string, id int64, status string) (*models.Order, error) {
	if id <= 0 {
		return nil, ErrInvalidID
	}
	st, err := models.ParseOrderStatus(status)
	if err != nil {
		return nil, err
	}
	s.audit("status:"+string(st), "order", id)

	var out models.Order
	if err := s.api.Put(ctx, fmt.Sprintf("/api/admin/orders/%d/status", id), token, models.StatusUpdate{Status: st}, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

var imageExts = map[string]bool{".jpg": true, ".jpeg": true, ".png": true, ".gif": true, ".webp": true}

// UploadImage sends an image to the backend and returns its absolute URL.
func (s *Service) UploadImage(ctx context.Context, token, filename string, file io.Reader) (string, error) {
	if !imageExts[strings.ToLower(path.Ext(filename))] {
		return "", ErrUnsupportedImage
	}
	var raw json.RawMessage
	if err := s.api.Upload(ctx, "/api/admin/upload", token, "file", filename, file, &raw); err != nil {
		return "", err
	}

	// The backend answers with either the path itself or {"url": path}.
	var p string
	if err := json.Unmarshal(raw, &p); err != nil {
		var obj struct {
			URL string `json:"url"`
		}
		if err := json.Unmarshal(raw, &obj); err != nil {
			return "", &backend.Error{Kind: backend.KindDecode, Err: err}
		}
		p = obj.URL
	}
	return s.api.ResolveURL(p), nil
}

func (s *Service) audit(action, entity string, id int64) {
	s.logger.Info("admin mutation",
		zap.String("action", action),
		zap.String("entity", entity),
		zap.Int64("id", id))
}
