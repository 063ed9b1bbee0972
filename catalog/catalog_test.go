package catalog

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"mrsmoothy/backend"
)

func newCatalog(t *testing.T, routes map[string]string) *Catalog {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, ok := routes[r.URL.Path]
		if !ok {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		w.Write([]byte(body))
	}))
	t.Cleanup(srv.Close)

	api, err := backend.New(srv.URL, time.Second, zap.NewNop())
	require.NoError(t, err)
	return New(api, zap.NewNop())
}

func TestIngredientsDropsRowsWithoutCategory(t *testing.T) {
	c := newCatalog(t, map[string]string{
		"/api/fruits": `{"success":true,"data":[
			{"id":1,"name":"Mango","pricePerUnit":10,"category":"FRUIT","isActive":true,"imageUrl":"uploads/mango.png"},
			{"id":2,"name":"Mystery","pricePerUnit":4,"isActive":true}
		]}`,
	})

	ings, err := c.Ingredients(context.Background())
	require.NoError(t, err)
	require.Len(t, ings, 1)
	assert.Equal(t, "Mango", ings[0].Name)
	assert.Contains(t, ings[0].ImageURL, "/uploads/mango.png")
	assert.Contains(t, ings[0].ImageURL, "http://")
}

func TestDrinkLookup(t *testing.T) {
	c := newCatalog(t, map[string]string{
		"/api/drinks": `{"success":true,"data":[
			{"id":5,"name":"Green Glow","isActive":true,"ingredients":[{"fruitId":1,"quantity":2}]}
		]}`,
	})

	d, err := c.Drink(context.Background(), 5)
	require.NoError(t, err)
	assert.Equal(t, "Green Glow", d.Name)

	_, err = c.Drink(context.Background(), 6)
	assert.ErrorIs(t, err, ErrDrinkNotFound)
}

func TestPricingSnapshotPropagatesErrors(t *testing.T) {
	c := newCatalog(t, map[string]string{
		"/api/fruits": `{"success":true,"data":[]}`,
	})
	_, err := c.PricingSnapshot(context.Background())
	assert.ErrorIs(t, err, backend.ErrNotFound)
}

func TestNutrition(t *testing.T) {
	c := newCatalog(t, map[string]string{
		"/api/nutrition": `{"success":true,"data":{"calories":60,"protein":0.8,"fiber":1.6}}`,
	})
	n, err := c.Nutrition(context.Background(), "mango")
	require.NoError(t, err)
	require.NotNil(t, n.Calories)
	assert.InDelta(t, 60, *n.Calories, 0.001)
}
