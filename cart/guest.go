// Package cart holds the guest cart kept in session storage and the thin
// client over the backend's server cart.
package cart

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"mrsmoothy/events"
	"mrsmoothy/models"
	"mrsmoothy/session"
)

// GuestStore is the cart of a shopper who has not signed in. The total is
// always recomputed from the items; whatever total was stored is ignored.
type GuestStore struct {
	mu     sync.Mutex
	store  session.Storage
	bus    *events.Bus
	logger *zap.Logger

	now   func() time.Time
	newID func() string
}

func NewGuestStore(store session.Storage, bus *events.Bus, logger *zap.Logger) *GuestStore {
	return &GuestStore{
		store:  store,
		bus:    bus,
		logger: logger,
		now:    func() time.Time { return time.Now().UTC() },
		newID:  func() string { return uuid.New().String() },
	}
}

// Read returns the cart for sid. Missing or unreadable data is an empty
// cart.
func (g *GuestStore) Read(ctx context.Context, sid string) models.Cart {
	c := g.load(ctx, sid)
	c.Recompute()
	return c
}

// Add appends item with a fresh id and timestamp.
func (g *GuestStore) Add(ctx context.Context, sid string, item models.CartItem) (models.Cart, error) {
	if err := item.Validate(); err != nil {
		return models.Cart{}, err
	}
	return g.mutate(ctx, sid, func(c *models.Cart) {
		item.ID = g.newID()
		item.CreatedAt = g.now()
		c.Items = append(c.Items, item)
	})
}

// Remove drops the item with the given id. Unknown ids are ignored.
func (g *GuestStore) Remove(ctx context.Context, sid, id string) (models.Cart, error) {
	return g.RemoveMany(ctx, sid, id)
}

func (g *GuestStore) RemoveMany(ctx context.Context, sid string, ids ...string) (models.Cart, error) {
	drop := make(map[string]struct{}, len(ids))
	for _, id := range ids {
		drop[id] = struct{}{}
	}
	return g.mutate(ctx, sid, func(c *models.Cart) {
		kept := c.Items[:0]
		for _, it := range c.Items {
			if _, ok := drop[it.ID]; !ok {
				kept = append(kept, it)
			}
		}
		c.Items = kept
	})
}

func (g *GuestStore) Clear(ctx context.Context, sid string) (models.Cart, error) {
	return g.mutate(ctx, sid, func(c *models.Cart) {
		c.Items = nil
	})
}

func (g *GuestStore) mutate(ctx context.Context, sid string, fn func(*models.Cart)) (models.Cart, error) {
	g.mu.Lock()
	c := g.load(ctx, sid)
	fn(&c)
	if c.Items == nil {
		c.Items = []models.CartItem{}
	}
	c.Recompute()
	err := g.save(ctx, sid, c)
	g.mu.Unlock()
	if err != nil {
		return models.Cart{}, err
	}

	g.bus.Publish(ctx, events.Event{
		Topic:     events.TopicCartUpdated,
		SessionID: sid,
		Payload:   events.CartUpdated{Count: c.Count(), TotalPrice: c.TotalPrice},
	})
	return c, nil
}

func (g *GuestStore) load(ctx context.Context, sid string) models.Cart {
	empty := models.Cart{Items: []models.CartItem{}}
	b, err := g.store.Get(ctx, sid, session.KeyGuestCart)
	if err != nil {
		if !errors.Is(err, session.ErrNotFound) {
			g.logger.Warn("guest cart read failed", zap.Error(err))
		}
		return empty
	}
	var c models.Cart
	if err := json.Unmarshal(b, &c); err != nil {
		g.logger.Warn("discarding unparseable guest cart", zap.Error(err))
		return empty
	}
	if c.Items == nil {
		c.Items = []models.CartItem{}
	}
	return c
}

func (g *GuestStore) save(ctx context.Context, sid string, c models.Cart) error {
	b, err := json.Marshal(c)
	if err != nil {
		return fmt.Errorf("encode guest cart: %w", err)
	}
	if err := g.store.Set(ctx, sid, session.KeyGuestCart, b); err != nil {
		return fmt.Errorf("save guest cart: %w", err)
	}
	return nil
}
