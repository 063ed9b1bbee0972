package cart

import (
	"context"

	"go.uber.org/zap"

	"mrsmoothy/models"
)

// ItemAdder is the part of the server cart migration needs.
type ItemAdder interface {
	Add(ctx context.Context, token string, req AddItemRequest) (models.Cart, error)
}

// MigrateToServer moves the guest cart into the signed-in shopper's server
// cart one item at a time, in order. It stops at the first failure; items
// already moved are removed from the guest cart and the rest stay put.
func (g *GuestStore) MigrateToServer(ctx context.Context, sid, token string, server ItemAdder) (int, error) {
	guest := g.Read(ctx, sid)
	if len(guest.Items) == 0 {
		return 0, nil
	}

	var moved []string
	var failure error
	for _, it := range guest.Items {
		if _, err := server.Add(ctx, token, AddItemRequestFrom(it)); err != nil {
			g.logger.Warn("guest cart migration stopped",
				zap.String("item_id", it.ID),
				zap.Int("migrated", len(moved)),
				zap.Error(err))
			failure = err
			break
		}
		moved = append(moved, it.ID)
	}

	if len(moved) > 0 {
		if _, err := g.RemoveMany(ctx, sid, moved...); err != nil {
			return len(moved), err
		}
	}
	return len(moved), failure
}
