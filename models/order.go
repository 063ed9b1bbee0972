package models

import (
	"encoding/json"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

type OrderStatus string

const (
	OrderPending   OrderStatus = "PENDING"
	OrderConfirmed OrderStatus = "CONFIRMED"
	OrderPreparing OrderStatus = "PREPARING"
	OrderReady     OrderStatus = "READY"
	OrderCompleted OrderStatus = "COMPLETED"
	OrderCancelled OrderStatus = "CANCELLED"
)

func ParseOrderStatus(s string) (OrderStatus, error) {
	st := OrderStatus(strings.ToUpper(strings.TrimSpace(s)))
	switch st {
	case OrderPending, OrderConfirmed, OrderPreparing, OrderReady, OrderCompleted, OrderCancelled:
		return st, nil
	}
	return "", ErrUnknownStatus
}

// Display returns the status shown to users; an order the backend returned
// without a status is pending.
func (s OrderStatus) Display() OrderStatus {
	if s == "" {
		return OrderPending
	}
	return s
}

type OrderItem struct {
	ID          int64              `json:"id,omitempty"`
	Type        LineItemType       `json:"itemType"`
	DrinkID     *int64             `json:"productId,omitempty"`
	DrinkName   string             `json:"productName,omitempty"`
	CupSizeID   int64              `json:"cupSizeId"`
	CupSizeName string             `json:"cupSizeName,omitempty"`
	Quantity    int                `json:"quantity"`
	Ingredients []CustomIngredient `json:"ingredients,omitempty"`
	UnitPrice   decimal.Decimal    `json:"unitPrice"`
	TotalPrice  decimal.Decimal    `json:"totalPrice"`
}

// Customer identifies who placed an order: either an account or a guest.
type Customer struct {
	UserID     *int64 `json:"userId,omitempty"`
	Username   string `json:"username,omitempty"`
	FullName   string `json:"fullName,omitempty"`
	GuestName  string `json:"guestName,omitempty"`
	GuestEmail string `json:"guestEmail,omitempty"`
}

func (c Customer) IsGuest() bool { return c.UserID == nil }

// Order is a snapshot taken at checkout. Only Status changes afterwards.
type Order struct {
	ID         int64           `json:"id"`
	Items      []OrderItem     `json:"items"`
	TotalPrice decimal.Decimal `json:"totalPrice"`
	Status     OrderStatus     `json:"status"`
	PickupTime string          `json:"pickupTime"`
	Phone      string          `json:"phoneNumber"`
	Notes      string          `json:"notes,omitempty"`
	Customer
	CreatedAt time.Time `json:"createdAt"`
}

// MarshalJSON reports the display status so clients never see an empty one.
func (o Order) MarshalJSON() ([]byte, error) {
	type plain Order
	p := plain(o)
	p.Status = o.Status.Display()
	return json.Marshal(p)
}

// OrderRequest is the checkout payload sent to the backend. Items is only
// set for guest orders; account orders are built from the server cart.
type OrderRequest struct {
	PickupTime string           `json:"pickupTime"`
	Phone      string           `json:"phoneNumber"`
	Notes      string           `json:"notes,omitempty"`
	GuestName  string           `json:"guestName,omitempty"`
	GuestEmail string           `json:"guestEmail,omitempty"`
	Items      []OrderItem      `json:"items,omitempty"`
	TotalPrice *decimal.Decimal `json:"totalPrice,omitempty"`
}

type StatusUpdate struct {
	Status OrderStatus `json:"status"`
}

// OrderItemFromCart snapshots a cart line for an order request.
func OrderItemFromCart(it CartItem) OrderItem {
	return OrderItem{
		Type:        it.Type,
		DrinkID:     it.DrinkID,
		DrinkName:   it.DrinkName,
		CupSizeID:   it.CupSizeID,
		CupSizeName: it.CupSizeName,
		Quantity:    it.Quantity,
		Ingredients: it.Ingredients,
		UnitPrice:   it.UnitPrice,
		TotalPrice:  it.TotalPrice,
	}
}
