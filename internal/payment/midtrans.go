// Package payment creates hosted-checkout orders on Midtrans Snap and
// verifies the HTTP notifications Midtrans sends back.
package payment

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	midtrans "github.com/midtrans/midtrans-go"
	"github.com/midtrans/midtrans-go/snap"
)

// orderSep separates the ticket number from the per-attempt suffix in an
// order id.  Midtrans refuses to reuse an order id, so every retry gets a
// fresh one.
const orderSep = "~"

// Item is one order line, priced in the gateway's amount unit.
type Item struct {
	ID    string
	Name  string
	Price int64
	Qty   int32
}

// Order describes a checkout for one registration.
type Order struct {
	TicketNumber string
	Items        []Item
	CustomerName string
	Email        string
	Phone        string
}

// Gross is the sum of the item lines.
func (o Order) Gross() int64 {
	var total int64
	for _, it := range o.Items {
		total += it.Price * int64(it.Qty)
	}
	return total
}

// OrderHandle is what the registrant needs to complete payment.
type OrderHandle struct {
	OrderID     string `json:"order_id"`
	Token       string `json:"token"`
	RedirectURL string `json:"redirect_url"`
}

// MidtransGateway creates Snap transactions.
type MidtransGateway struct {
	client snap.Client
}

// NewMidtransGateway returns a gateway for the sandbox or production
// environment.
func NewMidtransGateway(serverKey string, production bool) *MidtransGateway {
	g := &MidtransGateway{}
	if production {
		g.client.New(serverKey, midtrans.Production)
	} else {
		g.client.New(serverKey, midtrans.Sandbox)
	}
	return g
}

// CreateOrder opens a Snap transaction for the order.
func (g *MidtransGateway) CreateOrder(ctx context.Context, o Order) (*OrderHandle, error) {
	gross := o.Gross()
	if gross <= 0 {
		return nil, errors.New("payment: order amount must be positive")
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	orderID := NewOrderID(o.TicketNumber)

	items := make([]midtrans.ItemDetails, 0, len(o.Items))
	for _, it := range o.Items {
		items = append(items, midtrans.ItemDetails{
			ID:    it.ID,
			Name:  truncate(it.Name, 50),
			Price: it.Price,
			Qty:   it.Qty,
		})
	}
	req := &snap.Request{
		TransactionDetails: midtrans.TransactionDetails{
			OrderID:  orderID,
			GrossAmt: gross,
		},
		CustomerDetail: &midtrans.CustomerDetails{
			FName: truncate(o.CustomerName, 50),
			Email: o.Email,
			Phone: o.Phone,
		},
		Items:        &items,
		CustomField1: o.TicketNumber,
	}

	resp, merr := g.client.CreateTransaction(req)
	if merr != nil {
		return nil, fmt.Errorf("payment: midtrans: %s", merr.Error())
	}
	return &OrderHandle{OrderID: orderID, Token: resp.Token, RedirectURL: resp.RedirectURL}, nil
}

// NewOrderID returns a fresh order id for the ticket.
func NewOrderID(ticket string) string {
	return ticket + orderSep + strings.ReplaceAll(uuid.NewString(), "-", "")[:8]
}

// TicketFromOrderID recovers the ticket number from an order id.
func TicketFromOrderID(orderID string) string {
	ticket, _, _ := strings.Cut(orderID, orderSep)
	return ticket
}

func truncate(s string, n int) string {
	if n <= 0 || len(s) <= n {
		return s
	}
	return s[:n]
}
