package coinbase

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
)

const (
	pricingTypeFixed     = "fixed_price"
	maxDescriptionLength = 200
)

// ChargeItem is one order line shown in the charge description.
type ChargeItem struct {
	Title    string
	Quantity int
}

// ChargeInput carries the order data a charge is created from.
type ChargeInput struct {
	StoreName   string
	OrderID     string
	OrderNumber string
	CustomerID  string
	Email       string
	Total       decimal.Decimal
	Currency    string
	Items       []ChargeItem
	ReturnURL   string
	CancelURL   string
}

// LocalPrice is the fiat price of a charge.
type LocalPrice struct {
	Amount   string `json:"amount"`
	Currency string `json:"currency"`
}

// ChargeRequest is the body of the outbound charge creation call.
type ChargeRequest struct {
	Name        string            `json:"name"`
	Description string            `json:"description"`
	PricingType string            `json:"pricing_type"`
	LocalPrice  LocalPrice        `json:"local_price"`
	Metadata    map[string]string `json:"metadata"`
	RedirectURL string            `json:"redirect_url,omitempty"`
	CancelURL   string            `json:"cancel_url,omitempty"`
}

// ChargeResponse is the subset of the charge creation response the checkout needs.
type ChargeResponse struct {
	ID        string `json:"id"`
	Code      string `json:"code"`
	HostedURL string `json:"hosted_url"`
}

// NewChargeRequest builds the charge creation payload for an order.
// The order id placed in metadata is what notifications carry back.
func NewChargeRequest(in ChargeInput) ChargeRequest {
	titles := make([]string, 0, len(in.Items))
	for _, item := range in.Items {
		titles = append(titles, fmt.Sprintf("%s x %d", item.Title, item.Quantity))
	}

	metadata := map[string]string{
		MetadataSourceKey:   MetadataSourceValue,
		MetadataOrderIDKey:  in.OrderID,
		MetadataClientIDKey: in.CustomerID,
	}
	if in.Email != "" {
		metadata[MetadataEmailKey] = in.Email
	}

	return ChargeRequest{
		Name:        strings.TrimSpace(fmt.Sprintf("%s order #%s", in.StoreName, in.OrderNumber)),
		Description: truncateRunes(strings.Join(titles, ","), maxDescriptionLength),
		PricingType: pricingTypeFixed,
		LocalPrice: LocalPrice{
			Amount:   in.Total.StringFixed(2),
			Currency: in.Currency,
		},
		Metadata:    metadata,
		RedirectURL: in.ReturnURL,
		CancelURL:   in.CancelURL,
	}
}

func truncateRunes(s string, limit int) string {
	runes := []rune(s)
	if len(runes) <= limit {
		return s
	}
	return string(runes[:limit])
}
