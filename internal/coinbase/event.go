package coinbase

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"
)

// Variant selects how a notification is read and interpreted.
type Variant string

const (
	// VariantEvent drives reconciliation from the event type ("charge:confirmed", ...).
	VariantEvent Variant = "event"
	// VariantTimeline drives reconciliation from the last charge timeline entry.
	VariantTimeline Variant = "timeline"
)

// Valid reports whether v names a supported variant.
func (v Variant) Valid() bool {
	return v == VariantEvent || v == VariantTimeline
}

// Metadata keys attached to a charge at creation time.
const (
	MetadataOrderIDKey  = "order_id"
	MetadataClientIDKey = "client_id"
	MetadataEmailKey    = "email"
	MetadataSourceKey   = "source"
	MetadataSourceValue = "coinbridge"
)

var (
	// ErrMalformedPayload is returned for bodies that are not a usable notification.
	ErrMalformedPayload = errors.New("malformed webhook payload")
	// ErrMissingOrderID is returned when the charge metadata carries no order id.
	ErrMissingOrderID = fmt.Errorf("%w: metadata order id missing", ErrMalformedPayload)
)

// Amount is a decimal string as sent by the provider; numeric JSON is accepted too.
type Amount string

func (a *Amount) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if bytes.Equal(data, []byte("null")) {
		*a = ""
		return nil
	}
	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*a = Amount(strings.TrimSpace(s))
		return nil
	}
	*a = Amount(data)
	return nil
}

// Money is an amount in a currency.
type Money struct {
	Amount   Amount `json:"amount"`
	Currency string `json:"currency"`
}

// PaymentValue holds the local-fiat and crypto legs of a payment.
type PaymentValue struct {
	Local  *Money `json:"local"`
	Crypto *Money `json:"crypto"`
}

// Payment is one on-chain payment attempt against a charge.
type Payment struct {
	Network       string       `json:"network"`
	TransactionID string       `json:"transaction_id"`
	Status        string       `json:"status"`
	Value         PaymentValue `json:"value"`
}

// NormalizedStatus is the lower-cased status used for comparisons.
func (p Payment) NormalizedStatus() string {
	return strings.ToLower(strings.TrimSpace(p.Status))
}

// TimelineEntry is one status change in the charge history.
type TimelineEntry struct {
	Time    string `json:"time"`
	Status  string `json:"status"`
	Context string `json:"context"`
}

// Charge is a read-only view of the provider charge at notification time.
type Charge struct {
	ID       string
	Code     string
	Metadata map[string]string
	Payments []Payment
	Timeline []TimelineEntry
	Status   string
}

// LastTimeline returns the newest timeline entry.
func (c *Charge) LastTimeline() (TimelineEntry, bool) {
	if len(c.Timeline) == 0 {
		return TimelineEntry{}, false
	}
	return c.Timeline[len(c.Timeline)-1], true
}

// ConfirmedPayment returns the first payment whose normalized status is "confirmed".
func (c *Charge) ConfirmedPayment() (Payment, bool) {
	for _, p := range c.Payments {
		if p.NormalizedStatus() == "confirmed" {
			return p, true
		}
	}
	return Payment{}, false
}

// Event is a parsed notification envelope.
type Event struct {
	ID       string
	Type     string
	Charge   Charge
	OrderID  string
	ClientID string
}

type envelope struct {
	Event *rawEvent `json:"event"`
}

type rawEvent struct {
	ID   string          `json:"id"`
	Type string          `json:"type"`
	Data json.RawMessage `json:"data"`
}

type rawCharge struct {
	ID       string          `json:"id"`
	Code     string          `json:"code"`
	Status   string          `json:"status"`
	Metadata map[string]any  `json:"metadata"`
	Payments []Payment       `json:"payments"`
	Timeline []TimelineEntry `json:"timeline"`
}

// ParseEvent decodes a raw notification body.
func ParseEvent(body []byte, variant Variant) (*Event, error) {
	var env envelope
	dec := json.NewDecoder(bytes.NewReader(body))
	dec.UseNumber()
	if err := dec.Decode(&env); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedPayload, err)
	}
	if env.Event == nil {
		return nil, fmt.Errorf("%w: event missing", ErrMalformedPayload)
	}

	var raw rawCharge
	if data := bytes.TrimSpace(env.Event.Data); len(data) > 0 && !bytes.Equal(data, []byte("null")) {
		dec := json.NewDecoder(bytes.NewReader(data))
		dec.UseNumber()
		if err := dec.Decode(&raw); err != nil {
			return nil, fmt.Errorf("%w: event data: %v", ErrMalformedPayload, err)
		}
	}
	if variant == VariantTimeline && raw.ID == "" {
		return nil, fmt.Errorf("%w: event data id missing", ErrMalformedPayload)
	}

	charge := Charge{
		ID:       raw.ID,
		Code:     raw.Code,
		Metadata: stringifyMetadata(raw.Metadata),
		Payments: raw.Payments,
		Timeline: raw.Timeline,
		Status:   raw.Status,
	}
	if charge.Status == "" {
		if last, ok := charge.LastTimeline(); ok {
			charge.Status = last.Status
		}
	}

	orderID := charge.Metadata[MetadataOrderIDKey]
	if orderID == "" {
		return nil, ErrMissingOrderID
	}

	return &Event{
		ID:       env.Event.ID,
		Type:     env.Event.Type,
		Charge:   charge,
		OrderID:  orderID,
		ClientID: charge.Metadata[MetadataClientIDKey],
	}, nil
}

func stringifyMetadata(in map[string]any) map[string]string {
	out := make(map[string]string, len(in))
	for k, v := range in {
		switch vv := v.(type) {
		case nil:
		case string:
			out[k] = strings.TrimSpace(vv)
		case json.Number:
			out[k] = vv.String()
		case bool:
			out[k] = strconv.FormatBool(vv)
		default:
			if b, err := json.Marshal(vv); err == nil {
				out[k] = string(b)
			}
		}
	}
	return out
}
