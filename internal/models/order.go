package models

import (
	"encoding/json"
	"time"

	"github.com/baharkarakas/shop-backend/internal/apperr"
)

// LineItem is one basket entry or one purchased entry on an order. On orders it
// is a snapshot and never refers back to the live product. Fields the struct
// does not name are kept in Extra and written back out unchanged.
type LineItem struct {
	ProductID     string  `json:"productId"`
	Quantity      int     `json:"qty"`
	Name          string  `json:"name,omitempty"`
	Brand         string  `json:"brand,omitempty"`
	Price         float64 `json:"price,omitempty"`
	Image         string  `json:"image,omitempty"`
	SelectedSize  string  `json:"selectedSize,omitempty"`
	SelectedColor string  `json:"selectedColor,omitempty"`

	Extra map[string]json.RawMessage `json:"-"`
}

// lineItemJSON has LineItem's fields without its JSON methods.
type lineItemJSON LineItem

var lineItemKeys = []string{"productId", "qty", "name", "brand", "price", "image", "selectedSize", "selectedColor"}

func (li LineItem) MarshalJSON() ([]byte, error) {
	known, err := json.Marshal(lineItemJSON(li))
	if err != nil || len(li.Extra) == 0 {
		return known, err
	}
	all := make(map[string]json.RawMessage, len(li.Extra)+len(lineItemKeys))
	for k, v := range li.Extra {
		all[k] = v
	}
	if err := json.Unmarshal(known, &all); err != nil {
		return nil, err
	}
	return json.Marshal(all)
}

func (li *LineItem) UnmarshalJSON(b []byte) error {
	var known lineItemJSON
	if err := json.Unmarshal(b, &known); err != nil {
		return err
	}
	var all map[string]json.RawMessage
	if err := json.Unmarshal(b, &all); err != nil {
		return err
	}
	for _, k := range lineItemKeys {
		delete(all, k)
	}
	*li = LineItem(known)
	li.Extra = nil
	if len(all) > 0 {
		li.Extra = all
	}
	return nil
}

type Shipping struct {
	Fullname        string `json:"fullname,omitempty"`
	Email           string `json:"email,omitempty"`
	Address         string `json:"address,omitempty"`
	Mobile          Mobile `json:"mobile"`
	IsInternational bool   `json:"isInternational"`
}

// Payment is stored as received. Nothing here is validated or charged.
type Payment struct {
	Type       string `json:"type,omitempty"`
	Name       string `json:"name,omitempty"`
	CardNumber string `json:"cardnumber,omitempty"`
	Expiry     string `json:"expiry,omitempty"`
	CCV        string `json:"ccv,omitempty"`
}

type Order struct {
	ID          string     `json:"id"`
	UserID      string     `json:"userId"`
	Items       []LineItem `json:"items"`
	Amount      float64    `json:"amount"`
	Shipping    Shipping   `json:"shipping"`
	Payment     Payment    `json:"payment"`
	DateCreated time.Time  `json:"dateCreated"`
}

type OrderInput struct {
	UserID   string     `json:"userId"`
	Items    []LineItem `json:"items"`
	Amount   float64    `json:"amount"`
	Shipping Shipping   `json:"shipping"`
	Payment  Payment    `json:"payment"`
}

func (in OrderInput) Validate() error {
	if in.UserID == "" {
		return apperr.Invalid("userId: required")
	}
	if len(in.Items) == 0 {
		return apperr.Invalid("items: required")
	}
	if in.Amount < 0 {
		return apperr.Invalid("amount: must be >= 0")
	}
	return nil
}

func NewOrder(id string, in OrderInput, now time.Time) Order {
	return Order{
		ID:          id,
		UserID:      in.UserID,
		Items:       append([]LineItem{}, in.Items...),
		Amount:      in.Amount,
		Shipping:    in.Shipping,
		Payment:     in.Payment,
		DateCreated: now.UTC(),
	}
}
