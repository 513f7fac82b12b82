package models

import (
	"encoding/json"
	"strconv"
	"strings"
)

type Book struct {
	Barcode  string  `json:"barcode"`
	Name     string  `json:"name"`
	Author   string  `json:"author"`
	Price    int     `json:"price"`
	Quantity int     `json:"quantity"`
	ImageURL *string `json:"image_url"`
}

// AddBookRequest carries the text fields of the multipart add form as
// received on the wire.
type AddBookRequest struct {
	Barcode  string
	Name     string
	Author   string
	Price    string
	Quantity string
}

type RemoveBookRequest struct {
	Barcode string `json:"barcode"`
}

type PurchaseRequest struct {
	Items []PurchaseItem `json:"items"`
}

type PurchaseItem struct {
	Barcode  string    `json:"barcode"`
	Quantity RawAmount `json:"quantity"`
}

// RawAmount keeps a quantity exactly as sent so it can be parsed while the
// purchase transaction runs. Both 3 and "3" are accepted.
type RawAmount string

func (a *RawAmount) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err == nil {
		*a = RawAmount(s)
		return nil
	}
	*a = RawAmount(data)
	return nil
}

// Int parses the amount as a base 10 integer.
func (a RawAmount) Int() (int, error) {
	return strconv.Atoi(strings.TrimSpace(string(a)))
}

type PurchaseEvent struct {
	Items      []PurchasedItem `json:"items"`
	OccurredAt int64           `json:"occurred_at"`
}

type PurchasedItem struct {
	Barcode   string `json:"barcode"`
	Quantity  int    `json:"quantity"`
	Remaining int    `json:"remaining"`
}

type MessageResponse struct {
	Message string `json:"message"`
	Token   string `json:"token,omitempty"`
}
