package receipt

import "time"

// Receipt represents a scanned receipt with extracted data
type Receipt struct {
	ID           string    `json:"id"`
	StoreName    string    `json:"store_name,omitempty"`
	TotalAmount  *float64  `json:"total_amount,omitempty"`
	PurchaseDate string    `json:"purchase_date,omitempty"` // ISO 8601, empty when unknown
	ImageURL     string    `json:"image_url"`               // As returned by the API, may be relative
	CreatedAt    time.Time `json:"created_at"`
	Items        []Item    `json:"items"`
}

// Item is a line item on a receipt
type Item struct {
	ID       string   `json:"id"`
	Name     string   `json:"name"`
	Price    *float64 `json:"price,omitempty"`
	Quantity *float64 `json:"quantity,omitempty"`
}

// DateRange bounds purchase dates; nil ends are open
type DateRange struct {
	From *time.Time
	To   *time.Time
}

// IsZero reports whether neither end is set
func (r DateRange) IsZero() bool {
	return r.From == nil && r.To == nil
}
