package api

// Receipt is a receipt record as returned by the GraphQL service
type Receipt struct {
	ID           string   `json:"id"`
	StoreName    *string  `json:"storeName"`
	TotalAmount  *float64 `json:"totalAmount"`
	PurchaseDate *string  `json:"purchaseDate"`
	ImageURL     string   `json:"imageUrl"`
	CreatedAt    string   `json:"createdAt"`
	Items        []Item   `json:"items"`
}

// Item is a receipt line item
type Item struct {
	ID       string   `json:"id"`
	Name     string   `json:"name"`
	Price    *float64 `json:"price"`
	Quantity *float64 `json:"quantity"`
}

// ReceiptFilter narrows the receipts query on the server
type ReceiptFilter struct {
	StoreName string `json:"storeName,omitempty"`
	StartDate string `json:"startDate,omitempty"` // YYYY-MM-DD
	EndDate   string `json:"endDate,omitempty"`   // YYYY-MM-DD
}

// IsZero reports whether the filter has no conditions
func (f *ReceiptFilter) IsZero() bool {
	return f == nil || (f.StoreName == "" && f.StartDate == "" && f.EndDate == "")
}
