package market

import "time"

type Product struct {
	ID        string
	SellerID  string
	Name      string
	Category  string
	Price     int
	Stock     int
	Schedule  string // raw slot string, see schedule.go
	CreatedAt time.Time
	UpdatedAt time.Time
}

// Request is a purchase or reservation request. While the row exists, its
// quantity has already been subtracted from the product's stock; deleting the
// row returns the quantity.
type Request struct {
	ID              string
	ProductID       string
	UserID          string
	Quantity        int
	Status          Status // see status.go
	ReservationInfo string // set only when a slot was booked
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

// Cart holds the requested quantity per product for one user. Lines do not
// reserve stock; stock is validated again at checkout.
type Cart struct {
	UserID    string
	Items     map[string]int // product id -> quantity
	CreatedAt time.Time
	UpdatedAt time.Time
}

type CartTotals struct {
	Subtotal int `json:"subtotal"`
	Shipping int `json:"shipping"`
	Total    int `json:"total"`
}
