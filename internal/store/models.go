package store

import "time"

// OrderStatus is the lifecycle state of an order.
type OrderStatus string

const (
	StatusPending    OrderStatus = "pending"
	StatusProcessing OrderStatus = "processing"
	StatusDelivered  OrderStatus = "delivered"
	StatusCancelled  OrderStatus = "cancelled"
)

// Valid reports whether s is one of the known order statuses.
func (s OrderStatus) Valid() bool {
	switch s {
	case StatusPending, StatusProcessing, StatusDelivered, StatusCancelled:
		return true
	}
	return false
}

// User roles.
const (
	RoleUser  = "user"
	RoleAdmin = "admin"
)

type User struct {
	ID       int64  `json:"id"`
	Username string `json:"username"`
	Password string `json:"-"`
	// "adress" matches the web app payload, typo and all.
	Address string `json:"adress"`
	Email   string `json:"email"`
	Role    string `json:"role"`
}

type ProductType struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
}

type Product struct {
	ID            int64        `json:"id"`
	Name          string       `json:"name"`
	Description   string       `json:"description"`
	Rating        float64      `json:"rating"`
	Price         float64      `json:"price"`
	InStock       bool         `json:"inStock"`
	Img           string       `json:"img"`
	ProductTypeID int64        `json:"productTypeId"`
	ProductType   *ProductType `json:"productType,omitempty"`
	CreatedAt     time.Time    `json:"createdAt"`
}

type OrderItem struct {
	ID        int64    `json:"id"`
	OrderID   int64    `json:"orderId"`
	ProductID int64    `json:"productId"`
	Quantity  int      `json:"quantity"`
	Price     float64  `json:"price"`
	Product   *Product `json:"product,omitempty"`
}

type Order struct {
	ID              int64       `json:"id"`
	Date            time.Time   `json:"date"`
	Status          OrderStatus `json:"status"`
	TotalAmount     float64     `json:"totalAmount"`
	ShippingAddress string      `json:"shippingAddress"`
	QRCodeFileName  string      `json:"qrCodeFileName,omitempty"`
	UserID          *int64      `json:"userId,omitempty"`
	Items           []OrderItem `json:"order_items"`
	// User is populated only for admin list queries.
	User *User `json:"user,omitempty"`
}

// ProductPage mirrors the findAndCountAll response shape the web app
// consumes; it is also the JSON payload stored in the cache.
type ProductPage struct {
	Count int       `json:"count"`
	Rows  []Product `json:"rows"`
}

// TypePage is the paginated product-type listing.
type TypePage struct {
	Count int           `json:"count"`
	Rows  []ProductType `json:"rows"`
}

// OrderPage is the paginated order listing.
type OrderPage struct {
	Orders      []Order `json:"orders"`
	TotalPages  int     `json:"totalPages"`
	CurrentPage int     `json:"currentPage"`
	TotalCount  int     `json:"totalCount"`
}
