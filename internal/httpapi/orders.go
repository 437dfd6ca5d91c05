package httpapi

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/velikanov/teleshop/internal/orders"
	"github.com/velikanov/teleshop/internal/store"
	"github.com/velikanov/teleshop/pkg/cache"
)

func orderListKey(f store.OrderFilter, admin bool) *cache.Key {
	k := cache.NewKey("orders", "getAll").
		WithOpt("status", f.Status, f.Status != "").
		WithOpt("search", f.Search, f.HasSearch).
		WithInt("page", f.Page).
		WithInt("limit", f.Limit)
	if f.UserID != nil {
		k.WithInt64("userId", *f.UserID)
	}
	// Admin listings embed user records, so they must not share cache
	// entries with regular listings of the same filter.
	if admin {
		k.With("scope", "admin")
	}
	return k
}

func (s *Server) handleOrderList(c *gin.Context) {
	var f store.OrderFilter
	f.Status = c.Query("status")
	f.Search, f.HasSearch = c.GetQuery("search")
	f.Page = intQuery(c, "page", 1)
	f.Limit = intQuery(c, "limit", store.DefaultOrderLimit)
	if v := c.Query("userId"); v != "" {
		id, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			badRequest(c, "userId must be an integer")
			return
		}
		f.UserID = &id
	}
	admin := currentUser(c) != nil && currentUser(c).Role == store.RoleAdmin
	f.IncludeUser = admin
	f.Normalize()

	key := orderListKey(f, admin)

	var cached store.OrderPage
	if s.cache.Lookup(c.Request.Context(), key, &cached) {
		c.JSON(http.StatusOK, cached)
		return
	}

	page, err := s.orders.List(c.Request.Context(), f)
	if err != nil {
		s.logger.Error().Err(err).Msg("Order listing failed")
		internalError(c)
		return
	}

	s.cache.Store(c.Request.Context(), key, listTTL, page)
	c.JSON(http.StatusOK, page)
}

func (s *Server) handleOrderGet(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}

	key := cache.NewKey("orders", "getOne").WithInt64("id", id)

	var cached store.Order
	if s.cache.Lookup(c.Request.Context(), key, &cached) {
		c.JSON(http.StatusOK, cached)
		return
	}

	order, err := s.orders.Get(c.Request.Context(), id)
	if err != nil {
		if errors.Is(err, orders.ErrNotFound) {
			notFound(c, "Order not found")
			return
		}
		s.logger.Error().Err(err).Int64("order_id", id).Msg("Order lookup failed")
		internalError(c)
		return
	}

	s.cache.Store(c.Request.Context(), key, listTTL, order)
	c.JSON(http.StatusOK, order)
}

type orderItemInput struct {
	ProductID int64   `json:"productId" binding:"required"`
	Quantity  int     `json:"quantity" binding:"required"`
	Price     float64 `json:"price"`
}

type orderInput struct {
	Items           []orderItemInput `json:"items"`
	TotalAmount     float64          `json:"totalAmount"`
	ShippingAddress string           `json:"shippingAddress"`
	UserID          *int64           `json:"userId"`
}

func (s *Server) handleOrderCreate(c *gin.Context) {
	var in orderInput
	if err := c.ShouldBindJSON(&in); err != nil {
		badRequest(c, err.Error())
		return
	}
	if len(in.Items) == 0 {
		badRequest(c, "Order must contain at least one item")
		return
	}

	items := make([]store.OrderItem, 0, len(in.Items))
	for _, it := range in.Items {
		items = append(items, store.OrderItem{
			ProductID: it.ProductID,
			Quantity:  it.Quantity,
			Price:     it.Price,
		})
	}

	order, err := s.orders.Create(c.Request.Context(), store.NewOrder{
		UserID:          in.UserID,
		TotalAmount:     in.TotalAmount,
		ShippingAddress: in.ShippingAddress,
		Items:           items,
	})
	if err != nil {
		s.logger.Error().Err(err).Msg("Order creation failed")
		internalError(c)
		return
	}

	c.JSON(http.StatusCreated, order)
}

type statusInput struct {
	Status string `json:"status" binding:"required"`
}

func (s *Server) handleOrderUpdateStatus(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	var in statusInput
	if err := c.ShouldBindJSON(&in); err != nil {
		badRequest(c, err.Error())
		return
	}

	err := s.orders.UpdateStatus(c.Request.Context(), id, store.OrderStatus(in.Status))
	switch {
	case errors.Is(err, orders.ErrInvalidStatus):
		badRequest(c, "Invalid order status")
	case errors.Is(err, orders.ErrNotFound):
		notFound(c, "Order not found")
	case err != nil:
		s.logger.Error().Err(err).Int64("order_id", id).Msg("Order status update failed")
		internalError(c)
	default:
		c.JSON(http.StatusOK, gin.H{"message": "Order status updated"})
	}
}
