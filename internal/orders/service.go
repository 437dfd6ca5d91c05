// Package orders owns order mutations and the bot-side confirmation flow.
// Every write goes through Service so cache invalidation and QR generation
// happen in one place, whether the write came from the REST API or from a
// Telegram callback.
package orders

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/rs/zerolog"
	"github.com/skip2/go-qrcode"

	"github.com/velikanov/teleshop/internal/store"
	"github.com/velikanov/teleshop/pkg/cache"
)

// ErrNotFound is returned for operations on an order id that does not exist.
var ErrNotFound = errors.New("order not found")

// ErrInvalidStatus is returned for status values outside the known enum.
var ErrInvalidStatus = errors.New("invalid order status")

// Service wraps the order repository with cache invalidation and QR
// reference generation.
type Service struct {
	orders    *store.OrderRepository
	cache     *cache.Manager
	qrDir     string
	webAppURL string
	logger    zerolog.Logger
}

// NewService creates a Service. qrDir may be empty to disable QR file
// generation.
func NewService(orders *store.OrderRepository, cacheManager *cache.Manager, qrDir, webAppURL string, logger zerolog.Logger) *Service {
	if orders == nil {
		panic("orders: repository must not be nil")
	}
	if cacheManager == nil {
		panic("orders: cache manager must not be nil")
	}
	return &Service{
		orders:    orders,
		cache:     cacheManager,
		qrDir:     qrDir,
		webAppURL: webAppURL,
		logger:    logger.With().Str("component", "orders").Logger(),
	}
}

// Create persists a new pending order, generates its QR reference and
// invalidates cached order listings. QR generation is best effort: a
// failure is logged and the order is returned without a QR reference.
func (s *Service) Create(ctx context.Context, in store.NewOrder) (*store.Order, error) {
	if len(in.Items) == 0 {
		return nil, errors.New("order must contain at least one item")
	}

	order, err := s.orders.Create(ctx, in)
	if err != nil {
		return nil, err
	}

	if fileName, qrErr := s.generateQRCode(order.ID); qrErr != nil {
		s.logger.Warn().
			Err(qrErr).
			Int64("order_id", order.ID).
			Msg("QR code generation failed")
	} else if fileName != "" {
		if err := s.orders.SetQRCodeFileName(ctx, order.ID, fileName); err != nil {
			s.logger.Warn().
				Err(err).
				Int64("order_id", order.ID).
				Msg("Could not record QR code reference")
		} else {
			order.QRCodeFileName = fileName
		}
	}

	s.cache.Invalidate(ctx, "orders")

	evt := s.logger.Info().
		Int64("order_id", order.ID).
		Float64("total", order.TotalAmount)
	if order.UserID != nil {
		evt = evt.Int64("user_id", *order.UserID)
	}
	evt.Msg("Order created")
	return order, nil
}

// Get returns one order by id.
func (s *Service) Get(ctx context.Context, id int64) (*store.Order, error) {
	order, err := s.orders.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if order == nil {
		return nil, ErrNotFound
	}
	return order, nil
}

// List returns a page of orders straight from the repository. Read-through
// caching of listings lives in the HTTP layer next to the other resources.
func (s *Service) List(ctx context.Context, f store.OrderFilter) (*store.OrderPage, error) {
	return s.orders.List(ctx, f)
}

// UpdateStatus validates and applies a status change, then invalidates
// cached order listings.
func (s *Service) UpdateStatus(ctx context.Context, id int64, status store.OrderStatus) error {
	if !status.Valid() {
		return fmt.Errorf("%w: %q", ErrInvalidStatus, status)
	}
	if err := s.orders.UpdateStatus(ctx, id, status); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return ErrNotFound
		}
		return err
	}
	s.cache.Invalidate(ctx, "orders")
	return nil
}

// Confirm promotes a pending order to processing. Confirming an order that
// is already processing is a no-op, not an error.
func (s *Service) Confirm(ctx context.Context, id int64) error {
	order, err := s.orders.GetByID(ctx, id)
	if err != nil {
		return err
	}
	if order == nil {
		return ErrNotFound
	}
	if order.Status == store.StatusProcessing {
		return nil
	}
	if err := s.orders.UpdateStatus(ctx, id, store.StatusProcessing); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return ErrNotFound
		}
		return err
	}
	s.cache.Invalidate(ctx, "orders")
	return nil
}

// UpdateShippingAddress replaces the shipping address on an order and
// invalidates cached order listings.
func (s *Service) UpdateShippingAddress(ctx context.Context, id int64, address string) error {
	if err := s.orders.UpdateShippingAddress(ctx, id, address); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return ErrNotFound
		}
		return err
	}
	s.cache.Invalidate(ctx, "orders")
	return nil
}

// generateQRCode writes order_<id>.png under qrDir encoding the order's
// web-app URL. Returns the file name, or "" when generation is disabled.
func (s *Service) generateQRCode(orderID int64) (string, error) {
	if s.qrDir == "" {
		return "", nil
	}
	if err := os.MkdirAll(s.qrDir, 0o755); err != nil {
		return "", fmt.Errorf("create qr dir: %w", err)
	}
	fileName := fmt.Sprintf("order_%d.png", orderID)
	content := fmt.Sprintf("%s/orders/%d", s.webAppURL, orderID)
	if err := qrcode.WriteFile(content, qrcode.Medium, 300, filepath.Join(s.qrDir, fileName)); err != nil {
		return "", fmt.Errorf("write qr code: %w", err)
	}
	return fileName, nil
}
