package service

import (
	"context"
	"database/sql"
	"errors"

	"github.com/vibast-solutions/ms-go-shop/app/dto"
	"github.com/vibast-solutions/ms-go-shop/app/entity"
	"github.com/vibast-solutions/ms-go-shop/app/metrics"
	"github.com/vibast-solutions/ms-go-shop/app/repository"

	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
)

var (
	ErrEmptyCart      = errors.New("cart is empty")
	ErrInvalidProduct = errors.New("invalid product in cart")
)

type CheckoutService interface {
	Checkout(ctx context.Context, userID uint64) (*dto.CheckoutResult, error)
}

type checkoutService struct {
	runtime
	db       *sql.DB
	userRepo userRepository
	notifier Notifier
}

func NewCheckoutService(db *sql.DB, userRepo userRepository, notifier Notifier, opts ...Option) CheckoutService {
	return &checkoutService{
		runtime:  newRuntime(opts),
		db:       db,
		userRepo: userRepo,
		notifier: notifier,
	}
}

// Checkout turns the cart of userID into a paid order in one transaction.
// The cart rows stay locked until commit so a concurrent checkout of the same
// cart waits and then finds it empty.
func (s *checkoutService) Checkout(ctx context.Context, userID uint64) (*dto.CheckoutResult, error) {
	order, err := s.placeOrder(ctx, userID)
	if err != nil {
		switch {
		case errors.Is(err, ErrEmptyCart):
			metrics.RecordCheckout("empty_cart", 0)
		case errors.Is(err, ErrInvalidProduct):
			metrics.RecordCheckout("invalid_product", 0)
		default:
			metrics.RecordCheckout("error", 0)
		}
		return nil, err
	}

	amount, _ := order.TotalAmount.Float64()
	metrics.RecordCheckout("success", amount)

	s.notify(func(ctx context.Context) error {
		user, err := s.userRepo.FindByID(ctx, userID)
		if err != nil {
			return err
		}
		if user == nil {
			return ErrUserNotFound
		}
		return s.notifier.SendOrderConfirmation(ctx, user, order)
	}, func(err error) {
		logrus.WithError(err).WithField("order_id", order.ID).Error("Failed to send order confirmation email")
	})

	return &dto.CheckoutResult{
		OrderID:     order.ID,
		TotalAmount: order.TotalAmount,
		ItemCount:   len(order.Items),
	}, nil
}

func (s *checkoutService) placeOrder(ctx context.Context, userID uint64) (*entity.Order, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback()

	cartRepo := repository.NewCartRepository(tx)
	orderRepo := repository.NewOrderRepository(tx)

	cartItems, err := cartRepo.ListByUserForUpdate(ctx, userID)
	if err != nil {
		return nil, err
	}
	if len(cartItems) == 0 {
		return nil, ErrEmptyCart
	}

	total := decimal.Zero
	items := make([]*entity.OrderItem, 0, len(cartItems))
	for _, cartItem := range cartItems {
		if cartItem.Product == nil {
			return nil, ErrInvalidProduct
		}

		total = total.Add(cartItem.Product.Price.Mul(decimal.NewFromInt(int64(cartItem.Quantity))))
		items = append(items, &entity.OrderItem{
			ProductID:          sql.NullInt64{Int64: int64(cartItem.ProductID), Valid: true},
			Quantity:           cartItem.Quantity,
			PriceAtPurchase:    cartItem.Product.Price,
			ProductName:        cartItem.Product.Name,
			ProductDescription: cartItem.Product.Description,
		})
	}

	now := s.now()
	order := &entity.Order{
		UserID:      userID,
		TotalAmount: total,
		Status:      entity.OrderStatusPaid,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err = orderRepo.Create(ctx, order); err != nil {
		return nil, err
	}

	for _, item := range items {
		item.OrderID = order.ID
		if err = orderRepo.CreateItem(ctx, item); err != nil {
			return nil, err
		}
	}
	order.Items = items

	if _, err = cartRepo.DeleteByUser(ctx, userID); err != nil {
		return nil, err
	}

	if err = tx.Commit(); err != nil {
		return nil, err
	}

	return order, nil
}
