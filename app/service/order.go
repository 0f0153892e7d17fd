package service

import (
	"context"
	"errors"
	"time"

	"github.com/vibast-solutions/ms-go-shop/app/entity"
	"github.com/vibast-solutions/ms-go-shop/app/types"
)

var (
	ErrOrderNotFound      = errors.New("order not found")
	ErrInvalidOrderStatus = errors.New("invalid order status")
)

type orderRepository interface {
	ListByUser(ctx context.Context, userID uint64) ([]*entity.Order, error)
	FindByIDForUser(ctx context.Context, id, userID uint64) (*entity.Order, error)
	FindByID(ctx context.Context, id uint64) (*entity.Order, error)
	ListItems(ctx context.Context, orderID uint64) ([]*entity.OrderItem, error)
	UpdateStatus(ctx context.Context, id uint64, status string, updatedAt time.Time) error
}

type OrderService interface {
	List(ctx context.Context, userID uint64) ([]*entity.Order, error)
	Get(ctx context.Context, userID, orderID uint64) (*entity.Order, error)
	// GetAny loads an order regardless of its owner. Internal callers only.
	GetAny(ctx context.Context, orderID uint64) (*entity.Order, error)
	UpdateStatus(ctx context.Context, req *types.UpdateOrderStatusRequest) (*entity.Order, error)
}

type orderService struct {
	runtime
	orderRepo orderRepository
}

func NewOrderService(orderRepo orderRepository, opts ...Option) OrderService {
	return &orderService{
		runtime:   newRuntime(opts),
		orderRepo: orderRepo,
	}
}

func (s *orderService) List(ctx context.Context, userID uint64) ([]*entity.Order, error) {
	return s.orderRepo.ListByUser(ctx, userID)
}

func (s *orderService) Get(ctx context.Context, userID, orderID uint64) (*entity.Order, error) {
	order, err := s.orderRepo.FindByIDForUser(ctx, orderID, userID)
	if err != nil {
		return nil, err
	}
	return s.withItems(ctx, order)
}

func (s *orderService) GetAny(ctx context.Context, orderID uint64) (*entity.Order, error) {
	order, err := s.orderRepo.FindByID(ctx, orderID)
	if err != nil {
		return nil, err
	}
	return s.withItems(ctx, order)
}

func (s *orderService) UpdateStatus(ctx context.Context, req *types.UpdateOrderStatusRequest) (*entity.Order, error) {
	if !entity.ValidOrderStatus(req.Status) {
		return nil, ErrInvalidOrderStatus
	}

	order, err := s.orderRepo.FindByID(ctx, req.OrderID)
	if err != nil {
		return nil, err
	}
	if order == nil {
		return nil, ErrOrderNotFound
	}

	order.Status = req.Status
	order.UpdatedAt = s.now()
	if err = s.orderRepo.UpdateStatus(ctx, order.ID, order.Status, order.UpdatedAt); err != nil {
		return nil, err
	}

	return order, nil
}

func (s *orderService) withItems(ctx context.Context, order *entity.Order) (*entity.Order, error) {
	if order == nil {
		return nil, ErrOrderNotFound
	}

	items, err := s.orderRepo.ListItems(ctx, order.ID)
	if err != nil {
		return nil, err
	}
	order.Items = items

	return order, nil
}
