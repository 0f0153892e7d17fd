package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/vibast-solutions/ms-go-shop/app/entity"
	"github.com/vibast-solutions/ms-go-shop/app/repository"
	"github.com/vibast-solutions/ms-go-shop/app/types"
)

var (
	ErrCartItemExists   = errors.New("product already in cart, update quantity instead")
	ErrCartItemNotFound = errors.New("item not found in cart")
	ErrInvalidQuantity  = fmt.Errorf("quantity must be between %d and %d", entity.MinCartQuantity, entity.MaxCartQuantity)
)

type cartRepository interface {
	Create(ctx context.Context, item *entity.CartItem) error
	FindByUserAndProduct(ctx context.Context, userID, productID uint64) (*entity.CartItem, error)
	ListByUser(ctx context.Context, userID uint64) ([]*entity.CartItem, error)
	UpdateQuantity(ctx context.Context, id uint64, quantity int, updatedAt time.Time) error
	Delete(ctx context.Context, id uint64) error
}

type productFinder interface {
	FindByID(ctx context.Context, id uint64) (*entity.Product, error)
}

type CartService interface {
	Add(ctx context.Context, userID uint64, req *types.AddCartItemRequest) (*entity.CartItem, error)
	List(ctx context.Context, userID uint64) ([]*entity.CartItem, error)
	UpdateQuantity(ctx context.Context, userID uint64, req *types.UpdateCartItemRequest) (*entity.CartItem, error)
	Remove(ctx context.Context, userID, productID uint64) error
}

type cartService struct {
	runtime
	cartRepo    cartRepository
	productRepo productFinder
}

func NewCartService(cartRepo cartRepository, productRepo productFinder, opts ...Option) CartService {
	return &cartService{
		runtime:     newRuntime(opts),
		cartRepo:    cartRepo,
		productRepo: productRepo,
	}
}

func (s *cartService) Add(ctx context.Context, userID uint64, req *types.AddCartItemRequest) (*entity.CartItem, error) {
	existing, err := s.cartRepo.FindByUserAndProduct(ctx, userID, req.ProductID)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return nil, ErrCartItemExists
	}

	product, err := s.productRepo.FindByID(ctx, req.ProductID)
	if err != nil {
		return nil, err
	}
	if product == nil {
		return nil, ErrProductNotFound
	}

	if !validQuantity(req.Quantity) {
		return nil, ErrInvalidQuantity
	}

	now := s.now()
	item := &entity.CartItem{
		UserID:    userID,
		ProductID: req.ProductID,
		Quantity:  req.Quantity,
		CreatedAt: now,
		UpdatedAt: now,
		Product: &entity.ProductSummary{
			Name:        product.Name,
			Description: product.Description,
			Price:       product.Price,
			ImageURL:    product.ImageURL,
		},
	}

	if err = s.cartRepo.Create(ctx, item); err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			return nil, ErrCartItemExists
		}
		return nil, err
	}

	return item, nil
}

func (s *cartService) List(ctx context.Context, userID uint64) ([]*entity.CartItem, error) {
	return s.cartRepo.ListByUser(ctx, userID)
}

func (s *cartService) UpdateQuantity(ctx context.Context, userID uint64, req *types.UpdateCartItemRequest) (*entity.CartItem, error) {
	item, err := s.cartRepo.FindByUserAndProduct(ctx, userID, req.ProductID)
	if err != nil {
		return nil, err
	}
	if item == nil {
		return nil, ErrCartItemNotFound
	}

	if !validQuantity(req.Quantity) {
		return nil, ErrInvalidQuantity
	}

	item.Quantity = req.Quantity
	item.UpdatedAt = s.now()
	if err = s.cartRepo.UpdateQuantity(ctx, item.ID, item.Quantity, item.UpdatedAt); err != nil {
		return nil, err
	}

	return item, nil
}

func (s *cartService) Remove(ctx context.Context, userID, productID uint64) error {
	item, err := s.cartRepo.FindByUserAndProduct(ctx, userID, productID)
	if err != nil {
		return err
	}
	if item == nil {
		return ErrCartItemNotFound
	}

	return s.cartRepo.Delete(ctx, item.ID)
}

func validQuantity(quantity int) bool {
	return quantity >= entity.MinCartQuantity && quantity <= entity.MaxCartQuantity
}
