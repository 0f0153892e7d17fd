package service

import (
	"context"
	"errors"
	"fmt"
	"io"
	"path"
	"strings"

	"github.com/vibast-solutions/ms-go-shop/app/entity"
	"github.com/vibast-solutions/ms-go-shop/app/repository"
	"github.com/vibast-solutions/ms-go-shop/app/types"

	"github.com/google/uuid"
)

var (
	ErrProductNotFound      = errors.New("product not found")
	ErrProductForbidden     = errors.New("you are not allowed to modify this product")
	ErrImageStorageDisabled = errors.New("image storage is not configured")
)

// ImageStore persists product images and returns their public URL.
type ImageStore interface {
	Put(ctx context.Context, key, contentType string, body io.Reader) (string, error)
}

type productRepository interface {
	Create(ctx context.Context, product *entity.Product) error
	FindByID(ctx context.Context, id uint64) (*entity.Product, error)
	List(ctx context.Context, offset, limit int) ([]*entity.Product, error)
	Update(ctx context.Context, product *entity.Product) error
	Delete(ctx context.Context, id uint64) error
	Search(ctx context.Context, filter repository.ProductFilter) ([]*entity.Product, error)
	SearchKeyword(ctx context.Context, keyword string) ([]*entity.Product, error)
}

type CatalogService interface {
	Create(ctx context.Context, ownerID uint64, req *types.ProductRequest) (*entity.Product, error)
	ListAll(ctx context.Context, req *types.AdminListProductsRequest) ([]*entity.Product, error)
	Get(ctx context.Context, id uint64) (*entity.Product, error)
	Update(ctx context.Context, ownerID, id uint64, req *types.ProductRequest) (*entity.Product, error)
	Delete(ctx context.Context, ownerID, id uint64) error
	ListPublic(ctx context.Context, req *types.PublicListProductsRequest) ([]*entity.Product, error)
	Search(ctx context.Context, req *types.SearchProductsRequest) ([]*entity.Product, error)
	UploadImage(ctx context.Context, ownerID, id uint64, upload *types.ImageUpload) (*entity.Product, error)
}

type catalogService struct {
	runtime
	productRepo productRepository
	images      ImageStore
}

// NewCatalogService builds the catalog service. images may be nil, in which
// case image uploads fail with ErrImageStorageDisabled.
func NewCatalogService(productRepo productRepository, images ImageStore, opts ...Option) CatalogService {
	return &catalogService{
		runtime:     newRuntime(opts),
		productRepo: productRepo,
		images:      images,
	}
}

func (s *catalogService) Create(ctx context.Context, ownerID uint64, req *types.ProductRequest) (*entity.Product, error) {
	now := s.now()
	product := &entity.Product{
		Name:        req.Name,
		Description: req.Description,
		Price:       req.Price,
		Stock:       *req.Stock,
		Category:    req.Category,
		ImageURL:    req.ImageURL,
		CreatedBy:   ownerID,
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	if err := s.productRepo.Create(ctx, product); err != nil {
		return nil, err
	}

	return product, nil
}

func (s *catalogService) ListAll(ctx context.Context, req *types.AdminListProductsRequest) ([]*entity.Product, error) {
	return s.productRepo.List(ctx, req.Skip, req.Limit)
}

func (s *catalogService) Get(ctx context.Context, id uint64) (*entity.Product, error) {
	product, err := s.productRepo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if product == nil {
		return nil, ErrProductNotFound
	}

	return product, nil
}

func (s *catalogService) Update(ctx context.Context, ownerID, id uint64, req *types.ProductRequest) (*entity.Product, error) {
	product, err := s.ownedProduct(ctx, ownerID, id)
	if err != nil {
		return nil, err
	}

	product.Name = req.Name
	product.Description = req.Description
	product.Price = req.Price
	product.Stock = *req.Stock
	product.Category = req.Category
	product.ImageURL = req.ImageURL
	product.UpdatedAt = s.now()

	if err = s.productRepo.Update(ctx, product); err != nil {
		return nil, err
	}

	return product, nil
}

func (s *catalogService) Delete(ctx context.Context, ownerID, id uint64) error {
	if _, err := s.ownedProduct(ctx, ownerID, id); err != nil {
		return err
	}

	return s.productRepo.Delete(ctx, id)
}

func (s *catalogService) ListPublic(ctx context.Context, req *types.PublicListProductsRequest) ([]*entity.Product, error) {
	offset, limit := req.Window()
	return s.productRepo.Search(ctx, repository.ProductFilter{
		Category: req.Category,
		MinPrice: req.MinPrice,
		MaxPrice: req.MaxPrice,
		SortBy:   req.SortBy,
		Offset:   offset,
		Limit:    limit,
	})
}

func (s *catalogService) Search(ctx context.Context, req *types.SearchProductsRequest) ([]*entity.Product, error) {
	return s.productRepo.SearchKeyword(ctx, req.Keyword)
}

func (s *catalogService) UploadImage(ctx context.Context, ownerID, id uint64, upload *types.ImageUpload) (*entity.Product, error) {
	if s.images == nil {
		return nil, ErrImageStorageDisabled
	}

	product, err := s.ownedProduct(ctx, ownerID, id)
	if err != nil {
		return nil, err
	}

	file, err := upload.Open()
	if err != nil {
		return nil, fmt.Errorf("open upload: %w", err)
	}
	defer file.Close()

	key := fmt.Sprintf("products/%d/%s%s", product.ID, uuid.NewString(), strings.ToLower(path.Ext(upload.Filename)))
	imageURL, err := s.images.Put(ctx, key, upload.ContentType, file)
	if err != nil {
		return nil, err
	}

	product.ImageURL = imageURL
	product.UpdatedAt = s.now()
	if err = s.productRepo.Update(ctx, product); err != nil {
		return nil, err
	}

	return product, nil
}

func (s *catalogService) ownedProduct(ctx context.Context, ownerID, id uint64) (*entity.Product, error) {
	product, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if product.CreatedBy != ownerID {
		return nil, ErrProductForbidden
	}

	return product, nil
}
