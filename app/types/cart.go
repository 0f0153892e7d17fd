package types

import (
	"errors"

	"github.com/vibast-solutions/ms-go-shop/app/entity"

	"github.com/labstack/echo/v4"
	"github.com/shopspring/decimal"
)

type AddCartItemRequest struct {
	ProductID uint64 `json:"product_id"`
	Quantity  int    `json:"quantity"`
}

func NewAddCartItemRequestFromContext(ctx echo.Context) (*AddCartItemRequest, error) {
	var body AddCartItemRequest
	if err := ctx.Bind(&body); err != nil {
		return nil, err
	}

	return &body, nil
}

// Validate only checks presence; the quantity range is enforced by the cart
// service after the duplicate and product checks.
func (r *AddCartItemRequest) Validate() error {
	if r.ProductID == 0 {
		return errors.New("product_id is required")
	}

	return nil
}

type UpdateCartItemRequest struct {
	ProductID uint64 `json:"-"`
	Quantity  int    `json:"quantity"`
}

func NewUpdateCartItemRequestFromContext(ctx echo.Context) (*UpdateCartItemRequest, error) {
	productID, err := IDParam(ctx, "product_id")
	if err != nil {
		return nil, err
	}

	var body UpdateCartItemRequest
	if err = ctx.Bind(&body); err != nil {
		return nil, err
	}
	body.ProductID = productID

	return &body, nil
}

func (r *UpdateCartItemRequest) Validate() error {
	if r.ProductID == 0 {
		return errors.New("product_id is required")
	}

	return nil
}

type CartProductResponse struct {
	Name     string          `json:"name"`
	Price    decimal.Decimal `json:"price"`
	ImageURL string          `json:"image_url"`
}

type CartItemResponse struct {
	ProductID uint64               `json:"product_id"`
	Quantity  int                  `json:"quantity"`
	Product   *CartProductResponse `json:"product"`
}

func NewCartItemResponse(item *entity.CartItem) CartItemResponse {
	res := CartItemResponse{
		ProductID: item.ProductID,
		Quantity:  item.Quantity,
	}
	if item.Product != nil {
		res.Product = &CartProductResponse{
			Name:     item.Product.Name,
			Price:    item.Product.Price,
			ImageURL: item.Product.ImageURL,
		}
	}
	return res
}

func NewCartListResponse(items []*entity.CartItem) []CartItemResponse {
	res := make([]CartItemResponse, 0, len(items))
	for _, item := range items {
		res = append(res, NewCartItemResponse(item))
	}
	return res
}

// CartRemovedResponse mirrors the error envelope shape with error=false.
type CartRemovedResponse struct {
	Error   bool   `json:"error"`
	Message string `json:"message"`
	Code    int    `json:"code"`
}
