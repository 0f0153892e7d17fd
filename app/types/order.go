package types

import (
	"errors"
	"strings"
	"time"

	"github.com/vibast-solutions/ms-go-shop/app/entity"

	"github.com/labstack/echo/v4"
	"github.com/shopspring/decimal"
)

type CheckoutResponse struct {
	Message     string          `json:"message"`
	OrderID     uint64          `json:"order_id"`
	TotalAmount decimal.Decimal `json:"total_amount"`
}

type OrderSummaryResponse struct {
	ID          uint64          `json:"id"`
	TotalAmount decimal.Decimal `json:"total_amount"`
	Status      string          `json:"status"`
	CreatedAt   time.Time       `json:"created_at"`
}

type OrderItemResponse struct {
	ProductID          *uint64         `json:"product_id"`
	Quantity           int             `json:"quantity"`
	PriceAtPurchase    decimal.Decimal `json:"price_at_purchase"`
	ProductName        string          `json:"product_name"`
	ProductDescription string          `json:"product_description"`
}

type OrderResponse struct {
	ID          uint64              `json:"id"`
	UserID      uint64              `json:"user_id"`
	TotalAmount decimal.Decimal     `json:"total_amount"`
	Status      string              `json:"status"`
	CreatedAt   time.Time           `json:"created_at"`
	Items       []OrderItemResponse `json:"items"`
}

func NewOrderSummaryList(orders []*entity.Order) []OrderSummaryResponse {
	res := make([]OrderSummaryResponse, 0, len(orders))
	for _, order := range orders {
		res = append(res, OrderSummaryResponse{
			ID:          order.ID,
			TotalAmount: order.TotalAmount,
			Status:      order.Status,
			CreatedAt:   order.CreatedAt,
		})
	}
	return res
}

func NewOrderResponse(order *entity.Order) *OrderResponse {
	res := &OrderResponse{
		ID:          order.ID,
		UserID:      order.UserID,
		TotalAmount: order.TotalAmount,
		Status:      order.Status,
		CreatedAt:   order.CreatedAt,
		Items:       make([]OrderItemResponse, 0, len(order.Items)),
	}
	for _, item := range order.Items {
		itemRes := OrderItemResponse{
			Quantity:           item.Quantity,
			PriceAtPurchase:    item.PriceAtPurchase,
			ProductName:        item.ProductName,
			ProductDescription: item.ProductDescription,
		}
		if item.ProductID.Valid {
			productID := uint64(item.ProductID.Int64)
			itemRes.ProductID = &productID
		}
		res.Items = append(res.Items, itemRes)
	}
	return res
}

// OrderIDParam reads the order_id path parameter.
func OrderIDParam(ctx echo.Context) (uint64, error) {
	return IDParam(ctx, "order_id")
}

type UpdateOrderStatusRequest struct {
	OrderID uint64 `json:"-"`
	Status  string `json:"status"`
}

func NewUpdateOrderStatusRequestFromContext(ctx echo.Context) (*UpdateOrderStatusRequest, error) {
	orderID, err := OrderIDParam(ctx)
	if err != nil {
		return nil, err
	}

	var body UpdateOrderStatusRequest
	if err = ctx.Bind(&body); err != nil {
		return nil, err
	}
	body.OrderID = orderID
	body.Status = strings.ToLower(strings.TrimSpace(body.Status))

	return &body, nil
}

func (r *UpdateOrderStatusRequest) Validate() error {
	if !entity.ValidOrderStatus(r.Status) {
		return errors.New("status must be one of pending, paid, cancelled")
	}

	return nil
}
