package controller

import (
	"errors"
	"net/http"

	"github.com/vibast-solutions/ms-go-shop/app/service"
	"github.com/vibast-solutions/ms-go-shop/app/types"

	"github.com/labstack/echo/v4"
	"github.com/sirupsen/logrus"
)

const msgOrderNotFound = "Order not found"

type OrderController struct {
	checkoutService service.CheckoutService
	orderService    service.OrderService
}

func NewOrderController(checkoutService service.CheckoutService, orderService service.OrderService) *OrderController {
	return &OrderController{
		checkoutService: checkoutService,
		orderService:    orderService,
	}
}

func (c *OrderController) Checkout(ctx echo.Context) error {
	userID, ok := currentUserID(ctx)
	if !ok {
		return errorJSON(ctx, http.StatusUnauthorized, msgNotAuthenticated)
	}

	logrus.WithField("user_id", userID).Info("Checkout request received")
	result, err := c.checkoutService.Checkout(ctx.Request().Context(), userID)
	if err != nil {
		if errors.Is(err, service.ErrEmptyCart) {
			logrus.WithField("user_id", userID).Warn("Checkout failed: cart is empty")
			return errorJSON(ctx, http.StatusBadRequest, "Cart is empty")
		}
		if errors.Is(err, service.ErrInvalidProduct) {
			logrus.WithField("user_id", userID).Warn("Checkout failed: invalid product in cart")
			return errorJSON(ctx, http.StatusBadRequest, "Invalid product in cart.")
		}
		logrus.WithError(err).WithField("user_id", userID).Error("Checkout failed")
		return errorJSON(ctx, http.StatusInternalServerError, "Failed to process checkout")
	}

	logrus.WithFields(logrus.Fields{
		"user_id":  userID,
		"order_id": result.OrderID,
		"total":    result.TotalAmount.String(),
	}).Info("Checkout successful")
	return ctx.JSON(http.StatusCreated, &types.CheckoutResponse{
		Message:     "Checkout successful",
		OrderID:     result.OrderID,
		TotalAmount: result.TotalAmount,
	})
}

func (c *OrderController) List(ctx echo.Context) error {
	userID, ok := currentUserID(ctx)
	if !ok {
		return errorJSON(ctx, http.StatusUnauthorized, msgNotAuthenticated)
	}

	orders, err := c.orderService.List(ctx.Request().Context(), userID)
	if err != nil {
		logrus.WithError(err).WithField("user_id", userID).Error("List orders failed")
		return errorJSON(ctx, http.StatusInternalServerError, "Failed to retrieve orders")
	}

	return ctx.JSON(http.StatusOK, types.NewOrderSummaryList(orders))
}

func (c *OrderController) Get(ctx echo.Context) error {
	userID, ok := currentUserID(ctx)
	if !ok {
		return errorJSON(ctx, http.StatusUnauthorized, msgNotAuthenticated)
	}

	orderID, err := types.OrderIDParam(ctx)
	if err != nil {
		return errorJSON(ctx, http.StatusUnprocessableEntity, err.Error())
	}

	order, err := c.orderService.Get(ctx.Request().Context(), userID, orderID)
	if err != nil {
		if errors.Is(err, service.ErrOrderNotFound) {
			logrus.WithFields(logrus.Fields{
				"user_id":  userID,
				"order_id": orderID,
			}).Debug("Order not found")
			return errorJSON(ctx, http.StatusNotFound, msgOrderNotFound)
		}
		logrus.WithError(err).WithField("order_id", orderID).Error("Get order failed")
		return errorJSON(ctx, http.StatusInternalServerError, "Failed to retrieve the order")
	}

	return ctx.JSON(http.StatusOK, types.NewOrderResponse(order))
}
