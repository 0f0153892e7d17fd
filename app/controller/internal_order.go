package controller

import (
	"errors"
	"net/http"

	"github.com/vibast-solutions/ms-go-shop/app/middleware"
	"github.com/vibast-solutions/ms-go-shop/app/service"
	"github.com/vibast-solutions/ms-go-shop/app/types"

	"github.com/labstack/echo/v4"
	"github.com/sirupsen/logrus"
)

// InternalOrderController serves the order endpoints reserved for sibling
// services holding an internal API key.
type InternalOrderController struct {
	orderService service.OrderService
}

func NewInternalOrderController(orderService service.OrderService) *InternalOrderController {
	return &InternalOrderController{orderService: orderService}
}

// Access echoes the identity resolved from the caller's API key.
func (c *InternalOrderController) Access(ctx echo.Context) error {
	res := &types.InternalAccessResponse{AllowedAccess: []string{}}
	if caller := middleware.Caller(ctx); caller != nil {
		res.ServiceName = caller.ServiceName
		if caller.AllowedAccess != nil {
			res.AllowedAccess = caller.AllowedAccess
		}
	}

	return ctx.JSON(http.StatusOK, res)
}

func (c *InternalOrderController) GetOrder(ctx echo.Context) error {
	orderID, err := types.OrderIDParam(ctx)
	if err != nil {
		return errorJSON(ctx, http.StatusUnprocessableEntity, err.Error())
	}

	order, err := c.orderService.GetAny(ctx.Request().Context(), orderID)
	if err != nil {
		if errors.Is(err, service.ErrOrderNotFound) {
			return errorJSON(ctx, http.StatusNotFound, msgOrderNotFound)
		}
		logrus.WithError(err).WithField("order_id", orderID).Error("Internal get order failed")
		return errorJSON(ctx, http.StatusInternalServerError, msgInternalError)
	}

	return ctx.JSON(http.StatusOK, types.NewOrderResponse(order))
}

func (c *InternalOrderController) UpdateStatus(ctx echo.Context) error {
	req, err := types.NewUpdateOrderStatusRequestFromContext(ctx)
	if err != nil {
		logrus.WithError(err).Debug("Failed to bind order status request")
		return errorJSON(ctx, http.StatusUnprocessableEntity, msgValidationError)
	}

	if err = req.Validate(); err != nil {
		return errorJSON(ctx, http.StatusBadRequest, err.Error())
	}

	fields := logrus.Fields{
		"order_id": req.OrderID,
		"status":   req.Status,
		"caller":   callerName(ctx),
	}
	order, err := c.orderService.UpdateStatus(ctx.Request().Context(), req)
	if err != nil {
		if errors.Is(err, service.ErrOrderNotFound) {
			logrus.WithFields(fields).Warn("Order status update failed: not found")
			return errorJSON(ctx, http.StatusNotFound, msgOrderNotFound)
		}
		if errors.Is(err, service.ErrInvalidOrderStatus) {
			return errorJSON(ctx, http.StatusBadRequest, err.Error())
		}
		logrus.WithError(err).WithFields(fields).Error("Order status update failed")
		return errorJSON(ctx, http.StatusInternalServerError, msgInternalError)
	}

	logrus.WithFields(fields).Info("Order status updated")
	return ctx.JSON(http.StatusOK, types.NewOrderResponse(order))
}

func callerName(ctx echo.Context) string {
	if caller := middleware.Caller(ctx); caller != nil {
		return caller.ServiceName
	}
	return ""
}
