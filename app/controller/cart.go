package controller

import (
	"errors"
	"net/http"

	"github.com/vibast-solutions/ms-go-shop/app/service"
	"github.com/vibast-solutions/ms-go-shop/app/types"

	"github.com/labstack/echo/v4"
	"github.com/sirupsen/logrus"
)

const (
	msgCartItemExists   = "Product already in cart. Update quantity instead."
	msgCartItemNotFound = "Cart item not found"
	msgInvalidQuantity  = "Quantity must be between 1 and 100"
)

type CartController struct {
	cartService service.CartService
}

func NewCartController(cartService service.CartService) *CartController {
	return &CartController{cartService: cartService}
}

func (c *CartController) Add(ctx echo.Context) error {
	userID, ok := currentUserID(ctx)
	if !ok {
		return errorJSON(ctx, http.StatusUnauthorized, msgNotAuthenticated)
	}

	req, err := types.NewAddCartItemRequestFromContext(ctx)
	if err != nil {
		logrus.WithError(err).Debug("Failed to bind add to cart request")
		return errorJSON(ctx, http.StatusUnprocessableEntity, msgValidationError)
	}

	if err = req.Validate(); err != nil {
		return errorJSON(ctx, http.StatusUnprocessableEntity, err.Error())
	}

	fields := logrus.Fields{"user_id": userID, "product_id": req.ProductID}
	item, err := c.cartService.Add(ctx.Request().Context(), userID, req)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrCartItemExists):
			logrus.WithFields(fields).Warn("Add to cart failed: already in cart")
			return errorJSON(ctx, http.StatusBadRequest, msgCartItemExists)
		case errors.Is(err, service.ErrProductNotFound):
			logrus.WithFields(fields).Warn("Add to cart failed: product not found")
			return errorJSON(ctx, http.StatusNotFound, msgProductNotFound)
		case errors.Is(err, service.ErrInvalidQuantity):
			logrus.WithFields(fields).Warn("Add to cart failed: invalid quantity")
			return errorJSON(ctx, http.StatusBadRequest, msgInvalidQuantity)
		}
		logrus.WithError(err).WithFields(fields).Error("Add to cart failed")
		return errorJSON(ctx, http.StatusInternalServerError, "Failed to add product to cart")
	}

	logrus.WithFields(fields).Info("Product added to cart")
	return ctx.JSON(http.StatusCreated, types.NewCartItemResponse(item))
}

func (c *CartController) List(ctx echo.Context) error {
	userID, ok := currentUserID(ctx)
	if !ok {
		return errorJSON(ctx, http.StatusUnauthorized, msgNotAuthenticated)
	}

	items, err := c.cartService.List(ctx.Request().Context(), userID)
	if err != nil {
		logrus.WithError(err).WithField("user_id", userID).Error("Fetch cart failed")
		return errorJSON(ctx, http.StatusInternalServerError, "Failed to fetch cart items")
	}

	return ctx.JSON(http.StatusOK, types.NewCartListResponse(items))
}

func (c *CartController) UpdateQuantity(ctx echo.Context) error {
	userID, ok := currentUserID(ctx)
	if !ok {
		return errorJSON(ctx, http.StatusUnauthorized, msgNotAuthenticated)
	}

	req, err := types.NewUpdateCartItemRequestFromContext(ctx)
	if err != nil {
		logrus.WithError(err).Debug("Failed to bind cart update request")
		return errorJSON(ctx, http.StatusUnprocessableEntity, msgValidationError)
	}

	if err = req.Validate(); err != nil {
		return errorJSON(ctx, http.StatusUnprocessableEntity, err.Error())
	}

	fields := logrus.Fields{"user_id": userID, "product_id": req.ProductID}
	item, err := c.cartService.UpdateQuantity(ctx.Request().Context(), userID, req)
	if err != nil {
		if errors.Is(err, service.ErrCartItemNotFound) {
			logrus.WithFields(fields).Warn("Update cart failed: item not found")
			return errorJSON(ctx, http.StatusNotFound, msgCartItemNotFound)
		}
		if errors.Is(err, service.ErrInvalidQuantity) {
			logrus.WithFields(fields).Warn("Update cart failed: invalid quantity")
			return errorJSON(ctx, http.StatusBadRequest, msgInvalidQuantity)
		}
		logrus.WithError(err).WithFields(fields).Error("Update cart failed")
		return errorJSON(ctx, http.StatusInternalServerError, "Failed to update cart quantity")
	}

	logrus.WithFields(fields).Info("Cart quantity updated")
	return ctx.JSON(http.StatusOK, types.NewCartItemResponse(item))
}

func (c *CartController) Remove(ctx echo.Context) error {
	userID, ok := currentUserID(ctx)
	if !ok {
		return errorJSON(ctx, http.StatusUnauthorized, msgNotAuthenticated)
	}

	productID, err := types.IDParam(ctx, "product_id")
	if err != nil {
		return errorJSON(ctx, http.StatusUnprocessableEntity, err.Error())
	}

	fields := logrus.Fields{"user_id": userID, "product_id": productID}
	if err = c.cartService.Remove(ctx.Request().Context(), userID, productID); err != nil {
		if errors.Is(err, service.ErrCartItemNotFound) {
			logrus.WithFields(fields).Warn("Remove from cart failed: item not found")
			return errorJSON(ctx, http.StatusNotFound, msgCartItemNotFound)
		}
		logrus.WithError(err).WithFields(fields).Error("Remove from cart failed")
		return errorJSON(ctx, http.StatusInternalServerError, "Failed to remove item from cart")
	}

	logrus.WithFields(fields).Info("Item removed from cart")
	return ctx.JSON(http.StatusOK, &types.CartRemovedResponse{
		Error:   false,
		Message: "Item removed from the cart successfully.",
		Code:    http.StatusOK,
	})
}
