package controller

import (
	"errors"
	"net/http"

	"github.com/vibast-solutions/ms-go-shop/app/service"
	"github.com/vibast-solutions/ms-go-shop/app/types"

	"github.com/labstack/echo/v4"
	"github.com/sirupsen/logrus"
)

const msgProductNotFound = "Product not found"

type ProductController struct {
	catalogService service.CatalogService
}

func NewProductController(catalogService service.CatalogService) *ProductController {
	return &ProductController{catalogService: catalogService}
}

func (c *ProductController) Create(ctx echo.Context) error {
	userID, ok := currentUserID(ctx)
	if !ok {
		return errorJSON(ctx, http.StatusUnauthorized, msgNotAuthenticated)
	}

	req, err := types.NewProductRequestFromContext(ctx)
	if err != nil {
		logrus.WithError(err).Debug("Failed to bind product request")
		return errorJSON(ctx, http.StatusUnprocessableEntity, msgValidationError)
	}

	if err = req.Validate(); err != nil {
		logrus.WithField("user_id", userID).Debug("Product validation failed")
		return errorJSON(ctx, http.StatusBadRequest, err.Error())
	}

	product, err := c.catalogService.Create(ctx.Request().Context(), userID, req)
	if err != nil {
		logrus.WithError(err).WithField("user_id", userID).Error("Create product failed")
		return errorJSON(ctx, http.StatusInternalServerError, "Failed to create product")
	}

	logrus.WithFields(logrus.Fields{
		"user_id":    userID,
		"product_id": product.ID,
	}).Info("Product created")
	return ctx.JSON(http.StatusOK, types.NewProductResponse(product))
}

func (c *ProductController) List(ctx echo.Context) error {
	req, err := types.NewAdminListProductsRequestFromContext(ctx)
	if err != nil {
		logrus.WithError(err).Debug("Failed to bind product list request")
		return errorJSON(ctx, http.StatusUnprocessableEntity, msgValidationError)
	}

	if err = req.Validate(); err != nil {
		return errorJSON(ctx, http.StatusUnprocessableEntity, err.Error())
	}

	products, err := c.catalogService.ListAll(ctx.Request().Context(), req)
	if err != nil {
		logrus.WithError(err).Error("List products failed")
		return errorJSON(ctx, http.StatusInternalServerError, "Failed to fetch products")
	}

	return ctx.JSON(http.StatusOK, types.NewProductListResponse(products))
}

func (c *ProductController) Get(ctx echo.Context) error {
	id, err := types.IDParam(ctx, "id")
	if err != nil {
		return errorJSON(ctx, http.StatusUnprocessableEntity, err.Error())
	}

	product, err := c.catalogService.Get(ctx.Request().Context(), id)
	if err != nil {
		if errors.Is(err, service.ErrProductNotFound) {
			logrus.WithField("product_id", id).Debug("Product not found")
			return errorJSON(ctx, http.StatusNotFound, msgProductNotFound)
		}
		logrus.WithError(err).WithField("product_id", id).Error("Get product failed")
		return errorJSON(ctx, http.StatusInternalServerError, "Failed to get product")
	}

	return ctx.JSON(http.StatusOK, types.NewProductResponse(product))
}

func (c *ProductController) Update(ctx echo.Context) error {
	userID, ok := currentUserID(ctx)
	if !ok {
		return errorJSON(ctx, http.StatusUnauthorized, msgNotAuthenticated)
	}

	id, err := types.IDParam(ctx, "id")
	if err != nil {
		return errorJSON(ctx, http.StatusUnprocessableEntity, err.Error())
	}

	req, err := types.NewProductRequestFromContext(ctx)
	if err != nil {
		logrus.WithError(err).Debug("Failed to bind product request")
		return errorJSON(ctx, http.StatusUnprocessableEntity, msgValidationError)
	}

	if err = req.Validate(); err != nil {
		logrus.WithField("product_id", id).Debug("Product validation failed")
		return errorJSON(ctx, http.StatusBadRequest, err.Error())
	}

	product, err := c.catalogService.Update(ctx.Request().Context(), userID, id, req)
	if err != nil {
		fields := logrus.Fields{"user_id": userID, "product_id": id}
		if errors.Is(err, service.ErrProductNotFound) {
			logrus.WithFields(fields).Warn("Update product failed: not found")
			return errorJSON(ctx, http.StatusNotFound, msgProductNotFound)
		}
		if errors.Is(err, service.ErrProductForbidden) {
			logrus.WithFields(fields).Warn("Update product failed: not the owner")
			return errorJSON(ctx, http.StatusForbidden, "You are not allowed to update this product.")
		}
		logrus.WithError(err).WithFields(fields).Error("Update product failed")
		return errorJSON(ctx, http.StatusInternalServerError, "Failed to update product")
	}

	logrus.WithFields(logrus.Fields{
		"user_id":    userID,
		"product_id": id,
	}).Info("Product updated")
	return ctx.JSON(http.StatusOK, types.NewProductResponse(product))
}

func (c *ProductController) Delete(ctx echo.Context) error {
	userID, ok := currentUserID(ctx)
	if !ok {
		return errorJSON(ctx, http.StatusUnauthorized, msgNotAuthenticated)
	}

	id, err := types.IDParam(ctx, "id")
	if err != nil {
		return errorJSON(ctx, http.StatusUnprocessableEntity, err.Error())
	}

	if err = c.catalogService.Delete(ctx.Request().Context(), userID, id); err != nil {
		fields := logrus.Fields{"user_id": userID, "product_id": id}
		if errors.Is(err, service.ErrProductNotFound) {
			logrus.WithFields(fields).Warn("Delete product failed: not found")
			return errorJSON(ctx, http.StatusNotFound, msgProductNotFound)
		}
		if errors.Is(err, service.ErrProductForbidden) {
			logrus.WithFields(fields).Warn("Delete product failed: not the owner")
			return errorJSON(ctx, http.StatusForbidden, "You are not allowed to delete this product.")
		}
		logrus.WithError(err).WithFields(fields).Error("Delete product failed")
		return errorJSON(ctx, http.StatusInternalServerError, "Failed to delete product")
	}

	logrus.WithFields(logrus.Fields{
		"user_id":    userID,
		"product_id": id,
	}).Info("Product deleted")
	return ctx.JSON(http.StatusOK, &types.MessageResponse{Message: "Product deleted successfully"})
}

func (c *ProductController) UploadImage(ctx echo.Context) error {
	userID, ok := currentUserID(ctx)
	if !ok {
		return errorJSON(ctx, http.StatusUnauthorized, msgNotAuthenticated)
	}

	id, err := types.IDParam(ctx, "id")
	if err != nil {
		return errorJSON(ctx, http.StatusUnprocessableEntity, err.Error())
	}

	upload, err := types.NewImageUploadFromContext(ctx)
	if err != nil {
		logrus.WithError(err).Debug("Failed to read image upload")
		return errorJSON(ctx, http.StatusUnprocessableEntity, "image file is required")
	}

	if err = upload.Validate(); err != nil {
		return errorJSON(ctx, http.StatusBadRequest, err.Error())
	}

	product, err := c.catalogService.UploadImage(ctx.Request().Context(), userID, id, upload)
	if err != nil {
		fields := logrus.Fields{"user_id": userID, "product_id": id}
		switch {
		case errors.Is(err, service.ErrImageStorageDisabled):
			logrus.WithFields(fields).Warn("Image upload refused: storage disabled")
			return errorJSON(ctx, http.StatusServiceUnavailable, "Image uploads are not enabled")
		case errors.Is(err, service.ErrProductNotFound):
			return errorJSON(ctx, http.StatusNotFound, msgProductNotFound)
		case errors.Is(err, service.ErrProductForbidden):
			logrus.WithFields(fields).Warn("Image upload failed: not the owner")
			return errorJSON(ctx, http.StatusForbidden, "You are not allowed to update this product.")
		}
		logrus.WithError(err).WithFields(fields).Error("Image upload failed")
		return errorJSON(ctx, http.StatusInternalServerError, "Failed to upload image")
	}

	logrus.WithFields(logrus.Fields{
		"product_id": id,
		"image_url":  product.ImageURL,
	}).Info("Product image uploaded")
	return ctx.JSON(http.StatusOK, types.NewProductResponse(product))
}

func (c *ProductController) PublicList(ctx echo.Context) error {
	req, err := types.NewPublicListProductsRequestFromContext(ctx)
	if err != nil {
		logrus.WithError(err).Debug("Failed to parse public product filter")
		return errorJSON(ctx, http.StatusUnprocessableEntity, err.Error())
	}

	if err = req.Validate(); err != nil {
		return errorJSON(ctx, http.StatusUnprocessableEntity, err.Error())
	}

	products, err := c.catalogService.ListPublic(ctx.Request().Context(), req)
	if err != nil {
		logrus.WithError(err).Error("List public products failed")
		return errorJSON(ctx, http.StatusInternalServerError, "Failed to list products")
	}

	return ctx.JSON(http.StatusOK, types.NewProductListResponse(products))
}

func (c *ProductController) Search(ctx echo.Context) error {
	req, err := types.NewSearchProductsRequestFromContext(ctx)
	if err != nil {
		return errorJSON(ctx, http.StatusUnprocessableEntity, msgValidationError)
	}

	if err = req.Validate(); err != nil {
		return errorJSON(ctx, http.StatusUnprocessableEntity, err.Error())
	}

	products, err := c.catalogService.Search(ctx.Request().Context(), req)
	if err != nil {
		logrus.WithError(err).WithField("keyword", req.Keyword).Error("Search products failed")
		return errorJSON(ctx, http.StatusInternalServerError, "Failed to search products")
	}

	return ctx.JSON(http.StatusOK, types.NewProductListResponse(products))
}
