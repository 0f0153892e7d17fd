package types

import (
	"errors"
	"fmt"
	"math"
	"mime/multipart"
	"net/url"
	"strconv"
	"strings"
	"unicode/utf8"

	"github.com/vibast-solutions/ms-go-shop/app/entity"

	"github.com/labstack/echo/v4"
	"github.com/shopspring/decimal"
)

const (
	DefaultPageSize = 10
	MaxPageSize     = 100
	// MaxPage keeps (page-1)*page_size within a 32-bit offset.
	MaxPage = math.MaxInt32 / MaxPageSize

	maxProductNameLength     = 100
	maxProductCategoryLength = 50
	maxProductTextLength     = 255
	maxProductStock          = math.MaxInt32
	priceScale               = 2
)

// maxProductPrice is the largest value a DECIMAL(12, 2) column holds.
var maxProductPrice = decimal.RequireFromString("9999999999.99")

func init() {
	// Prices are rendered as JSON numbers rather than quoted strings.
	decimal.MarshalJSONWithoutQuotes = true
}

type ProductRequest struct {
	Name        string          `json:"name"`
	Description string          `json:"description"`
	Price       decimal.Decimal `json:"price"`
	Stock       *int            `json:"stock"`
	Category    string          `json:"category"`
	ImageURL    string          `json:"image_url"`
}

func NewProductRequestFromContext(ctx echo.Context) (*ProductRequest, error) {
	var body ProductRequest
	if err := ctx.Bind(&body); err != nil {
		return nil, err
	}

	body.Name = strings.TrimSpace(body.Name)
	body.Category = strings.TrimSpace(body.Category)
	body.ImageURL = strings.TrimSpace(body.ImageURL)
	return &body, nil
}

func (r *ProductRequest) Validate() error {
	if r.Name == "" {
		return errors.New("enter a valid product name")
	}
	if utf8.RuneCountInString(r.Name) > maxProductNameLength {
		return fmt.Errorf("product name must be at most %d characters", maxProductNameLength)
	}
	if utf8.RuneCountInString(r.Description) > maxProductTextLength {
		return fmt.Errorf("description must be at most %d characters", maxProductTextLength)
	}
	if !r.Price.IsPositive() {
		return errors.New("price must be greater than 0")
	}
	if r.Price.Exponent() < -priceScale && !r.Price.Equal(r.Price.Truncate(priceScale)) {
		return errors.New("price must have at most 2 decimal places")
	}
	if r.Price.GreaterThan(maxProductPrice) {
		return fmt.Errorf("price must be at most %s", maxProductPrice.StringFixed(priceScale))
	}
	if r.Stock == nil {
		return errors.New("stock of item is mandatory")
	}
	if *r.Stock < 0 {
		return errors.New("stock cannot be negative")
	}
	if *r.Stock > maxProductStock {
		return fmt.Errorf("stock must be at most %d", maxProductStock)
	}
	if r.Category == "" {
		return errors.New("enter a valid product category")
	}
	if utf8.RuneCountInString(r.Category) > maxProductCategoryLength {
		return fmt.Errorf("product category must be at most %d characters", maxProductCategoryLength)
	}
	if r.ImageURL == "" {
		return errors.New("enter an image url")
	}
	if utf8.RuneCountInString(r.ImageURL) > maxProductTextLength {
		return fmt.Errorf("image url must be at most %d characters", maxProductTextLength)
	}
	if !validHTTPURL(r.ImageURL) {
		return errors.New("a valid image URL is required (should start with http/https)")
	}

	return nil
}

// IDParam reads a positive numeric id from the named path parameter.
func IDParam(ctx echo.Context, name string) (uint64, error) {
	id, err := strconv.ParseUint(ctx.Param(name), 10, 64)
	if err != nil || id == 0 {
		return 0, fmt.Errorf("invalid %s", name)
	}
	return id, nil
}

type AdminListProductsRequest struct {
	Skip  int `query:"skip"`
	Limit int `query:"limit"`
}

func NewAdminListProductsRequestFromContext(ctx echo.Context) (*AdminListProductsRequest, error) {
	body := AdminListProductsRequest{Limit: DefaultPageSize}
	if err := ctx.Bind(&body); err != nil {
		return nil, err
	}

	return &body, nil
}

func (r *AdminListProductsRequest) Validate() error {
	if r.Skip < 0 {
		return errors.New("skip cannot be negative")
	}
	if r.Limit < 1 || r.Limit > MaxPageSize {
		return fmt.Errorf("limit must be between 1 and %d", MaxPageSize)
	}

	return nil
}

type PublicListProductsRequest struct {
	Category string
	MinPrice *decimal.Decimal
	MaxPrice *decimal.Decimal
	SortBy   string
	Page     int
	PageSize int
	// Skip and Limit override Page and PageSize when present.
	Skip  *int
	Limit *int
}

func NewPublicListProductsRequestFromContext(ctx echo.Context) (*PublicListProductsRequest, error) {
	req := &PublicListProductsRequest{
		Category: strings.TrimSpace(ctx.QueryParam("category")),
		SortBy:   strings.TrimSpace(ctx.QueryParam("sort_by")),
		Page:     1,
		PageSize: DefaultPageSize,
	}

	var err error
	if req.MinPrice, err = decimalQueryParam(ctx, "min_price"); err != nil {
		return nil, err
	}
	if req.MaxPrice, err = decimalQueryParam(ctx, "max_price"); err != nil {
		return nil, err
	}
	if value := ctx.QueryParam("page"); value != "" {
		if req.Page, err = strconv.Atoi(value); err != nil {
			return nil, errors.New("page must be an integer")
		}
	}
	if value := ctx.QueryParam("page_size"); value != "" {
		if req.PageSize, err = strconv.Atoi(value); err != nil {
			return nil, errors.New("page_size must be an integer")
		}
	}
	if req.Skip, err = intQueryParam(ctx, "skip"); err != nil {
		return nil, err
	}
	if req.Limit, err = intQueryParam(ctx, "limit"); err != nil {
		return nil, err
	}

	return req, nil
}

func (r *PublicListProductsRequest) Validate() error {
	if r.Page < 1 || r.Page > MaxPage {
		return fmt.Errorf("page must be between 1 and %d", MaxPage)
	}
	if r.PageSize < 1 || r.PageSize > MaxPageSize {
		return fmt.Errorf("page_size must be between 1 and %d", MaxPageSize)
	}
	if r.Skip != nil && *r.Skip < 0 {
		return errors.New("skip cannot be negative")
	}
	if r.Limit != nil && (*r.Limit < 1 || *r.Limit > MaxPageSize) {
		return fmt.Errorf("limit must be between 1 and %d", MaxPageSize)
	}
	if r.MinPrice != nil && r.MinPrice.IsNegative() {
		return errors.New("min_price cannot be negative")
	}
	if r.MinPrice != nil && r.MaxPrice != nil && r.MinPrice.GreaterThan(*r.MaxPrice) {
		return errors.New("min_price cannot be greater than max_price")
	}
	switch r.SortBy {
	case "", entity.ProductSortPriceAsc, entity.ProductSortPriceDesc, entity.ProductSortName:
	default:
		return errors.New("sort_by must be one of price_asc, price_desc, name")
	}

	return nil
}

// Window resolves the requested page into an offset and a row limit.
func (r *PublicListProductsRequest) Window() (int, int) {
	offset := (r.Page - 1) * r.PageSize
	limit := r.PageSize
	if r.Skip != nil {
		offset = *r.Skip
	}
	if r.Limit != nil {
		limit = *r.Limit
	}
	return offset, limit
}

type SearchProductsRequest struct {
	Keyword string `query:"keyword"`
}

func NewSearchProductsRequestFromContext(ctx echo.Context) (*SearchProductsRequest, error) {
	return &SearchProductsRequest{Keyword: strings.TrimSpace(ctx.QueryParam("keyword"))}, nil
}

func (r *SearchProductsRequest) Validate() error {
	if r.Keyword == "" {
		return errors.New("keyword is required")
	}

	return nil
}

type ImageUpload struct {
	Filename    string
	ContentType string
	Size        int64
	Open        func() (multipart.File, error)
}

const MaxImageSize = 5 << 20

func NewImageUploadFromContext(ctx echo.Context) (*ImageUpload, error) {
	header, err := ctx.FormFile("image")
	if err != nil {
		return nil, err
	}

	return &ImageUpload{
		Filename:    header.Filename,
		ContentType: header.Header.Get("Content-Type"),
		Size:        header.Size,
		Open:        header.Open,
	}, nil
}

func (u *ImageUpload) Validate() error {
	if u.Size <= 0 {
		return errors.New("image is empty")
	}
	if u.Size > MaxImageSize {
		return fmt.Errorf("image must be at most %d bytes", MaxImageSize)
	}
	if !strings.HasPrefix(u.ContentType, "image/") {
		return errors.New("file must be an image")
	}

	return nil
}

type ProductResponse struct {
	ID          uint64          `json:"id"`
	Name        string          `json:"name"`
	Description string          `json:"description"`
	Price       decimal.Decimal `json:"price"`
	Stock       int             `json:"stock"`
	Category    string          `json:"category"`
	ImageURL    string          `json:"image_url"`
	CreatedBy   uint64          `json:"created_by"`
}

func NewProductResponse(product *entity.Product) ProductResponse {
	return ProductResponse{
		ID:          product.ID,
		Name:        product.Name,
		Description: product.Description,
		Price:       product.Price,
		Stock:       product.Stock,
		Category:    product.Category,
		ImageURL:    product.ImageURL,
		CreatedBy:   product.CreatedBy,
	}
}

func NewProductListResponse(products []*entity.Product) []ProductResponse {
	res := make([]ProductResponse, 0, len(products))
	for _, product := range products {
		res = append(res, NewProductResponse(product))
	}
	return res
}

func decimalQueryParam(ctx echo.Context, name string) (*decimal.Decimal, error) {
	value := strings.TrimSpace(ctx.QueryParam(name))
	if value == "" {
		return nil, nil
	}
	d, err := decimal.NewFromString(value)
	if err != nil {
		return nil, fmt.Errorf("%s must be a number", name)
	}
	return &d, nil
}

func intQueryParam(ctx echo.Context, name string) (*int, error) {
	value := strings.TrimSpace(ctx.QueryParam(name))
	if value == "" {
		return nil, nil
	}
	n, err := strconv.Atoi(value)
	if err != nil {
		return nil, fmt.Errorf("%s must be an integer", name)
	}
	return &n, nil
}

func validHTTPURL(raw string) bool {
	u, err := url.Parse(raw)
	if err != nil {
		return false
	}
	return (u.Scheme == "http" || u.Scheme == "https") && u.Host != ""
}
