// Package catalog serves the public product catalog and the admin product
// maintenance screens.
package catalog

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	validator "github.com/go-playground/validator/v10"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/rs/zerolog"

	"github.com/noah-isme/ecofor-market/internal/audit"
	"github.com/noah-isme/ecofor-market/internal/common"
	"github.com/noah-isme/ecofor-market/internal/db"
	"github.com/noah-isme/ecofor-market/internal/money"
)

// DefaultPerPage is the public page size.
const DefaultPerPage = 12

var (
	// ErrNotFound indicates the product does not exist or is not visible.
	ErrNotFound = &common.AppError{Code: "NOT_FOUND", Message: "product not found", HTTPStatus: http.StatusNotFound}
	// ErrHasStock is returned when deleting a product that still has units.
	ErrHasStock = &common.AppError{Code: "PRODUCT_HAS_STOCK", Message: "products with stock cannot be deleted", HTTPStatus: http.StatusConflict}
	// ErrReferenced is returned when a product is part of past orders.
	ErrReferenced = &common.AppError{Code: "PRODUCT_REFERENCED", Message: "product is referenced by existing orders", HTTPStatus: http.StatusConflict}
)

// Service orchestrates catalog queries, caching and admin writes.
type Service struct {
	store    db.Store
	cache    *Cache
	audit    audit.Recorder
	validate *validator.Validate
	perPage  int
	logger   *zerolog.Logger
}

// ServiceConfig groups Service dependencies.
type ServiceConfig struct {
	Store     db.Store
	Cache     *Cache
	Audit     audit.Recorder
	Validator *validator.Validate
	PerPage   int
	Logger    *zerolog.Logger
}

// ListParams captures filters for product listing.
type ListParams struct {
	Query    string
	Category string
	Page     int
}

// ProductListResult contains list data and pagination metadata.
type ProductListResult struct {
	Items []db.Product `json:"items"`
	Total int64        `json:"total"`
	Page  int          `json:"page"`
	Limit int          `json:"limit"`
}

// ProductInput is the admin create/update payload.
type ProductInput struct {
	Name        string `json:"name" validate:"required,max=100"`
	Description string `json:"description" validate:"max=2000"`
	Price       int64  `json:"price" validate:"gte=0"`
	Stock       int    `json:"stock" validate:"gte=0"`
	Category    string `json:"category" validate:"omitempty,category"`
	Active      *bool  `json:"active"`
	DiscountPct *int32 `json:"discountPct" validate:"omitempty,gte=0,lte=100"`
}

var nopLogger = zerolog.Nop()

// NewService constructs a Service instance.
func NewService(cfg ServiceConfig) (*Service, error) {
	if cfg.Store == nil {
		return nil, errors.New("catalog: store is required")
	}
	v := cfg.Validator
	if v == nil {
		v = validator.New(validator.WithRequiredStructEnabled())
	}
	if err := RegisterValidations(v); err != nil {
		return nil, fmt.Errorf("catalog: register validations: %w", err)
	}
	perPage := cfg.PerPage
	if perPage < 1 {
		perPage = DefaultPerPage
	}
	logger := cfg.Logger
	if logger == nil {
		logger = &nopLogger
	}
	return &Service{
		store:    cfg.Store,
		cache:    cfg.Cache,
		audit:    cfg.Audit,
		validate: v,
		perPage:  perPage,
		logger:   logger,
	}, nil
}

// RegisterValidations adds the `category` tag to v.
func RegisterValidations(v *validator.Validate) error {
	return v.RegisterValidation("category", func(fl validator.FieldLevel) bool {
		return ValidCategory(fl.Field().String())
	})
}

// ParseListParams normalises raw query values. Unknown categories are
// ignored and malformed pages fall back to the first one.
func (s *Service) ParseListParams(values url.Values) ListParams {
	params := ListParams{Page: 1}
	params.Query = strings.TrimSpace(values.Get("q"))
	if c := strings.TrimSpace(values.Get("category")); ValidCategory(c) {
		params.Category = c
	}
	if v := strings.TrimSpace(values.Get("page")); v != "" {
		if page, err := strconv.Atoi(v); err == nil && page > 0 {
			params.Page = page
		}
	}
	return params
}

// List returns active products with stock, newest first. Pages past the end
// are clamped to the last page.
func (s *Service) List(ctx context.Context, params ListParams) (ProductListResult, error) {
	if params.Page < 1 {
		params.Page = 1
	}
	key := s.cacheKey(ctx, fmt.Sprintf("list:%s:%s:%d", params.Category, strings.ToLower(params.Query), params.Page))
	var cached ProductListResult
	if ok, err := s.cache.GetJSON(ctx, key, &cached); err == nil && ok {
		return cached, nil
	}

	filter := db.ListProductsParams{
		Category:      params.Category,
		Search:        params.Query,
		OnlyAvailable: true,
	}
	total, err := s.store.CountProducts(ctx, filter)
	if err != nil {
		return ProductListResult{}, fmt.Errorf("count products: %w", err)
	}
	page := min(params.Page, lastPage(total, s.perPage))
	filter.Limit = int32(s.perPage)
	filter.Offset = int32((page - 1) * s.perPage)
	items, err := s.store.ListProducts(ctx, filter)
	if err != nil {
		return ProductListResult{}, fmt.Errorf("list products: %w", err)
	}
	if items == nil {
		items = []db.Product{}
	}
	result := ProductListResult{Items: items, Total: total, Page: page, Limit: s.perPage}
	if err := s.cache.SetJSON(ctx, key, result); err != nil {
		s.logger.Warn().Err(err).Str("key", key).Msg("catalog_cache_set")
	}
	return result, nil
}

// Get returns an active product.
func (s *Service) Get(ctx context.Context, id int64) (db.Product, error) {
	key := s.cacheKey(ctx, "product:"+strconv.FormatInt(id, 10))
	var cached db.Product
	if ok, err := s.cache.GetJSON(ctx, key, &cached); err == nil && ok {
		return cached, nil
	}
	p, err := s.store.GetProduct(ctx, id)
	if err != nil {
		if db.IsNotFound(err) {
			return db.Product{}, ErrNotFound
		}
		return db.Product{}, fmt.Errorf("get product: %w", err)
	}
	if !p.Active {
		return db.Product{}, ErrNotFound
	}
	if err := s.cache.SetJSON(ctx, key, p); err != nil {
		s.logger.Warn().Err(err).Str("key", key).Msg("catalog_cache_set")
	}
	return p, nil
}

// ListAll returns every product, including inactive and sold out ones.
func (s *Service) ListAll(ctx context.Context, page int) (ProductListResult, error) {
	page = max(page, 1)
	total, err := s.store.CountProducts(ctx, db.ListProductsParams{})
	if err != nil {
		return ProductListResult{}, fmt.Errorf("count products: %w", err)
	}
	limit := s.perPage * 4
	items, err := s.store.ListProducts(ctx, db.ListProductsParams{Limit: int32(limit), Offset: int32((page - 1) * limit)})
	if err != nil {
		return ProductListResult{}, fmt.Errorf("list products: %w", err)
	}
	if items == nil {
		items = []db.Product{}
	}
	return ProductListResult{Items: items, Total: total, Page: page, Limit: limit}, nil
}

// Create validates in and stores a new product.
func (s *Service) Create(ctx context.Context, in ProductInput, actorID int64) (db.Product, error) {
	if err := s.validateInput(in); err != nil {
		return db.Product{}, err
	}
	category := in.Category
	if category == "" {
		category = DefaultCategory
	}
	active := true
	if in.Active != nil {
		active = *in.Active
	}
	p, err := s.store.CreateProduct(ctx, db.CreateProductParams{
		Name:        strings.TrimSpace(in.Name),
		Description: strings.TrimSpace(in.Description),
		Price:       money.FromInt(in.Price),
		Stock:       in.Stock,
		Category:    category,
		Active:      active,
		DiscountPct: discount(in.DiscountPct),
	})
	if err != nil {
		return db.Product{}, fmt.Errorf("create product: %w", err)
	}
	s.invalidate(ctx)
	s.logger.Info().Int64("product_id", p.ID).Int64("actor_id", actorID).Msg("product_created")
	return p, nil
}

// Update replaces the product's fields and records stock and discount changes.
func (s *Service) Update(ctx context.Context, id int64, in ProductInput, actorID int64) (db.Product, error) {
	if err := s.validateInput(in); err != nil {
		return db.Product{}, err
	}
	var after db.Product
	err := s.store.ExecTx(ctx, func(q db.Querier) error {
		before, err := q.GetProductForUpdate(ctx, id)
		if err != nil {
			if db.IsNotFound(err) {
				return ErrNotFound
			}
			return fmt.Errorf("lock product: %w", err)
		}
		category := in.Category
		if category == "" {
			category = before.Category
		}
		active := before.Active
		if in.Active != nil {
			active = *in.Active
		}
		after, err = q.UpdateProduct(ctx, db.UpdateProductParams{
			ID:          id,
			Name:        strings.TrimSpace(in.Name),
			Description: strings.TrimSpace(in.Description),
			Price:       money.FromInt(in.Price),
			Stock:       in.Stock,
			Category:    category,
			Active:      active,
			DiscountPct: discount(in.DiscountPct),
		})
		if err != nil {
			return fmt.Errorf("update product: %w", err)
		}
		return s.audit.ProductChanged(ctx, q, before, after, actorID)
	})
	if err != nil {
		return db.Product{}, err
	}
	s.invalidate(ctx)
	s.logger.Info().Int64("product_id", id).Int64("actor_id", actorID).Msg("product_updated")
	return after, nil
}

// Delete removes a product. Products with stock or order history are kept.
func (s *Service) Delete(ctx context.Context, id int64, actorID int64) error {
	err := s.store.ExecTx(ctx, func(q db.Querier) error {
		p, err := q.GetProductForUpdate(ctx, id)
		if err != nil {
			if db.IsNotFound(err) {
				return ErrNotFound
			}
			return fmt.Errorf("lock product: %w", err)
		}
		if p.Stock > 0 {
			return ErrHasStock
		}
		if err := q.DeleteProduct(ctx, id); err != nil {
			if errors.Is(err, db.ErrReferenced) {
				return ErrReferenced
			}
			return fmt.Errorf("delete product: %w", err)
		}
		return nil
	})
	if err != nil {
		return err
	}
	s.invalidate(ctx)
	s.logger.Info().Int64("product_id", id).Int64("actor_id", actorID).Msg("product_deleted")
	return nil
}

func (s *Service) validateInput(in ProductInput) error {
	err := s.validate.Struct(in)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return fmt.Errorf("validate product: %w", err)
	}
	fields := make(map[string]string, len(verrs))
	for _, fe := range verrs {
		fields[jsonName(fe.Field())] = fe.Tag()
	}
	return &common.AppError{
		Code:       "VALIDATION_ERROR",
		Message:    "invalid product",
		HTTPStatus: http.StatusBadRequest,
		Err:        err,
		Details:    map[string]any{"fields": fields},
	}
}

func (s *Service) cacheKey(ctx context.Context, name string) string {
	key, err := s.cache.Key(ctx, name)
	if err != nil {
		s.logger.Warn().Err(err).Msg("catalog_cache_version")
		return ""
	}
	return key
}

func (s *Service) invalidate(ctx context.Context) {
	if err := s.cache.Bump(ctx); err != nil {
		s.logger.Warn().Err(err).Msg("catalog_cache_bump")
	}
}

func lastPage(total int64, perPage int) int {
	if total <= 0 {
		return 1
	}
	return int((total + int64(perPage) - 1) / int64(perPage))
}

func discount(pct *int32) pgtype.Int4 {
	if pct == nil || *pct == 0 {
		return pgtype.Int4{}
	}
	return pgtype.Int4{Int32: *pct, Valid: true}
}

func jsonName(field string) string {
	if field == "" {
		return field
	}
	return strings.ToLower(field[:1]) + field[1:]
}
