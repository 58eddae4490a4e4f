package catalog

import (
	"context"
	"fmt"

	"daily-catalog/internal/logger"
)

const (
	scoreTopLimit          = 5
	brandTopSellers        = 15
	brandListingsPerSeller = 5
	categoryCreatedLimit   = 5
)

// Service is the boundary the HTTP handlers depend on
type Service interface {
	GetProduct(ctx context.Context, id int64) (*ProductDetail, error)
	GetProductListByCategory(ctx context.Context, q ListQuery) (SliceResponse[ScoredListing], error)
	CountByCategory(ctx context.Context, main string) (int, error)
	GetScoreTop5(ctx context.Context) ([]ScoredListing, error)
	GetBrandListLikeTop15(ctx context.Context) (map[string][]ScoredListing, error)
	GetCategoryCreatedTop5(ctx context.Context) (map[string][]ScoredListing, error)
	GetSellerListings(ctx context.Context, sellerID int64) ([]OptionedListing, error)
	CreateProduct(ctx context.Context, req CreateProductRequest) (int64, error)
	AddOptions(ctx context.Context, productID, sellerID int64, opts []CreateOptionRequest) ([]Option, error)
	UpdateProduct(ctx context.Context, id, sellerID int64, req UpdateProductRequest) (*ProductDetail, error)
	DeleteProduct(ctx context.Context, id, sellerID int64) error
}

// Repository is the persistence the service reads from; *Store implements it
type Repository interface {
	GetProduct(ctx context.Context, id int64) (*ProductDetail, error)
	ListByCategory(ctx context.Context, q ListQuery) ([]ListingRow, error)
	CountByCategory(ctx context.Context, main string) (int, error)
	TopScored(ctx context.Context, limit int) ([]ListingRow, error)
	TopSellerListings(ctx context.Context, sellers, perSeller int) ([]ListingRow, error)
	NewestPerCategory(ctx context.Context, perCategory int) ([]ListingRow, error)
	SellerListings(ctx context.Context, sellerID int64) ([]ListingRow, error)
	OptionsFor(ctx context.Context, productIDs []int64) (map[int64][]Option, error)
	CreateProduct(ctx context.Context, req CreateProductRequest) (int64, error)
	AddOptions(ctx context.Context, productID, sellerID int64, opts []CreateOptionRequest) ([]Option, error)
	UpdateProduct(ctx context.Context, id, sellerID int64, req UpdateProductRequest) (*ProductDetail, error)
	DeleteProduct(ctx context.Context, id, sellerID int64) error
}

// CatalogService shapes repository rows into listing projections and caches
// the front-page listings
type CatalogService struct {
	repo  Repository
	cache Cache
}

// NewService creates a service; a nil cache disables caching
func NewService(repo Repository, cache Cache) *CatalogService {
	if cache == nil {
		cache = NopCache{}
	}
	return &CatalogService{repo: repo, cache: cache}
}

func scored(rows []ListingRow) []ScoredListing {
	out := make([]ScoredListing, len(rows))
	for i, r := range rows {
		out[i] = NewScoredListing(r)
	}
	return out
}

// groupScored groups rows by key, keeping row order inside each group
func groupScored(rows []ListingRow, key func(ListingRow) string) map[string][]ScoredListing {
	out := map[string][]ScoredListing{}
	for _, r := range rows {
		k := key(r)
		out[k] = append(out[k], NewScoredListing(r))
	}
	return out
}

// cached serves key from the cache, or loads and stores it. Cache failures are
// logged and never fail the request.
func cached[T any](ctx context.Context, c Cache, key string, load func() (T, error)) (T, error) {
	var v T
	hit, err := c.Get(ctx, key, &v)
	if err != nil {
		logger.Warnf("cache read %s: %v", key, err)
	}
	if hit && err == nil {
		return v, nil
	}

	v, err = load()
	if err != nil {
		return v, err
	}
	if err := c.Set(ctx, key, v); err != nil {
		logger.Warnf("cache write %s: %v", key, err)
	}
	return v, nil
}

func (s *CatalogService) invalidate(ctx context.Context) {
	if err := s.cache.Delete(ctx, frontPageKeys...); err != nil {
		logger.Warnf("cache invalidate: %v", err)
	}
}

// GetProduct returns the product detail, or nil when it does not exist
func (s *CatalogService) GetProduct(ctx context.Context, id int64) (*ProductDetail, error) {
	return s.repo.GetProduct(ctx, id)
}

// GetProductListByCategory serves GET /products. The repository returns one
// extra row, which only sets hasNext and is not returned.
func (s *CatalogService) GetProductListByCategory(ctx context.Context, q ListQuery) (SliceResponse[ScoredListing], error) {
	rows, err := s.repo.ListByCategory(ctx, q)
	if err != nil {
		return SliceResponse[ScoredListing]{}, err
	}

	hasNext := len(rows) > q.Size
	if hasNext {
		rows = rows[:q.Size]
	}

	return SliceResponse[ScoredListing]{
		Content:   scored(rows),
		SliceInfo: SliceInfo{Page: q.Page, Size: q.Size, HasNext: hasNext},
	}, nil
}

// CountByCategory serves GET /products/count
func (s *CatalogService) CountByCategory(ctx context.Context, main string) (int, error) {
	return s.repo.CountByCategory(ctx, main)
}

// GetScoreTop5 serves GET /products/score from the cache when possible
func (s *CatalogService) GetScoreTop5(ctx context.Context) ([]ScoredListing, error) {
	return cached(ctx, s.cache, keyScoreTop5, func() ([]ScoredListing, error) {
		rows, err := s.repo.TopScored(ctx, scoreTopLimit)
		if err != nil {
			return nil, err
		}
		return scored(rows), nil
	})
}

// GetBrandListLikeTop15 serves GET /products/brandListLike, grouped by seller nickname
func (s *CatalogService) GetBrandListLikeTop15(ctx context.Context) (map[string][]ScoredListing, error) {
	return cached(ctx, s.cache, keyBrandTop15, func() (map[string][]ScoredListing, error) {
		rows, err := s.repo.TopSellerListings(ctx, brandTopSellers, brandListingsPerSeller)
		if err != nil {
			return nil, err
		}
		return groupScored(rows, func(r ListingRow) string { return r.Nickname }), nil
	})
}

// GetCategoryCreatedTop5 serves GET /products/categoryCreated, grouped by main category
func (s *CatalogService) GetCategoryCreatedTop5(ctx context.Context) (map[string][]ScoredListing, error) {
	return cached(ctx, s.cache, keyCategoryCreated, func() (map[string][]ScoredListing, error) {
		rows, err := s.repo.NewestPerCategory(ctx, categoryCreatedLimit)
		if err != nil {
			return nil, err
		}
		return groupScored(rows, func(r ListingRow) string { return r.CategoryMain }), nil
	})
}

// GetSellerListings returns a seller's products with their options attached
func (s *CatalogService) GetSellerListings(ctx context.Context, sellerID int64) ([]OptionedListing, error) {
	rows, err := s.repo.SellerListings(ctx, sellerID)
	if err != nil {
		return nil, err
	}

	ids := make([]int64, len(rows))
	for i, r := range rows {
		ids[i] = r.ID
	}
	opts, err := s.repo.OptionsFor(ctx, ids)
	if err != nil {
		return nil, fmt.Errorf("GetSellerListings options: %w", err)
	}

	out := make([]OptionedListing, len(rows))
	for i, r := range rows {
		out[i] = NewOptionedListing(r).WithOptions(opts[r.ID])
	}
	return out, nil
}

// CreateProduct validates and stores a product, then drops the cached front-page listings
func (s *CatalogService) CreateProduct(ctx context.Context, req CreateProductRequest) (int64, error) {
	if err := req.Validate(); err != nil {
		return 0, err
	}
	id, err := s.repo.CreateProduct(ctx, req)
	if err != nil {
		return 0, err
	}
	s.invalidate(ctx)
	return id, nil
}

// AddOptions attaches at least one option to a product the seller owns
func (s *CatalogService) AddOptions(ctx context.Context, productID, sellerID int64, opts []CreateOptionRequest) ([]Option, error) {
	if len(opts) == 0 {
		return nil, fmt.Errorf("%w: at least one option is required", ErrInvalidInput)
	}
	for _, o := range opts {
		if err := o.Validate(); err != nil {
			return nil, err
		}
	}
	return s.repo.AddOptions(ctx, productID, sellerID, opts)
}

// UpdateProduct applies a partial update to a product the seller owns
func (s *CatalogService) UpdateProduct(ctx context.Context, id, sellerID int64, req UpdateProductRequest) (*ProductDetail, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}
	d, err := s.repo.UpdateProduct(ctx, id, sellerID, req)
	if err != nil {
		return nil, err
	}
	s.invalidate(ctx)
	return d, nil
}

// DeleteProduct removes a product the seller owns; sellerID 0 means admin
func (s *CatalogService) DeleteProduct(ctx context.Context, id, sellerID int64) error {
	if err := s.repo.DeleteProduct(ctx, id, sellerID); err != nil {
		return err
	}
	s.invalidate(ctx)
	return nil
}
