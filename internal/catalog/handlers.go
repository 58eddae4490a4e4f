package catalog

import (
	"encoding/json"
	"errors"
	"math"
	"net/http"
	"strconv"
	"strings"

	"github.com/gorilla/mux"

	"daily-catalog/internal/auth"
	"daily-catalog/internal/logger"
)

const (
	defaultSliceSize = 20
	maxSliceSize     = 100
	// maxPage keeps page*size inside an int32 OFFSET
	maxPage = math.MaxInt32 / maxSliceSize
)

// Handler handles HTTP requests for catalog operations
type Handler struct {
	svc       Service
	jwtSecret string
}

// NewHandler creates a new catalog handler
func NewHandler(svc Service, jwtSecret string) *Handler {
	return &Handler{svc: svc, jwtSecret: jwtSecret}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		logger.Errorf("encode response: %v", err)
	}
}

func pathID(r *http.Request, name string) (int64, bool) {
	id, err := strconv.ParseInt(mux.Vars(r)[name], 10, 64)
	return id, err == nil && id > 0
}

// writeError maps service errors to status codes
func writeError(w http.ResponseWriter, op string, err error) {
	switch {
	case errors.Is(err, ErrInvalidInput):
		http.Error(w, err.Error(), http.StatusBadRequest)
	case errors.Is(err, ErrNotFound):
		http.Error(w, "product not found", http.StatusNotFound)
	default:
		logger.Errorf("%s: %v", op, err)
		http.Error(w, "internal error", http.StatusInternalServerError)
	}
}

// parseListQuery reads main, sub, page, size, sortType and order
func parseListQuery(r *http.Request) (ListQuery, error) {
	v := r.URL.Query()
	q := ListQuery{
		Main:     strings.TrimSpace(v.Get("main")),
		Sub:      strings.TrimSpace(v.Get("sub")),
		SortType: SortCreatedAt,
		Desc:     true,
	}
	if q.Main == "" {
		return q, errors.New("main category is required")
	}

	q.Page, _ = strconv.Atoi(v.Get("page"))
	if q.Page < 0 {
		q.Page = 0
	}
	if q.Page > maxPage {
		q.Page = maxPage
	}
	q.Size, _ = strconv.Atoi(v.Get("size"))
	if q.Size <= 0 {
		q.Size = defaultSliceSize
	}
	if q.Size > maxSliceSize {
		q.Size = maxSliceSize
	}

	if st := SortType(v.Get("sortType")); st != "" {
		if _, ok := sortColumns[st]; ok {
			q.SortType = st
		}
	}
	if order := v.Get("order"); order != "" {
		q.Desc = !strings.EqualFold(order, "ASC")
	}
	return q, nil
}

// GetProduct handles GET /products/details/{product-id}
func (h *Handler) GetProduct(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r, "product-id")
	if !ok {
		http.Error(w, "invalid product id", http.StatusBadRequest)
		return
	}

	product, err := h.svc.GetProduct(r.Context(), id)
	if err != nil {
		writeError(w, "GetProduct", err)
		return
	}
	if product == nil {
		http.Error(w, "product not found", http.StatusNotFound)
		return
	}

	writeJSON(w, http.StatusOK, product)
}

// ListProducts handles GET /products
func (h *Handler) ListProducts(w http.ResponseWriter, r *http.Request) {
	q, err := parseListQuery(r)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	products, err := h.svc.GetProductListByCategory(r.Context(), q)
	if err != nil {
		writeError(w, "ListProducts", err)
		return
	}

	writeJSON(w, http.StatusOK, products)
}

// CountProducts handles GET /products/count
func (h *Handler) CountProducts(w http.ResponseWriter, r *http.Request) {
	main := strings.TrimSpace(r.URL.Query().Get("main"))
	if main == "" {
		http.Error(w, "main category is required", http.StatusBadRequest)
		return
	}

	count, err := h.svc.CountByCategory(r.Context(), main)
	if err != nil {
		writeError(w, "CountProducts", err)
		return
	}

	writeJSON(w, http.StatusOK, CountResponse{Main: main, Count: count})
}

// ScoreTop5 handles GET /products/score
func (h *Handler) ScoreTop5(w http.ResponseWriter, r *http.Request) {
	products, err := h.svc.GetScoreTop5(r.Context())
	if err != nil {
		writeError(w, "ScoreTop5", err)
		return
	}
	writeJSON(w, http.StatusOK, products)
}

// BrandListLikeTop15 handles GET /products/brandListLike
func (h *Handler) BrandListLikeTop15(w http.ResponseWriter, r *http.Request) {
	groups, err := h.svc.GetBrandListLikeTop15(r.Context())
	if err != nil {
		writeError(w, "BrandListLikeTop15", err)
		return
	}
	writeJSON(w, http.StatusOK, groups)
}

// CategoryCreatedTop5 handles GET /products/categoryCreated
func (h *Handler) CategoryCreatedTop5(w http.ResponseWriter, r *http.Request) {
	groups, err := h.svc.GetCategoryCreatedTop5(r.Context())
	if err != nil {
		writeError(w, "CategoryCreatedTop5", err)
		return
	}
	writeJSON(w, http.StatusOK, groups)
}

// SellerListings handles GET /products/sellers/{seller-id}
func (h *Handler) SellerListings(w http.ResponseWriter, r *http.Request) {
	sellerID, ok := pathID(r, "seller-id")
	if !ok {
		http.Error(w, "invalid seller id", http.StatusBadRequest)
		return
	}

	listings, err := h.svc.GetSellerListings(r.Context(), sellerID)
	if err != nil {
		writeError(w, "SellerListings", err)
		return
	}
	writeJSON(w, http.StatusOK, listings)
}

// scopeSeller returns the seller id writes are restricted to; admins are unrestricted
func scopeSeller(c *auth.Claims) int64 {
	if auth.HasRole(c.Roles, "admin") {
		return 0
	}
	return c.SellerID
}

// CreateProduct handles POST /products (seller or admin)
func (h *Handler) CreateProduct(w http.ResponseWriter, r *http.Request) {
	claims, ok := auth.FromContext(r.Context())
	if !ok {
		http.Error(w, "unauthorized", http.StatusUnauthorized)
		return
	}

	var req CreateProductRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}
	if !auth.HasRole(claims.Roles, "admin") {
		req.SellerID = claims.SellerID
	}

	id, err := h.svc.CreateProduct(r.Context(), req)
	if err != nil {
		writeError(w, "CreateProduct", err)
		return
	}

	writeJSON(w, http.StatusCreated, CreatedResponse{ProductID: id})
}

// AddOptions handles POST /products/{product-id}/options (seller or admin)
func (h *Handler) AddOptions(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r, "product-id")
	if !ok {
		http.Error(w, "invalid product id", http.StatusBadRequest)
		return
	}
	claims, ok := auth.FromContext(r.Context())
	if !ok {
		http.Error(w, "unauthorized", http.StatusUnauthorized)
		return
	}

	var req []CreateOptionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}

	opts, err := h.svc.AddOptions(r.Context(), id, scopeSeller(claims), req)
	if err != nil {
		writeError(w, "AddOptions", err)
		return
	}
	writeJSON(w, http.StatusCreated, opts)
}

// UpdateProduct handles PATCH /products/{product-id} (seller or admin)
func (h *Handler) UpdateProduct(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r, "product-id")
	if !ok {
		http.Error(w, "invalid product id", http.StatusBadRequest)
		return
	}
	claims, ok := auth.FromContext(r.Context())
	if !ok {
		http.Error(w, "unauthorized", http.StatusUnauthorized)
		return
	}

	var req UpdateProductRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}

	product, err := h.svc.UpdateProduct(r.Context(), id, scopeSeller(claims), req)
	if err != nil {
		writeError(w, "UpdateProduct", err)
		return
	}

	writeJSON(w, http.StatusOK, product)
}

// DeleteProduct handles DELETE /products/{product-id} (seller or admin)
func (h *Handler) DeleteProduct(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r, "product-id")
	if !ok {
		http.Error(w, "invalid product id", http.StatusBadRequest)
		return
	}
	claims, ok := auth.FromContext(r.Context())
	if !ok {
		http.Error(w, "unauthorized", http.StatusUnauthorized)
		return
	}

	if err := h.svc.DeleteProduct(r.Context(), id, scopeSeller(claims)); err != nil {
		writeError(w, "DeleteProduct", err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// RequireRole is middleware that requires a valid JWT carrying one of roles.
// The verified claims are stored on the request context.
func (h *Handler) RequireRole(roles ...string) func(http.HandlerFunc) http.HandlerFunc {
	return func(next http.HandlerFunc) http.HandlerFunc {
		return func(w http.ResponseWriter, r *http.Request) {
			tokenStr := auth.GetBearerToken(r)
			if tokenStr == "" {
				logger.Debugf("RequireRole: no bearer token provided")
				http.Error(w, "unauthorized", http.StatusUnauthorized)
				return
			}

			claims, err := auth.ParseToken(tokenStr, h.jwtSecret)
			if err != nil {
				logger.Debugf("RequireRole: JWT parse error: %v", err)
				http.Error(w, "unauthorized", http.StatusUnauthorized)
				return
			}

			if !auth.HasAnyRole(claims.Roles, roles...) {
				logger.Debugf("RequireRole: member %d lacks roles %v", claims.MemberID, roles)
				http.Error(w, "forbidden", http.StatusForbidden)
				return
			}
			if !auth.HasRole(claims.Roles, "admin") && claims.SellerID == 0 {
				http.Error(w, "forbidden - seller account required", http.StatusForbidden)
				return
			}

			next(w, r.WithContext(auth.WithClaims(r.Context(), claims)))
		}
	}
}

// Register mounts the catalog routes on r
func (h *Handler) Register(r *mux.Router) {
	write := h.RequireRole("seller", "admin")

	r.HandleFunc("/products", h.ListProducts).Methods(http.MethodGet)
	r.HandleFunc("/products/count", h.CountProducts).Methods(http.MethodGet)
	r.HandleFunc("/products/score", h.ScoreTop5).Methods(http.MethodGet)
	r.HandleFunc("/products/brandListLike", h.BrandListLikeTop15).Methods(http.MethodGet)
	r.HandleFunc("/products/categoryCreated", h.CategoryCreatedTop5).Methods(http.MethodGet)
	r.HandleFunc("/products/details/{product-id:[0-9]+}", h.GetProduct).Methods(http.MethodGet)
	r.HandleFunc("/products/sellers/{seller-id:[0-9]+}", h.SellerListings).Methods(http.MethodGet)

	r.HandleFunc("/products", write(h.CreateProduct)).Methods(http.MethodPost)
	r.HandleFunc("/products/{product-id:[0-9]+}/options", write(h.AddOptions)).Methods(http.MethodPost)
	r.HandleFunc("/products/{product-id:[0-9]+}", write(h.UpdateProduct)).Methods(http.MethodPatch)
	r.HandleFunc("/products/{product-id:[0-9]+}", write(h.DeleteProduct)).Methods(http.MethodDelete)
}
