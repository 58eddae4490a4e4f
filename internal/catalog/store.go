package catalog

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/lib/pq"
)

const listingColumns = `
	p.id, p.img_file_name, p.img_full_path, p.title, p.price,
	p.score, p.review_count, m.nickname, p.category_main`

const listingFrom = `
	FROM catalog.products p
	JOIN catalog.sellers s ON s.id = p.seller_id
	JOIN catalog.members m ON m.id = s.member_id`

var sortColumns = map[SortType]string{
	SortCreatedAt: "p.created_at",
	SortPrice:     "p.price",
	SortScore:     "CASE WHEN p.review_count > 0 THEN p.score / p.review_count ELSE p.score END",
	SortReviews:   "p.review_count",
	SortTitle:     "p.title",
}

const productDetailQuery = `
	SELECT p.id, p.title, p.content::text, p.price, p.img_file_name, p.img_full_path,
	       p.score, p.review_count, p.category_main, p.category_sub, p.created_at,
	       s.id, m.id, m.nickname
	FROM catalog.products p
	JOIN catalog.sellers s ON s.id = p.seller_id
	JOIN catalog.members m ON m.id = s.member_id
	WHERE p.id = $1`

// rankedColumns re-selects listingColumns from a ranked CTE
const rankedColumns = `id, img_file_name, img_full_path, title, price, score, review_count, nickname, category_main`

const topSellerListingsQuery = `
	WITH top_sellers AS (
		SELECT id, like_count FROM catalog.sellers
		ORDER BY like_count DESC, id
		LIMIT $1
	), ranked AS (
		SELECT` + listingColumns + `, ts.like_count, p.created_at,
		       ROW_NUMBER() OVER (PARTITION BY p.seller_id ORDER BY p.created_at DESC, p.id DESC) AS rn
		FROM catalog.products p
		JOIN top_sellers ts ON ts.id = p.seller_id
		JOIN catalog.sellers s ON s.id = p.seller_id
		JOIN catalog.members m ON m.id = s.member_id
	)
	SELECT ` + rankedColumns + `
	FROM ranked
	WHERE rn <= $2
	ORDER BY like_count DESC, nickname, rn`

const newestPerCategoryQuery = `
	WITH ranked AS (
		SELECT` + listingColumns + `,
		       ROW_NUMBER() OVER (PARTITION BY p.category_main ORDER BY p.created_at DESC, p.id DESC) AS rn` +
	listingFrom + `
	)
	SELECT ` + rankedColumns + `
	FROM ranked
	WHERE rn <= $1
	ORDER BY category_main, rn`

// Store handles database operations for products
type Store struct {
	db *sql.DB
}

// NewStore creates a new product store
func NewStore(db *sql.DB) *Store {
	return &Store{db: db}
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanListingRow(sc rowScanner) (ListingRow, error) {
	var r ListingRow
	err := sc.Scan(
		&r.ID, &r.Img.FileName, &r.Img.FullPath, &r.Title, &r.Price,
		&r.Score, &r.Reviews, &r.Nickname, &r.CategoryMain,
	)
	return r, err
}

func collectListingRows(rows *sql.Rows, op string) ([]ListingRow, error) {
	defer rows.Close()

	out := []ListingRow{}
	for rows.Next() {
		r, err := scanListingRow(rows)
		if err != nil {
			return nil, fmt.Errorf("%s scan: %w", op, err)
		}
		out = append(out, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%s rows: %w", op, err)
	}
	return out, nil
}

// GetProduct retrieves a single product with its options. It returns nil when
// the product does not exist.
func (s *Store) GetProduct(ctx context.Context, id int64) (*ProductDetail, error) {
	var (
		d       ProductDetail
		content pq.StringArray
		score   int
	)
	err := s.db.QueryRowContext(ctx, productDetailQuery, id).Scan(
		&d.ProductID, &d.Title, &content, &d.Price, &d.Img.FileName, &d.Img.FullPath,
		&score, &d.ReviewCount, &d.CategoryMain, &d.CategorySub, &d.CreatedAt,
		&d.Seller.SellerID, &d.Seller.MemberID, &d.Seller.Nickname,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("GetProduct query: %w", err)
	}

	d.Content = []string(content)
	d.Score = DetailScore(score)

	opts, err := s.OptionsFor(ctx, []int64{d.ProductID})
	if err != nil {
		return nil, err
	}
	d.Options = opts[d.ProductID]
	if d.Options == nil {
		d.Options = []Option{}
	}

	return &d, nil
}

// buildListQuery builds the category slice query. It fetches one row past the
// page size so the caller can tell whether another slice follows.
func buildListQuery(q ListQuery) (string, []any) {
	var sb strings.Builder
	sb.WriteString("SELECT")
	sb.WriteString(listingColumns)
	sb.WriteString(listingFrom)

	args := []any{q.Main}
	sb.WriteString("\n\tWHERE p.category_main = $1")
	if q.Sub != "" {
		args = append(args, q.Sub)
		fmt.Fprintf(&sb, " AND p.category_sub = $%d", len(args))
	}

	col, ok := sortColumns[q.SortType]
	if !ok {
		col = sortColumns[SortCreatedAt]
	}
	dir := "ASC"
	if q.Desc {
		dir = "DESC"
	}
	fmt.Fprintf(&sb, "\n\tORDER BY %s %s, p.id %s", col, dir, dir)

	args = append(args, q.Size+1)
	fmt.Fprintf(&sb, " LIMIT $%d", len(args))
	args = append(args, q.Page*q.Size)
	fmt.Fprintf(&sb, " OFFSET $%d", len(args))

	return sb.String(), args
}

// ListByCategory returns up to q.Size+1 rows of the requested slice
func (s *Store) ListByCategory(ctx context.Context, q ListQuery) ([]ListingRow, error) {
	query, args := buildListQuery(q)
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("ListByCategory query: %w", err)
	}
	return collectListingRows(rows, "ListByCategory")
}

// CountByCategory returns the number of products in a main category
func (s *Store) CountByCategory(ctx context.Context, main string) (int, error) {
	var count int
	err := s.db.QueryRowContext(ctx,
		"SELECT COUNT(*) FROM catalog.products WHERE category_main = $1", main,
	).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("CountByCategory: %w", err)
	}
	return count, nil
}

// TopScored returns the products with the highest average score
func (s *Store) TopScored(ctx context.Context, limit int) ([]ListingRow, error) {
	query := "SELECT" + listingColumns + listingFrom + `
		ORDER BY ` + sortColumns[SortScore] + ` DESC, p.review_count DESC, p.id
		LIMIT $1`

	rows, err := s.db.QueryContext(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("TopScored query: %w", err)
	}
	return collectListingRows(rows, "TopScored")
}

// TopSellerListings returns the newest products of the most liked sellers,
// ordered by seller likes and then recency
func (s *Store) TopSellerListings(ctx context.Context, sellers, perSeller int) ([]ListingRow, error) {
	rows, err := s.db.QueryContext(ctx, topSellerListingsQuery, sellers, perSeller)
	if err != nil {
		return nil, fmt.Errorf("TopSellerListings query: %w", err)
	}
	return collectListingRows(rows, "TopSellerListings")
}

// NewestPerCategory returns the newest products of every main category
func (s *Store) NewestPerCategory(ctx context.Context, perCategory int) ([]ListingRow, error) {
	rows, err := s.db.QueryContext(ctx, newestPerCategoryQuery, perCategory)
	if err != nil {
		return nil, fmt.Errorf("NewestPerCategory query: %w", err)
	}
	return collectListingRows(rows, "NewestPerCategory")
}

// SellerListings returns every product of one seller, newest first
func (s *Store) SellerListings(ctx context.Context, sellerID int64) ([]ListingRow, error) {
	query := "SELECT" + listingColumns + listingFrom + `
		WHERE p.seller_id = $1
		ORDER BY p.created_at DESC, p.id DESC`

	rows, err := s.db.QueryContext(ctx, query, sellerID)
	if err != nil {
		return nil, fmt.Errorf("SellerListings query: %w", err)
	}
	return collectListingRows(rows, "SellerListings")
}

// OptionsFor loads the options of several products keyed by product id
func (s *Store) OptionsFor(ctx context.Context, productIDs []int64) (map[int64][]Option, error) {
	out := make(map[int64][]Option, len(productIDs))
	if len(productIDs) == 0 {
		return out, nil
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT product_id, id, color, size, stock, price
		FROM catalog.product_options
		WHERE product_id = ANY($1::bigint[])
		ORDER BY product_id, id`, pq.Array(productIDs))
	if err != nil {
		return nil, fmt.Errorf("OptionsFor query: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var (
			pid int64
			o   Option
		)
		if err := rows.Scan(&pid, &o.OptionID, &o.Color, &o.Size, &o.Stock, &o.Price); err != nil {
			return nil, fmt.Errorf("OptionsFor scan: %w", err)
		}
		out[pid] = append(out[pid], o)
	}
	return out, rows.Err()
}

// CreateProduct inserts a product and its options in one transaction
func (s *Store) CreateProduct(ctx context.Context, req CreateProductRequest) (int64, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("CreateProduct begin: %w", err)
	}
	defer tx.Rollback()

	content := req.Content
	if content == nil {
		content = []string{}
	}

	var id int64
	err = tx.QueryRowContext(ctx, `
		INSERT INTO catalog.products (
			seller_id, title, content, price, img_file_name, img_full_path,
			category_main, category_sub
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING id`,
		req.SellerID, req.Title, pq.Array(content), req.Price, req.Img.FileName, req.Img.FullPath,
		req.CategoryMain, req.CategorySub,
	).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("CreateProduct insert: %w", err)
	}

	if _, err := insertOptions(ctx, tx, id, req.Options); err != nil {
		return 0, err
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("CreateProduct commit: %w", err)
	}
	return id, nil
}

func insertOptions(ctx context.Context, tx *sql.Tx, productID int64, opts []CreateOptionRequest) ([]Option, error) {
	out := make([]Option, 0, len(opts))
	for _, o := range opts {
		created := Option{Color: o.Color, Size: o.Size, Stock: o.Stock, Price: o.Price}
		err := tx.QueryRowContext(ctx, `
			INSERT INTO catalog.product_options (product_id, color, size, stock, price)
			VALUES ($1, $2, $3, $4, $5)
			RETURNING id`,
			productID, o.Color, o.Size, o.Stock, o.Price,
		).Scan(&created.OptionID)
		if err != nil {
			return nil, fmt.Errorf("insert option: %w", err)
		}
		out = append(out, created)
	}
	return out, nil
}

// AddOptions attaches options to a product. sellerID 0 skips the ownership check.
func (s *Store) AddOptions(ctx context.Context, productID, sellerID int64, opts []CreateOptionRequest) ([]Option, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("AddOptions begin: %w", err)
	}
	defer tx.Rollback()

	var owner int64
	err = tx.QueryRowContext(ctx,
		"SELECT seller_id FROM catalog.products WHERE id = $1 FOR UPDATE", productID,
	).Scan(&owner)
	if errors.Is(err, sql.ErrNoRows) || (err == nil && sellerID != 0 && owner != sellerID) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("AddOptions lookup: %w", err)
	}

	created, err := insertOptions(ctx, tx, productID, opts)
	if err != nil {
		return nil, err
	}
	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("AddOptions commit: %w", err)
	}
	return created, nil
}

// buildUpdateQuery builds a partial UPDATE from the non-nil request fields.
// sellerID 0 skips the ownership check.
func buildUpdateQuery(id, sellerID int64, req UpdateProductRequest) (string, []any) {
	query := "UPDATE catalog.products SET updated_at = now()"
	args := []any{}
	argCount := 0

	if req.Title != nil {
		argCount++
		query += fmt.Sprintf(", title = $%d", argCount)
		args = append(args, *req.Title)
	}
	if req.Content != nil {
		content := *req.Content
		if content == nil {
			content = []string{}
		}
		argCount++
		query += fmt.Sprintf(", content = $%d", argCount)
		args = append(args, pq.Array(content))
	}
	if req.Price != nil {
		argCount++
		query += fmt.Sprintf(", price = $%d", argCount)
		args = append(args, *req.Price)
	}
	if req.Img != nil {
		argCount++
		query += fmt.Sprintf(", img_file_name = $%d", argCount)
		args = append(args, req.Img.FileName)
		argCount++
		query += fmt.Sprintf(", img_full_path = $%d", argCount)
		args = append(args, req.Img.FullPath)
	}
	if req.CategoryMain != nil {
		argCount++
		query += fmt.Sprintf(", category_main = $%d", argCount)
		args = append(args, *req.CategoryMain)
	}
	if req.CategorySub != nil {
		argCount++
		query += fmt.Sprintf(", category_sub = $%d", argCount)
		args = append(args, *req.CategorySub)
	}

	argCount++
	query += fmt.Sprintf(" WHERE id = $%d", argCount)
	args = append(args, id)
	argCount++
	query += fmt.Sprintf(" AND ($%d::bigint = 0 OR seller_id = $%d::bigint)", argCount, argCount)
	args = append(args, sellerID)

	return query, args
}

// UpdateProduct updates an existing product and returns its new state
func (s *Store) UpdateProduct(ctx context.Context, id, sellerID int64, req UpdateProductRequest) (*ProductDetail, error) {
	query, args := buildUpdateQuery(id, sellerID, req)
	result, err := s.db.ExecContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("UpdateProduct: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return nil, fmt.Errorf("UpdateProduct rows affected: %w", err)
	}
	if rows == 0 {
		return nil, ErrNotFound
	}

	d, err := s.GetProduct(ctx, id)
	if err != nil {
		return nil, err
	}
	if d == nil {
		return nil, ErrNotFound
	}
	return d, nil
}

// DeleteProduct deletes a product by ID. sellerID 0 skips the ownership check.
func (s *Store) DeleteProduct(ctx context.Context, id, sellerID int64) error {
	result, err := s.db.ExecContext(ctx,
		"DELETE FROM catalog.products WHERE id = $1 AND ($2::bigint = 0 OR seller_id = $2::bigint)", id, sellerID)
	if err != nil {
		return fmt.Errorf("DeleteProduct: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("DeleteProduct rows affected: %w", err)
	}
	if rows == 0 {
		return ErrNotFound
	}
	return nil
}

// Ping checks the database connection
func (s *Store) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}
