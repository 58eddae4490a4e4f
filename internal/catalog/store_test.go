package catalog

import (
	"strings"
	"testing"

	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBuildListQuery_MainOnly(t *testing.T) {
	query, args := buildListQuery(ListQuery{Main: "서재", Page: 2, Size: 10, SortType: SortPrice, Desc: false})

	assert.Contains(t, query, "WHERE p.category_main = $1")
	assert.NotContains(t, query, "category_sub")
	assert.Contains(t, query, "ORDER BY p.price ASC, p.id ASC")
	assert.True(t, strings.HasSuffix(query, "LIMIT $2 OFFSET $3"))
	// one extra row to detect the next slice
	assert.Equal(t, []any{"서재", 11, 20}, args)
}

func TestBuildListQuery_WithSub(t *testing.T) {
	query, args := buildListQuery(ListQuery{Main: "침실", Sub: "침대", Page: 0, Size: 5, SortType: SortScore, Desc: true})

	assert.Contains(t, query, "p.category_main = $1 AND p.category_sub = $2")
	assert.Contains(t, query, "THEN p.score / p.review_count ELSE p.score END DESC, p.id DESC")
	assert.Contains(t, query, "LIMIT $3 OFFSET $4")
	assert.Equal(t, []any{"침실", "침대", 6, 0}, args)
}

func TestBuildListQuery_UnknownSortFallsBack(t *testing.T) {
	query, _ := buildListQuery(ListQuery{Main: "주방", Size: 20, SortType: "id; DROP TABLE catalog.products", Desc: true})

	assert.Contains(t, query, "ORDER BY p.created_at DESC")
	assert.NotContains(t, query, "DROP")
}

func TestSortColumnsCoverEverySortType(t *testing.T) {
	for _, st := range []SortType{SortCreatedAt, SortPrice, SortScore, SortReviews, SortTitle} {
		_, ok := sortColumns[st]
		assert.True(t, ok, "missing column for %s", st)
	}
}

func TestBuildListQuery_DeepestPageOffsetFits(t *testing.T) {
	_, args := buildListQuery(ListQuery{Main: "a", Page: maxPage, Size: maxSliceSize, SortType: SortCreatedAt, Desc: true})

	offset := args[len(args)-1].(int)
	assert.Positive(t, offset)
	assert.LessOrEqual(t, offset, 1<<31-1)
}

func TestBuildUpdateQuery(t *testing.T) {
	title, price := "walnut desk", 130000
	content := []string{"/img/a.png"}
	query, args := buildUpdateQuery(5, 3, UpdateProductRequest{
		Title:   &title,
		Content: &content,
		Price:   &price,
		Img:     &Image{FileName: "a.png", FullPath: "/img/a.png"},
	})

	assert.Equal(t, "UPDATE catalog.products SET updated_at = now()"+
		", title = $1, content = $2, price = $3, img_file_name = $4, img_full_path = $5"+
		" WHERE id = $6 AND ($7::bigint = 0 OR seller_id = $7::bigint)", query)
	require.Len(t, args, 7)
	assert.Equal(t, "walnut desk", args[0])
	assert.Equal(t, pq.Array(content), args[1])
	assert.Equal(t, []any{130000, "a.png", "/img/a.png", int64(5), int64(3)}, args[2:])
}

func TestBuildUpdateQuery_CategoriesOnly(t *testing.T) {
	main, sub := "침실", ""
	query, args := buildUpdateQuery(9, 0, UpdateProductRequest{CategoryMain: &main, CategorySub: &sub})

	assert.Contains(t, query, "SET updated_at = now(), category_main = $1, category_sub = $2 WHERE id = $3")
	assert.NotContains(t, query, "title")
	assert.Equal(t, []any{"침실", "", int64(9), int64(0)}, args)
}

func TestUpdateProductRequest_Validate(t *testing.T) {
	empty, title, zero := "", "desk", 0

	assert.ErrorIs(t, UpdateProductRequest{}.Validate(), ErrInvalidInput)
	assert.ErrorIs(t, UpdateProductRequest{Title: &empty}.Validate(), ErrInvalidInput)
	assert.ErrorIs(t, UpdateProductRequest{Price: &zero}.Validate(), ErrInvalidInput)
	assert.ErrorIs(t, UpdateProductRequest{CategoryMain: &empty}.Validate(), ErrInvalidInput)
	assert.NoError(t, UpdateProductRequest{Title: &title}.Validate())
	assert.NoError(t, UpdateProductRequest{CategorySub: &empty}.Validate())
}

func TestProductDetailQuery_ContentAsText(t *testing.T) {
	assert.Contains(t, productDetailQuery, "p.content::text")
	assert.Contains(t, productDetailQuery, "WHERE p.id = $1")

	// the text form Postgres returns for the content array
	var content pq.StringArray
	require.NoError(t, content.Scan(`{/img/desk-1.png,"/img/desk 2.png"}`))
	assert.Equal(t, []string{"/img/desk-1.png", "/img/desk 2.png"}, []string(content))

	require.NoError(t, content.Scan(`{}`))
	assert.Empty(t, []string(content))
}

func TestTopSellerListingsQuery(t *testing.T) {
	q := topSellerListingsQuery

	assert.Contains(t, q, "ORDER BY like_count DESC, id\n\t\tLIMIT $1")
	assert.Contains(t, q, "ROW_NUMBER() OVER (PARTITION BY p.seller_id ORDER BY p.created_at DESC, p.id DESC) AS rn")
	assert.Contains(t, q, "JOIN top_sellers ts ON ts.id = p.seller_id")
	assert.Contains(t, q, "WHERE rn <= $2")
	assert.True(t, strings.HasSuffix(q, "ORDER BY like_count DESC, nickname, rn"))
	assertRankedColumnsMatchListing(t, q)
}

func TestNewestPerCategoryQuery(t *testing.T) {
	q := newestPerCategoryQuery

	assert.Contains(t, q, "ROW_NUMBER() OVER (PARTITION BY p.category_main ORDER BY p.created_at DESC, p.id DESC) AS rn")
	assert.Contains(t, q, "FROM catalog.products p")
	assert.Contains(t, q, "WHERE rn <= $1")
	assert.NotContains(t, q, "$2")
	assert.True(t, strings.HasSuffix(q, "ORDER BY category_main, rn"))
	assertRankedColumnsMatchListing(t, q)
}

// assertRankedColumnsMatchListing checks the outer select re-reads the
// listing columns in scanListingRow order
func assertRankedColumnsMatchListing(t *testing.T, query string) {
	t.Helper()

	var want []string
	for _, col := range strings.Split(listingColumns, ",") {
		col = strings.TrimSpace(col)
		want = append(want, col[strings.Index(col, ".")+1:])
	}
	assert.Equal(t, strings.Join(want, ", "), rankedColumns)
	assert.Contains(t, query, "SELECT "+rankedColumns+"\n\tFROM ranked")
}
