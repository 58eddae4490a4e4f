package catalog

import (
	"errors"
	"fmt"
	"time"
)

var (
	// ErrNotFound is returned when a product does not exist or is not owned by the caller
	ErrNotFound = errors.New("product not found")
	// ErrInvalidInput wraps request validation failures
	ErrInvalidInput = errors.New("invalid input")
)

// Image is a reference to a stored file
type Image struct {
	FileName string `json:"fileName"`
	FullPath string `json:"fullPath"`
}

// Option is a purchasable variant of a product
type Option struct {
	OptionID int64  `json:"optionId"`
	Color    string `json:"color"`
	Size     string `json:"size"`
	Stock    int    `json:"stock"`
	Price    int    `json:"price"`
}

// Seller identifies the seller of a product
type Seller struct {
	SellerID int64  `json:"sellerId"`
	MemberID int64  `json:"memberId"`
	Nickname string `json:"nickname"`
}

// ProductDetail is the single-product response
type ProductDetail struct {
	ProductID    int64     `json:"productId"`
	Title        string    `json:"title"`
	Content      []string  `json:"content"`
	Price        int       `json:"price"`
	Img          Image     `json:"img"`
	Score        float32   `json:"score"`
	ReviewCount  int       `json:"reviews"`
	CategoryMain string    `json:"categoryMain"`
	CategorySub  string    `json:"categorySub"`
	Seller       Seller    `json:"seller"`
	Options      []Option  `json:"options"`
	CreatedAt    time.Time `json:"createdAt"`
}

// DetailScore scales a raw score to the display range of the detail page
func DetailScore(raw int) float32 {
	return float32(raw) / 10
}

// SliceInfo describes a page of a slice response
type SliceInfo struct {
	Page    int  `json:"page"`
	Size    int  `json:"size"`
	HasNext bool `json:"hasNext"`
}

// SliceResponse is a page of content without a total count
type SliceResponse[T any] struct {
	Content   []T       `json:"content"`
	SliceInfo SliceInfo `json:"sliceInfo"`
}

// CountResponse is returned by GET /products/count
type CountResponse struct {
	Main  string `json:"main"`
	Count int    `json:"count"`
}

// SortType selects the listing order column
type SortType string

const (
	SortCreatedAt SortType = "createdAt"
	SortPrice     SortType = "price"
	SortScore     SortType = "score"
	SortReviews   SortType = "reviews"
	SortTitle     SortType = "title"
)

// ListQuery filters and pages the category listing
type ListQuery struct {
	Main     string
	Sub      string
	Page     int
	Size     int
	SortType SortType
	Desc     bool
}

// CreateProductRequest represents the payload for creating a product
type CreateProductRequest struct {
	SellerID     int64                 `json:"sellerId"`
	Title        string                `json:"title"`
	Content      []string              `json:"content"`
	Price        int                   `json:"price"`
	Img          Image                 `json:"img"`
	CategoryMain string                `json:"categoryMain"`
	CategorySub  string                `json:"categorySub"`
	Options      []CreateOptionRequest `json:"options"`
}

// Validate checks the required fields
func (r CreateProductRequest) Validate() error {
	switch {
	case r.SellerID <= 0:
		return fmt.Errorf("%w: sellerId is required", ErrInvalidInput)
	case r.Title == "":
		return fmt.Errorf("%w: title is required", ErrInvalidInput)
	case r.Price <= 0:
		return fmt.Errorf("%w: price must be positive", ErrInvalidInput)
	case r.CategoryMain == "":
		return fmt.Errorf("%w: categoryMain is required", ErrInvalidInput)
	}
	for _, o := range r.Options {
		if err := o.Validate(); err != nil {
			return err
		}
	}
	return nil
}

// CreateOptionRequest represents one option to attach to a product
type CreateOptionRequest struct {
	Color string `json:"color"`
	Size  string `json:"size"`
	Stock int    `json:"stock"`
	Price int    `json:"price"`
}

// Validate rejects negative stock and price
func (r CreateOptionRequest) Validate() error {
	if r.Stock < 0 || r.Price < 0 {
		return fmt.Errorf("%w: option stock and price must not be negative", ErrInvalidInput)
	}
	return nil
}

// UpdateProductRequest represents the payload for updating a product.
// Nil fields are left unchanged.
type UpdateProductRequest struct {
	Title        *string   `json:"title,omitempty"`
	Content      *[]string `json:"content,omitempty"`
	Price        *int      `json:"price,omitempty"`
	Img          *Image    `json:"img,omitempty"`
	CategoryMain *string   `json:"categoryMain,omitempty"`
	CategorySub  *string   `json:"categorySub,omitempty"`
}

// Validate rejects empty updates and blank required fields
func (r UpdateProductRequest) Validate() error {
	switch {
	case r.Title == nil && r.Content == nil && r.Price == nil && r.Img == nil &&
		r.CategoryMain == nil && r.CategorySub == nil:
		return fmt.Errorf("%w: no fields to update", ErrInvalidInput)
	case r.Title != nil && *r.Title == "":
		return fmt.Errorf("%w: title must not be empty", ErrInvalidInput)
	case r.Price != nil && *r.Price <= 0:
		return fmt.Errorf("%w: price must be positive", ErrInvalidInput)
	case r.CategoryMain != nil && *r.CategoryMain == "":
		return fmt.Errorf("%w: categoryMain must not be empty", ErrInvalidInput)
	}
	return nil
}

// CreatedResponse is returned after a product is created
type CreatedResponse struct {
	ProductID int64 `json:"productId"`
}
