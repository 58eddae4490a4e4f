package catalog

import (
	"encoding/json"
	"slices"
)

// ListingRow is one aggregate row as the store reads it.
// Score is the sum of per-review ratings and Reviews the number of reviews summed.
type ListingRow struct {
	ID           int64
	Img          Image
	Title        string
	Price        int
	Score        int
	Reviews      int
	Nickname     string
	CategoryMain string
}

// NormalizeScore turns a summed score into a per-review average on a 0..10 scale.
// The score is truncated and divided as integers before scaling. A review count
// of zero or less returns the score unchanged.
func NormalizeScore(score float32, reviews int) float32 {
	if reviews > 0 {
		return float32(int(score)/reviews) / 10
	}
	return score
}

// ScoredListing is a listing card whose score has been normalized
type ScoredListing struct {
	id           int64
	img          Image
	title        string
	price        int
	score        float32
	nickname     string
	categoryMain string
	reviews      int
}

// NewScoredListing builds a listing card from a row, normalizing its score
func NewScoredListing(row ListingRow) ScoredListing {
	return ScoredListing{
		id:           row.ID,
		img:          row.Img,
		title:        row.Title,
		price:        row.Price,
		score:        NormalizeScore(float32(row.Score), row.Reviews),
		nickname:     row.Nickname,
		categoryMain: row.CategoryMain,
		reviews:      row.Reviews,
	}
}

func (l ScoredListing) ID() int64            { return l.id }
func (l ScoredListing) Img() Image           { return l.img }
func (l ScoredListing) Title() string        { return l.title }
func (l ScoredListing) Price() int           { return l.price }
func (l ScoredListing) Score() float32       { return l.score }
func (l ScoredListing) Nickname() string     { return l.nickname }
func (l ScoredListing) CategoryMain() string { return l.categoryMain }
func (l ScoredListing) Reviews() int         { return l.reviews }

type scoredListingJSON struct {
	ID           int64   `json:"id"`
	Img          Image   `json:"img"`
	Title        string  `json:"title"`
	Price        int     `json:"price"`
	Score        float32 `json:"score"`
	Nickname     string  `json:"nickname"`
	CategoryMain string  `json:"categoryMain"`
	Reviews      int     `json:"reviews"`
}

func (l ScoredListing) MarshalJSON() ([]byte, error) {
	return json.Marshal(scoredListingJSON{
		ID:           l.id,
		Img:          l.img,
		Title:        l.title,
		Price:        l.price,
		Score:        l.score,
		Nickname:     l.nickname,
		CategoryMain: l.categoryMain,
		Reviews:      l.reviews,
	})
}

// UnmarshalJSON restores an already normalized listing, e.g. from the cache.
// The score is taken as is.
func (l *ScoredListing) UnmarshalJSON(b []byte) error {
	var w scoredListingJSON
	if err := json.Unmarshal(b, &w); err != nil {
		return err
	}
	*l = ScoredListing{
		id:           w.ID,
		img:          w.Img,
		title:        w.Title,
		price:        w.Price,
		score:        w.Score,
		nickname:     w.Nickname,
		categoryMain: w.CategoryMain,
		reviews:      w.Reviews,
	}
	return nil
}

// OptionedListing is a listing card carrying the raw integer score and the
// product's options
type OptionedListing struct {
	id           int64
	img          Image
	title        string
	price        int
	score        int
	nickname     string
	categoryMain string
	reviews      int
	options      []Option
}

// NewOptionedListing builds a listing card with the raw score and the given options
func NewOptionedListing(row ListingRow, opts ...Option) OptionedListing {
	return OptionedListing{
		id:           row.ID,
		img:          row.Img,
		title:        row.Title,
		price:        row.Price,
		score:        row.Score,
		nickname:     row.Nickname,
		categoryMain: row.CategoryMain,
		reviews:      row.Reviews,
		options:      slices.Clone(opts),
	}
}

// WithOptions returns a copy of l with opts attached in order
func (l OptionedListing) WithOptions(opts []Option) OptionedListing {
	l.options = slices.Clone(opts)
	return l
}

func (l OptionedListing) ID() int64            { return l.id }
func (l OptionedListing) Img() Image           { return l.img }
func (l OptionedListing) Title() string        { return l.title }
func (l OptionedListing) Price() int           { return l.price }
func (l OptionedListing) Score() int           { return l.score }
func (l OptionedListing) Nickname() string     { return l.nickname }
func (l OptionedListing) CategoryMain() string { return l.categoryMain }
func (l OptionedListing) Reviews() int         { return l.reviews }

// Options returns a copy of the attached options
func (l OptionedListing) Options() []Option { return slices.Clone(l.options) }

type optionedListingJSON struct {
	ID           int64    `json:"id"`
	Img          Image    `json:"img"`
	Title        string   `json:"title"`
	Price        int      `json:"price"`
	Score        int      `json:"score"`
	Nickname     string   `json:"nickname"`
	CategoryMain string   `json:"categoryMain"`
	Reviews      int      `json:"reviews"`
	Options      []Option `json:"options"`
}

func (l OptionedListing) MarshalJSON() ([]byte, error) {
	opts := l.options
	if opts == nil {
		opts = []Option{}
	}
	return json.Marshal(optionedListingJSON{
		ID:           l.id,
		Img:          l.img,
		Title:        l.title,
		Price:        l.price,
		Score:        l.score,
		Nickname:     l.nickname,
		CategoryMain: l.categoryMain,
		Reviews:      l.reviews,
		Options:      opts,
	})
}
