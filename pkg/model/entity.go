package model

import "time"

// Entity is a hydrated source entity returned by search.
type Entity interface {
	EntityID() int64
	Family() Family
}

// Business is a tenant that publishes catalogs.
type Business struct {
	ID          int64     `json:"id"`
	Name        string    `json:"name"`
	Description string    `json:"description"`
	Tags        []string  `json:"tags"`
	CreatedAt   time.Time `json:"createdAt"`
	UpdatedAt   time.Time `json:"updatedAt"`

	// Authoritative counts, read from the entity tables when rebuilding an index row.
	VisitsCount        int64 `json:"visitsCount"`
	FollowersCount     int64 `json:"followersCount"`
	CatalogVisitsTotal int64 `json:"catalogVisitsTotal"`
	ProductVisitsTotal int64 `json:"productVisitsTotal"`
	ProductLikesTotal  int64 `json:"productLikesTotal"`
}

func (b *Business) EntityID() int64 { return b.ID }
func (b *Business) Family() Family  { return FamilyBusiness }

// Catalog groups products of one business.
type Catalog struct {
	ID          int64     `json:"id"`
	BusinessID  int64     `json:"businessId"`
	Title       string    `json:"title"`
	Description string    `json:"description"`
	Tags        []string  `json:"tags"`
	CreatedAt   time.Time `json:"createdAt"`
	UpdatedAt   time.Time `json:"updatedAt"`

	// Related text, filled by the source reader for indexing.
	BusinessName  string   `json:"businessName,omitempty"`
	ProductTitles []string `json:"productTitles,omitempty"`

	ProductsCount      int64 `json:"productsCount"`
	VisitsCount        int64 `json:"visitsCount"`
	ProductVisitsTotal int64 `json:"productVisitsTotal"`
	ProductLikesTotal  int64 `json:"productLikesTotal"`
}

func (c *Catalog) EntityID() int64 { return c.ID }
func (c *Catalog) Family() Family  { return FamilyCatalog }

// Variation is a purchasable variant of a product, e.g. "Size" with options S, M, L.
type Variation struct {
	ID      int64    `json:"id"`
	Title   string   `json:"title"`
	Options []string `json:"options"`
}

// Product is an item of a catalog.
type Product struct {
	ID          int64     `json:"id"`
	CatalogID   int64     `json:"catalogId"`
	BusinessID  int64     `json:"businessId"`
	Title       string    `json:"title"`
	Description string    `json:"description"`
	Tags        []string  `json:"tags"`
	CreatedAt   time.Time `json:"createdAt"`
	UpdatedAt   time.Time `json:"updatedAt"`

	CatalogTitle string      `json:"catalogTitle,omitempty"`
	BusinessName string      `json:"businessName,omitempty"`
	Variations   []Variation `json:"variations,omitempty"`

	VisitsCount   int64   `json:"visitsCount"`
	LikesCount    int64   `json:"likesCount"`
	RatingAverage float64 `json:"ratingAverage"`
}

func (p *Product) EntityID() int64 { return p.ID }
func (p *Product) Family() Family  { return FamilyProduct }

// Rating is one user's star rating of a product.
type Rating struct {
	ID        int64 `json:"id"`
	ProductID int64 `json:"productId"`
	UserID    int64 `json:"userId"`
	Stars     int   `json:"stars"`
}

// AverageStars returns the arithmetic mean of the ratings' stars, 0 when empty.
func AverageStars(ratings []Rating) float64 {
	if len(ratings) == 0 {
		return 0
	}
	var sum int
	for _, r := range ratings {
		sum += r.Stars
	}
	return float64(sum) / float64(len(ratings))
}
