package model

import "time"

// Counters holds the denormalized counters of an index row.
// Fields that do not apply to a family stay zero.
type Counters struct {
	Visits             int64   `json:"visits"`
	Followers          int64   `json:"followers,omitempty"`
	Likes              int64   `json:"likes,omitempty"`
	CatalogVisitsTotal int64   `json:"catalogVisitsTotal,omitempty"`
	ProductVisitsTotal int64   `json:"productVisitsTotal,omitempty"`
	ProductLikesTotal  int64   `json:"productLikesTotal,omitempty"`
	RatingAverage      float64 `json:"ratingAverage,omitempty"`
}

// IndexRow is the derived search record of one source entity.
// It is a cache: the entity tables stay the system of record for every counter.
type IndexRow struct {
	Family     Family    `json:"family"`
	EntityID   int64     `json:"entityId"`
	BusinessID int64     `json:"businessId,omitempty"`
	CatalogID  int64     `json:"catalogId,omitempty"`
	SearchText string    `json:"searchText"`
	Counters   Counters  `json:"counters"`
	CreatedAt  time.Time `json:"createdAt"`
	UpdatedAt  time.Time `json:"updatedAt"`
}

// Hit is one ranked match of an index query.
type Hit struct {
	Family Family  `json:"family"`
	ID     int64   `json:"id"`
	Score  float64 `json:"score"`
}

// Counter names a counter column that can receive deltas.
type Counter string

const (
	CounterVisits             Counter = "visits"
	CounterFollowers          Counter = "followers"
	CounterLikes              Counter = "likes"
	CounterCatalogVisitsTotal Counter = "catalog_visits_total"
	CounterProductVisitsTotal Counter = "product_visits_total"
	CounterProductLikesTotal  Counter = "product_likes_total"
)

// Owners are the parent ids recorded on a catalog or product index row.
type Owners struct {
	BusinessID int64
	CatalogID  int64
}
