// Package jobs defines the asynchronous jobs that keep the search index in step
// with domain writes, and their wire envelope.
package jobs

import (
	"fmt"

	"github.com/syntrixbase/marketsearch/pkg/model"
)

// Kind names a job type. It is also the subject suffix the job is published on.
type Kind string

const (
	KindReindexBusiness      Kind = "reindex-business"
	KindReindexCatalog       Kind = "reindex-catalog"
	KindReindexProduct       Kind = "reindex-product"
	KindVisitRecorded        Kind = "visit-recorded"
	KindFollowChanged        Kind = "follow-changed"
	KindLikeChanged          Kind = "like-changed"
	KindRatingRecomputed     Kind = "rating-recomputed"
	KindRatingRecalculate    Kind = "rating-recalculate"
	KindProductsCountChanged Kind = "products-count-changed"
)

// Job is one of the job structs of this package.
type Job interface {
	Kind() Kind
	// ShardKey identifies the index row the job mutates first. Jobs with the same
	// key are applied in order by one worker.
	ShardKey() string
	isJob()
}

func shardKey(family model.Family, id int64) string {
	return fmt.Sprintf("%s:%d", family, id)
}

// ReindexBusiness rebuilds a business row from the entity tables.
type ReindexBusiness struct {
	ID int64 `json:"id" validate:"gt=0"`
}

// ReindexCatalog rebuilds a catalog row from the entity tables.
type ReindexCatalog struct {
	ID int64 `json:"id" validate:"gt=0"`
}

// ReindexProduct rebuilds a product row from the entity tables.
type ReindexProduct struct {
	ID int64 `json:"id" validate:"gt=0"`
}

// VisitRecorded adds one visit to a row and to its owners' visit rollups.
type VisitRecorded struct {
	Scope model.Family `json:"scope" validate:"required,oneof=business catalog product"`
	ID    int64        `json:"id" validate:"gt=0"`
}

type FollowAction string

const (
	Follow   FollowAction = "follow"
	Unfollow FollowAction = "unfollow"
)

// FollowChanged moves a business's followers counter by one.
type FollowChanged struct {
	BusinessID int64        `json:"businessId" validate:"gt=0"`
	Action     FollowAction `json:"action" validate:"required,oneof=follow unfollow"`
}

type LikeAction string

const (
	Like   LikeAction = "like"
	Unlike LikeAction = "unlike"
)

// LikeChanged moves a product's likes and its owners' like rollups by one.
type LikeChanged struct {
	ProductID int64      `json:"productId" validate:"gt=0"`
	Action    LikeAction `json:"action" validate:"required,oneof=like unlike"`
}

// RatingRecomputed sets the rating average of a product row.
type RatingRecomputed struct {
	ProductID     int64   `json:"productId" validate:"gt=0"`
	RatingAverage float64 `json:"ratingAverage" validate:"gte=0,lte=5"`
}

// RatingRecalculate recomputes a product's average from its active ratings,
// stores it on the product and then publishes RatingRecomputed.
type RatingRecalculate struct {
	ProductID int64 `json:"productId" validate:"gt=0"`
}

type CountAction string

const (
	Increment CountAction = "increment"
	Decrement CountAction = "decrement"
)

// ActorContext identifies who triggered a change. It is carried for auditing only.
type ActorContext struct {
	UserID     int64  `json:"userId,omitempty"`
	BusinessID int64  `json:"businessId,omitempty"`
	Role       string `json:"role,omitempty"`
}

// ProductsCountChanged adjusts the products counter of a catalog entity.
type ProductsCountChanged struct {
	CatalogID    int64         `json:"catalogId" validate:"gt=0"`
	Action       CountAction   `json:"action" validate:"required,oneof=increment decrement"`
	ActorContext *ActorContext `json:"actorContext,omitempty"`
}

func (ReindexBusiness) Kind() Kind      { return KindReindexBusiness }
func (ReindexCatalog) Kind() Kind       { return KindReindexCatalog }
func (ReindexProduct) Kind() Kind       { return KindReindexProduct }
func (VisitRecorded) Kind() Kind        { return KindVisitRecorded }
func (FollowChanged) Kind() Kind        { return KindFollowChanged }
func (LikeChanged) Kind() Kind          { return KindLikeChanged }
func (RatingRecomputed) Kind() Kind     { return KindRatingRecomputed }
func (RatingRecalculate) Kind() Kind    { return KindRatingRecalculate }
func (ProductsCountChanged) Kind() Kind { return KindProductsCountChanged }

func (j ReindexBusiness) ShardKey() string   { return shardKey(model.FamilyBusiness, j.ID) }
func (j ReindexCatalog) ShardKey() string    { return shardKey(model.FamilyCatalog, j.ID) }
func (j ReindexProduct) ShardKey() string    { return shardKey(model.FamilyProduct, j.ID) }
func (j VisitRecorded) ShardKey() string     { return shardKey(j.Scope, j.ID) }
func (j FollowChanged) ShardKey() string     { return shardKey(model.FamilyBusiness, j.BusinessID) }
func (j LikeChanged) ShardKey() string       { return shardKey(model.FamilyProduct, j.ProductID) }
func (j RatingRecomputed) ShardKey() string  { return shardKey(model.FamilyProduct, j.ProductID) }
func (j RatingRecalculate) ShardKey() string { return shardKey(model.FamilyProduct, j.ProductID) }
func (j ProductsCountChanged) ShardKey() string {
	return shardKey(model.FamilyCatalog, j.CatalogID)
}

func (ReindexBusiness) isJob()      {}
func (ReindexCatalog) isJob()       {}
func (ReindexProduct) isJob()       {}
func (VisitRecorded) isJob()        {}
func (FollowChanged) isJob()        {}
func (LikeChanged) isJob()          {}
func (RatingRecomputed) isJob()     {}
func (RatingRecalculate) isJob()    {}
func (ProductsCountChanged) isJob() {}

// Delta returns +1 for follow and -1 for unfollow.
func (a FollowAction) Delta() int64 {
	if a == Unfollow {
		return -1
	}
	return 1
}

// Delta returns +1 for like and -1 for unlike.
func (a LikeAction) Delta() int64 {
	if a == Unlike {
		return -1
	}
	return 1
}

// Delta returns +1 for increment and -1 for decrement.
func (a CountAction) Delta() int64 {
	if a == Decrement {
		return -1
	}
	return 1
}

// Reindex returns the reindex job of a family.
func Reindex(family model.Family, id int64) (Job, error) {
	switch family {
	case model.FamilyBusiness:
		return ReindexBusiness{ID: id}, nil
	case model.FamilyCatalog:
		return ReindexCatalog{ID: id}, nil
	case model.FamilyProduct:
		return ReindexProduct{ID: id}, nil
	}
	return nil, fmt.Errorf("%w: %q", model.ErrInvalidFamily, family)
}
