package postgres

import (
	"fmt"

	"github.com/syntrixbase/marketsearch/pkg/model"
)

// indexTable describes the index table of one family.
type indexTable struct {
	name  string
	idCol string
	// counters maps counter names to columns; only listed counters may receive deltas.
	counters map[model.Counter]string
	// owners selects (catalog_id, business_id) for RETURNING clauses.
	owners string
	// live joins the index row (aliased i) to its live source entity and parents.
	live string
	// featured is the weighted counter formula used for featured listings.
	featured string
}

var indexTables = map[model.Family]indexTable{
	model.FamilyBusiness: {
		name:  "business_search_index",
		idCol: "business_id",
		counters: map[model.Counter]string{
			model.CounterVisits:             "visits",
			model.CounterFollowers:          "followers",
			model.CounterCatalogVisitsTotal: "catalog_visits_total",
			model.CounterProductVisitsTotal: "product_visits_total",
			model.CounterProductLikesTotal:  "product_likes_total",
		},
		owners:   "0::BIGINT, 0::BIGINT",
		live:     "JOIN businesses b ON b.id = i.business_id AND b.deleted_at IS NULL",
		featured: "i.followers * 3 + i.visits + i.catalog_visits_total + i.product_visits_total + i.product_likes_total * 2",
	},
	model.FamilyCatalog: {
		name:  "catalog_search_index",
		idCol: "catalog_id",
		counters: map[model.Counter]string{
			model.CounterVisits:             "visits",
			model.CounterProductVisitsTotal: "product_visits_total",
			model.CounterProductLikesTotal:  "product_likes_total",
		},
		owners: "0::BIGINT, business_id",
		live: "JOIN catalogs c ON c.id = i.catalog_id AND c.deleted_at IS NULL " +
			"JOIN businesses b ON b.id = c.business_id AND b.deleted_at IS NULL",
		featured: "i.visits + i.product_visits_total + i.product_likes_total * 2",
	},
	model.FamilyProduct: {
		name:  "product_search_index",
		idCol: "product_id",
		counters: map[model.Counter]string{
			model.CounterVisits: "visits",
			model.CounterLikes:  "likes",
		},
		owners: "catalog_id, business_id",
		live: "JOIN products p ON p.id = i.product_id AND p.deleted_at IS NULL " +
			"JOIN catalogs c ON c.id = p.catalog_id AND c.deleted_at IS NULL " +
			"JOIN businesses b ON b.id = p.business_id AND b.deleted_at IS NULL",
		featured: "i.visits + i.likes * 2 + i.rating_average * 5",
	},
}

func tableFor(family model.Family) (indexTable, error) {
	t, ok := indexTables[family]
	if !ok {
		return indexTable{}, fmt.Errorf("%w: %q", model.ErrInvalidFamily, family)
	}
	return t, nil
}

func (t indexTable) counterColumn(counter model.Counter) (string, error) {
	col, ok := t.counters[counter]
	if !ok {
		return "", fmt.Errorf("counter %q is not defined on %s", counter, t.name)
	}
	return col, nil
}
