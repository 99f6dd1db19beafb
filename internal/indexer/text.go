package indexer

import (
	"strings"

	"github.com/syntrixbase/marketsearch/pkg/model"
)

// textBuilder joins non-empty fragments with single spaces.
type textBuilder struct {
	parts []string
}

func (b *textBuilder) add(s ...string) {
	for _, p := range s {
		if p = strings.TrimSpace(p); p != "" {
			b.parts = append(b.parts, p)
		}
	}
}

func (b *textBuilder) String() string {
	return strings.Join(b.parts, " ")
}

// BusinessText is self-contained: name, description and tags.
func BusinessText(b *model.Business) string {
	var t textBuilder
	t.add(b.Name, b.Description)
	t.add(b.Tags...)
	return t.String()
}

// CatalogText adds the owning business name and the titles of the catalog's products.
func CatalogText(c *model.Catalog) string {
	var t textBuilder
	t.add(c.Title, c.Description)
	t.add(c.Tags...)
	t.add(c.BusinessName)
	t.add(c.ProductTitles...)
	return t.String()
}

// ProductText adds the catalog title, the business name and every variation
// title followed by its options.
func ProductText(p *model.Product) string {
	var t textBuilder
	t.add(p.Title, p.Description)
	t.add(p.Tags...)
	t.add(p.CatalogTitle, p.BusinessName)
	for _, v := range p.Variations {
		t.add(v.Title)
		t.add(v.Options...)
	}
	return t.String()
}

// RawText dispatches to the family's text builder.
func RawText(e model.Entity) (string, error) {
	switch v := e.(type) {
	case *model.Business:
		return BusinessText(v), nil
	case *model.Catalog:
		return CatalogText(v), nil
	case *model.Product:
		return ProductText(v), nil
	}
	return "", model.ErrInvalidFamily
}

// rowFor builds the index row of an entity snapshot carrying its authoritative counts.
func rowFor(e model.Entity, text string) (*model.IndexRow, error) {
	row := &model.IndexRow{Family: e.Family(), EntityID: e.EntityID(), SearchText: text}
	switch v := e.(type) {
	case *model.Business:
		row.Counters = model.Counters{
			Visits:             v.VisitsCount,
			Followers:          v.FollowersCount,
			CatalogVisitsTotal: v.CatalogVisitsTotal,
			ProductVisitsTotal: v.ProductVisitsTotal,
			ProductLikesTotal:  v.ProductLikesTotal,
		}
	case *model.Catalog:
		row.BusinessID = v.BusinessID
		row.Counters = model.Counters{
			Visits:             v.VisitsCount,
			ProductVisitsTotal: v.ProductVisitsTotal,
			ProductLikesTotal:  v.ProductLikesTotal,
		}
	case *model.Product:
		row.BusinessID = v.BusinessID
		row.CatalogID = v.CatalogID
		row.Counters = model.Counters{
			Visits:        v.VisitsCount,
			Likes:         v.LikesCount,
			RatingAverage: v.RatingAverage,
		}
	default:
		return nil, model.ErrInvalidFamily
	}
	return row, nil
}
