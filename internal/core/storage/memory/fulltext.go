package memory

import (
	"context"
	"fmt"
	"strconv"

	"github.com/blevesearch/bleve/v2"
	"github.com/blevesearch/bleve/v2/analysis/lang/en"
	"github.com/blevesearch/bleve/v2/search/query"
)

const textField = "text"

// fulltext is an in-memory bleve index over the search text of one family.
// Liveness is not indexed: callers filter hits against the entity tables.
type fulltext struct {
	index bleve.Index
}

type textDoc struct {
	Text string `json:"text"`
}

func newFulltext() (*fulltext, error) {
	m := bleve.NewIndexMapping()
	// English stemming and stop words, like the default Postgres profile
	m.DefaultAnalyzer = en.AnalyzerName

	idx, err := bleve.NewMemOnly(m)
	if err != nil {
		return nil, fmt.Errorf("failed to create text index: %w", err)
	}
	return &fulltext{index: idx}, nil
}

func docID(id int64) string { return strconv.FormatInt(id, 10) }

func (f *fulltext) put(id int64, text string) error {
	if err := f.index.Index(docID(id), textDoc{Text: text}); err != nil {
		return fmt.Errorf("failed to index document %d: %w", id, err)
	}
	return nil
}

// match returns the score of every live document containing all terms of text.
func (f *fulltext) match(ctx context.Context, text string, live func(int64) bool) (map[int64]float64, error) {
	n, err := f.index.DocCount()
	if err != nil {
		return nil, err
	}
	if n == 0 {
		return nil, nil
	}

	q := bleve.NewMatchQuery(text)
	q.SetField(textField)
	q.SetOperator(query.MatchQueryOperatorAnd)

	res, err := f.index.SearchInContext(ctx, bleve.NewSearchRequestOptions(q, int(n), 0, false))
	if err != nil {
		return nil, fmt.Errorf("search failed: %w", err)
	}

	scores := make(map[int64]float64, len(res.Hits))
	for _, hit := range res.Hits {
		id, err := strconv.ParseInt(hit.ID, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("unexpected document id %q: %w", hit.ID, err)
		}
		if live(id) {
			scores[id] = hit.Score
		}
	}
	return scores, nil
}

func (f *fulltext) close() error {
	return f.index.Close()
}
