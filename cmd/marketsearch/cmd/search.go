package cmd

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"
	"github.com/syntrixbase/marketsearch/internal/search"
	"github.com/syntrixbase/marketsearch/pkg/model"
)

// searchOptions holds CLI flags for search.
type searchOptions struct {
	scope    string
	page     int
	limit    int
	featured string // family, lists featured rows instead of searching
	format   string // "text", "json"
}

func newSearchCmd(root *rootOptions) *cobra.Command {
	var opts searchOptions

	cmd := &cobra.Command{
		Use:   "search [query]",
		Short: "Query the search index",
		Long: `Run a federated search, or list featured rows of one family.

Examples:
  marketsearch search "sourdough bread"
  marketsearch search bread --scope PRODUCTS --page 2 --limit 20
  marketsearch search --featured business --format json`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSearch(cmd, root, strings.Join(args, " "), opts)
		},
	}

	cmd.Flags().StringVarP(&opts.scope, "scope", "s", string(model.ScopeAll), "Scope: ALL, BUSINESSES, CATALOGS, PRODUCTS")
	cmd.Flags().IntVarP(&opts.page, "page", "p", 1, "Page number")
	cmd.Flags().IntVarP(&opts.limit, "limit", "n", 10, "Results per page")
	cmd.Flags().StringVar(&opts.featured, "featured", "", "List featured rows of a family instead of searching")
	cmd.Flags().StringVarP(&opts.format, "format", "f", "text", "Output format: text, json")

	return cmd
}

func runSearch(cmd *cobra.Command, root *rootOptions, query string, opts searchOptions) error {
	if opts.format != "text" && opts.format != "json" {
		return fmt.Errorf("unknown format %q", opts.format)
	}

	var (
		scope  model.Scope
		family model.Family
		err    error
	)
	if opts.featured != "" {
		if family, err = model.ParseFamily(opts.featured); err != nil {
			return err
		}
	} else {
		if query == "" {
			return fmt.Errorf("a query is required unless --featured is set")
		}
		if scope, err = model.ParseScope(opts.scope); err != nil {
			return err
		}
	}

	cfg, closeLogs, err := root.load()
	if err != nil {
		return err
	}
	defer closeLogs()

	ctx := cmd.Context()
	sf, err := openStorage(ctx, cfg)
	if err != nil {
		return err
	}
	defer sf.Close()

	engine := search.NewEngine(sf.Ranker(), sf.Hydrator(), cfg.Search)

	var res search.Result
	switch family {
	case model.FamilyBusiness:
		res = engine.FeaturedBusinesses(ctx, opts.page, opts.limit)
	case model.FamilyCatalog:
		res = engine.FeaturedCatalogs(ctx, opts.page, opts.limit)
	case model.FamilyProduct:
		res = engine.FeaturedProducts(ctx, opts.page, opts.limit)
	default:
		res = engine.Search(ctx, search.Pagination{Page: opts.page, Limit: opts.limit, SearchText: query}, scope)
	}

	if opts.format == "json" {
		enc := json.NewEncoder(cmd.OutOrStdout())
		enc.SetIndent("", "  ")
		return enc.Encode(res)
	}
	printResult(cmd.OutOrStdout(), res)
	return nil
}

func printResult(w io.Writer, res search.Result) {
	fmt.Fprintf(w, "%d results (page %d, limit %d)\n", res.Total, res.Page, res.Limit)
	if res.Approximate {
		fmt.Fprintln(w, "ranking beyond the merge window is approximate")
	}
	for i, item := range res.Items {
		fmt.Fprintf(w, "%3d. [%s] %d %s\n", (res.Page-1)*res.Limit+i+1, item.Family, item.Entity.EntityID(), title(item.Entity))
	}
}

func title(e model.Entity) string {
	switch v := e.(type) {
	case *model.Business:
		return v.Name
	case *model.Catalog:
		return v.Title
	case *model.Product:
		return v.Title
	}
	return ""
}
