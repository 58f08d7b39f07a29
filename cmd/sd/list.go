package main

import (
	"context"
	"fmt"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"sprintdesk/internal/domain"
	"sprintdesk/internal/i18n"
	"sprintdesk/internal/listing"
)

// listFlags are shared by every list command.
type listFlags struct {
	search   string
	status   string
	sort     string
	desc     bool
	page     int
	pageSize int
}

func (f *listFlags) bind(cmd *cobra.Command, sortFields string) {
	cmd.Flags().StringVar(&f.search, "search", "", "free text filter")
	cmd.Flags().StringVar(&f.status, "status", "", "status filter (all for no filter)")
	cmd.Flags().StringVar(&f.sort, "sort", "", "sort field: "+sortFields)
	cmd.Flags().BoolVar(&f.desc, "desc", false, "sort descending")
	cmd.Flags().IntVar(&f.page, "page", 1, "page number")
	cmd.Flags().IntVar(&f.pageSize, "page-size", 0, "page size (defaults to list.page_size)")
}

func (f listFlags) direction() listing.Direction {
	if f.desc {
		return listing.Desc
	}
	return listing.Asc
}

// runList refreshes c with criteria, applies sorting and paging, and
// returns the visible page.
func runList[E domain.Entity, F listing.Criteria[E]](ctx context.Context, c *listing.Controller[E, F], criteria F, f listFlags) ([]E, error) {
	field, _ := c.Sort()
	if f.sort != "" {
		field = f.sort
	}
	if field != "" {
		if err := c.SetSort(field, f.direction()); err != nil {
			return nil, err
		}
	}
	c.ApplyFilter(criteria)
	if !c.Refresh(ctx, criteria) {
		return nil, errReported
	}
	if f.page > 1 {
		c.SetPage(ctx, f.page)
	}
	return c.PageItems(), nil
}

// renderPage prints rows and the page footer, or the items as JSON.
func renderPage[E domain.Entity, F listing.Criteria[E]](dict i18n.Translator, c *listing.Controller[E, F], items []E, header table.Row, row func(E) table.Row) error {
	if viper.GetBool("json") {
		return printJSON(domain.Page[E]{Items: items, Total: c.Total(), Page: c.Page(), Size: c.PageSize()})
	}
	tw := newTable()
	tw.AppendHeader(header)
	for _, it := range items {
		tw.AppendRow(row(it))
	}
	tw.Render()
	fmt.Println(pageFooter(dict, c.Page(), c.TotalPages(), c.Total()))
	return nil
}

func pageFooter(dict i18n.Translator, page, pages, total int) string {
	return fmt.Sprintf(dict.T("labels.page"), page, pages, total)
}
