// Package listing holds one page of entities together with the filter, sort
// and pagination state that decide what is displayed.
package listing

import (
	"context"
	"fmt"
	"slices"
	"sync"

	"golang.org/x/text/collate"
	"golang.org/x/text/language"

	"sprintdesk/internal/domain"
	"sprintdesk/internal/remote"
)

// DefaultPageSize applies when Options.PageSize is unset.
const DefaultPageSize = 10

// Criteria is a typed filter configuration for one entity kind.
type Criteria[E any] interface {
	Match(E) bool
}

// Query is what a refresh asks the server for.
type Query[F any] struct {
	Criteria F
	Page     int
	Size     int
}

// Reconciler receives the outcome of a successful mutation.
type Reconciler[E domain.Entity] interface {
	Created(E)
	Updated(E)
	Deleted(id string)
}

type Options[E domain.Entity, F Criteria[E]] struct {
	Fetch  func(ctx context.Context, q Query[F]) (domain.Page[E], error)
	Runner *remote.Runner
	// Op is the dictionary key naming the fetch in notifications.
	Op          string
	Fields      []Field[E]
	DefaultSort string
	PageSize    int
	// ServerPaging re-fetches on page changes and trusts the server total.
	ServerPaging bool
	// ClearOnRefresh empties the held items while a refresh is in flight.
	ClearOnRefresh bool
	Locale         language.Tag
	// Mirror, when set, receives the held items after every change.
	Mirror func([]E)
}

// Controller is safe for concurrent use. The lock is never held across a
// fetch, so overlapping refreshes resolve in arrival order: the last one to
// finish wins.
type Controller[E domain.Entity, F Criteria[E]] struct {
	opts     Options[E, F]
	fields   map[string]Field[E]
	collator *collate.Collator

	mu       sync.Mutex
	items    []E
	total    int
	criteria F
	sortBy   string
	dir      Direction
	page     int
	size     int
	loading  bool
}

func New[E domain.Entity, F Criteria[E]](opts Options[E, F]) *Controller[E, F] {
	if opts.PageSize <= 0 {
		opts.PageSize = DefaultPageSize
	}
	if opts.Locale == (language.Tag{}) {
		opts.Locale = language.English
	}
	c := &Controller[E, F]{
		opts:     opts,
		fields:   map[string]Field[E]{},
		collator: collate.New(opts.Locale),
		page:     1,
		size:     opts.PageSize,
	}
	for _, f := range opts.Fields {
		c.fields[f.Name] = f
	}
	if _, ok := c.fields[opts.DefaultSort]; ok {
		c.sortBy = opts.DefaultSort
	}
	return c
}

// Refresh fetches entities matching criteria. On success the held items and
// total are replaced wholesale; on failure they are left as they were.
func (c *Controller[E, F]) Refresh(ctx context.Context, criteria F) bool {
	c.mu.Lock()
	c.criteria = criteria
	q := Query[F]{Criteria: criteria, Page: c.page, Size: c.size}
	if c.opts.ClearOnRefresh {
		c.items = nil
		c.total = 0
	}
	c.mu.Unlock()

	res := remote.Run(ctx, c.opts.Runner, remote.FlagFunc(c.setLoading), remote.Op[domain.Page[E]]{
		Name: c.opts.Op,
		Call: func(ctx context.Context) (domain.Page[E], error) {
			if c.opts.Fetch == nil {
				return domain.Page[E]{}, fmt.Errorf("listing: no fetch configured")
			}
			return c.opts.Fetch(ctx, q)
		},
	})
	if !res.OK() {
		return false
	}
	page := res.Value()

	c.mu.Lock()
	c.items = slices.Clone(page.Items)
	c.total = page.Total
	if c.total < len(c.items) {
		c.total = len(c.items)
	}
	prev := c.page
	c.page = clamp(c.page, c.totalPagesLocked())
	moved := c.page != prev
	items := slices.Clone(c.items)
	c.mu.Unlock()
	c.mirror(items)
	// The held rows belong to the old page; fetch the one clamped to.
	if c.opts.ServerPaging && moved {
		return c.Refresh(ctx, criteria)
	}
	return true
}

// Reload repeats the last refresh.
func (c *Controller[E, F]) Reload(ctx context.Context) bool {
	return c.Refresh(ctx, c.Criteria())
}

func (c *Controller[E, F]) setLoading(v bool) {
	c.mu.Lock()
	c.loading = v
	c.mu.Unlock()
}

// ApplyFilter swaps the criteria used to derive the visible sequence and
// returns to the first page.
func (c *Controller[E, F]) ApplyFilter(criteria F) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.criteria = criteria
	c.page = 1
}

// SetSort orders by field in dir.
func (c *Controller[E, F]) SetSort(field string, dir Direction) error {
	if _, ok := c.fields[field]; !ok {
		return fmt.Errorf("unknown sort field %q", field)
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.sortBy = field
	c.dir = dir
	return nil
}

// ToggleSort flips the direction when field is already active, otherwise
// sorts ascending by field.
func (c *Controller[E, F]) ToggleSort(field string) error {
	if _, ok := c.fields[field]; !ok {
		return fmt.Errorf("unknown sort field %q", field)
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.sortBy == field {
		if c.dir == Asc {
			c.dir = Desc
		} else {
			c.dir = Asc
		}
		return nil
	}
	c.sortBy = field
	c.dir = Asc
	return nil
}

// SetPage moves to page, clamped to [1, TotalPages]. With server paging a
// page change triggers a refresh.
func (c *Controller[E, F]) SetPage(ctx context.Context, page int) int {
	c.mu.Lock()
	prev := c.page
	c.page = clamp(page, c.totalPagesLocked())
	current := c.page
	criteria := c.criteria
	c.mu.Unlock()
	if c.opts.ServerPaging && current != prev {
		c.Refresh(ctx, criteria)
		return c.Page()
	}
	return current
}

// SetPageSize changes the page size and returns to page 1.
func (c *Controller[E, F]) SetPageSize(ctx context.Context, size int) {
	if size <= 0 {
		size = c.opts.PageSize
	}
	c.mu.Lock()
	c.size = size
	c.page = 1
	criteria := c.criteria
	c.mu.Unlock()
	if c.opts.ServerPaging {
		c.Refresh(ctx, criteria)
	}
}

// Visible is the held items filtered by the criteria and ordered by the
// active sort.
func (c *Controller[E, F]) Visible() []E {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.visibleLocked()
}

func (c *Controller[E, F]) visibleLocked() []E {
	out := make([]E, 0, len(c.items))
	for _, it := range c.items {
		if c.criteria.Match(it) {
			out = append(out, it)
		}
	}
	f, ok := c.fields[c.sortBy]
	if !ok {
		return out
	}
	slices.SortStableFunc(out, func(a, b E) int { return f.compare(c.collator, a, b) })
	if c.dir == Desc {
		slices.Reverse(out)
	}
	return out
}

// PageItems is the slice of Visible shown on the current page.
func (c *Controller[E, F]) PageItems() []E {
	c.mu.Lock()
	defer c.mu.Unlock()
	visible := c.visibleLocked()
	if c.opts.ServerPaging {
		return visible
	}
	start := (c.page - 1) * c.size
	if start >= len(visible) {
		return []E{}
	}
	end := min(start+c.size, len(visible))
	return visible[start:end]
}

// TotalPages is at least 1.
func (c *Controller[E, F]) TotalPages() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.totalPagesLocked()
}

func (c *Controller[E, F]) totalPagesLocked() int {
	n := c.total
	if !c.opts.ServerPaging {
		n = len(c.visibleLocked())
	}
	pages := (n + c.size - 1) / c.size
	return max(pages, 1)
}

func clamp(page, pages int) int {
	return min(max(page, 1), pages)
}

// Created appends e, replacing any held entity with the same id.
func (c *Controller[E, F]) Created(e E) {
	c.mu.Lock()
	if i := c.indexLocked(e.EntityID()); i >= 0 {
		c.items[i] = e
	} else {
		c.items = append(c.items, e)
		c.total++
	}
	items := slices.Clone(c.items)
	c.mu.Unlock()
	c.mirror(items)
}

// Updated replaces the held entity with e's id. Unknown ids are ignored.
func (c *Controller[E, F]) Updated(e E) {
	c.mu.Lock()
	i := c.indexLocked(e.EntityID())
	if i < 0 {
		c.mu.Unlock()
		return
	}
	c.items[i] = e
	items := slices.Clone(c.items)
	c.mu.Unlock()
	c.mirror(items)
}

// Deleted drops the held entity with id. With server paging, a deletion
// that moves the view to an earlier page fetches that page.
func (c *Controller[E, F]) Deleted(id string) {
	c.deleted(context.Background(), id)
}

func (c *Controller[E, F]) deleted(ctx context.Context, id string) {
	c.mu.Lock()
	i := c.indexLocked(id)
	if i < 0 {
		c.mu.Unlock()
		return
	}
	c.items = slices.Delete(c.items, i, i+1)
	if c.total > 0 {
		c.total--
	}
	prev := c.page
	c.page = clamp(c.page, c.totalPagesLocked())
	moved := c.page != prev
	criteria := c.criteria
	items := slices.Clone(c.items)
	c.mu.Unlock()
	c.mirror(items)
	if c.opts.ServerPaging && moved {
		c.Refresh(ctx, criteria)
	}
}

func (c *Controller[E, F]) indexLocked(id string) int {
	return slices.IndexFunc(c.items, func(e E) bool { return e.EntityID() == id })
}

func (c *Controller[E, F]) mirror(items []E) {
	if c.opts.Mirror != nil {
		c.opts.Mirror(items)
	}
}

// Refetching reconciles creations by reloading the list instead of
// appending.
func (c *Controller[E, F]) Refetching(ctx context.Context) Reconciler[E] {
	return refetching[E, F]{c: c, ctx: ctx}
}

type refetching[E domain.Entity, F Criteria[E]] struct {
	c   *Controller[E, F]
	ctx context.Context
}

func (r refetching[E, F]) Created(E)         { r.c.Reload(r.ctx) }
func (r refetching[E, F]) Updated(e E)       { r.c.Updated(e) }
func (r refetching[E, F]) Deleted(id string) { r.c.deleted(r.ctx, id) }

// Items returns the held items in server order.
func (c *Controller[E, F]) Items() []E {
	c.mu.Lock()
	defer c.mu.Unlock()
	return slices.Clone(c.items)
}

// Total is the element count reported for pagination.
func (c *Controller[E, F]) Total() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.opts.ServerPaging {
		return c.total
	}
	return len(c.visibleLocked())
}

func (c *Controller[E, F]) Page() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.page
}

func (c *Controller[E, F]) PageSize() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.size
}

func (c *Controller[E, F]) Loading() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.loading
}

func (c *Controller[E, F]) Sort() (string, Direction) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.sortBy, c.dir
}

func (c *Controller[E, F]) Criteria() F {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.criteria
}
