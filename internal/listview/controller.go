// Package listview maintains a continuously-growing, duplicate-free view of
// one user's billables by merging page-by-page fetches with the live change
// feed. One controller serves one dashboard session.
package listview

import (
	"context"
	"sync"

	"app/internal/model"
)

// State of the controller's fetch lifecycle.
type State string

const (
	StateIdle         State = "idle"
	StateLoadingFirst State = "loading_first_page"
	StateReady        State = "ready"
	StateLoadingMore  State = "loading_more"
	StateError        State = "error"
)

// Page is one window of rows plus the fresh total matching count.
type Page struct {
	Items      []model.Billable
	TotalCount int
}

// Fetcher pulls one page of rows. Page numbering starts at 0.
type Fetcher interface {
	FetchPage(ctx context.Context, page int) (*Page, error)
}

// Controller merges paged fetches with live change events into one ordered,
// duplicate-free item sequence. Live events are an overlay on the paged
// window: they never touch hasMore or the page counter, so the advisory
// total can transiently disagree with the rendered count.
type Controller struct {
	mu      sync.Mutex
	fetcher Fetcher

	state   State
	items   []model.Billable
	total   int
	page    int
	hasMore bool
	lastErr error

	// inFlight guards against two concurrent load-mores racing each other;
	// at most one page fetch is outstanding per controller.
	inFlight bool
	// token invalidates fetches superseded by a Refresh: a resolution whose
	// token is no longer current is discarded instead of applied.
	token uint64
}

// Snapshot is a copy of the controller's observable state.
type Snapshot struct {
	State      State            `json:"state"`
	Items      []model.Billable `json:"items"`
	TotalCount int              `json:"total_count"`
	HasMore    bool             `json:"has_more"`
	Error      string           `json:"error,omitempty"`
}

func New(fetcher Fetcher) *Controller {
	return &Controller{
		fetcher: fetcher,
		state:   StateIdle,
	}
}

// LoadFirst fetches page 0. Valid from Idle or Error (retry); a call in any
// other state is ignored and reports false.
func (c *Controller) LoadFirst(ctx context.Context) (bool, error) {
	c.mu.Lock()
	if c.state != StateIdle && c.state != StateError {
		c.mu.Unlock()
		return false, nil
	}
	if c.inFlight {
		c.mu.Unlock()
		return false, nil
	}
	c.state = StateLoadingFirst
	c.inFlight = true
	token := c.token
	c.mu.Unlock()

	page, err := c.fetcher.FetchPage(ctx, 0)
	return true, c.resolve(token, 0, page, err, true)
}

// LoadMore fetches the next page. It only fires from Ready with hasMore set
// and no fetch already outstanding; every other call is a no-op reporting
// false, so two concurrent triggers cost exactly one network fetch.
func (c *Controller) LoadMore(ctx context.Context) (bool, error) {
	c.mu.Lock()
	if c.state != StateReady || !c.hasMore || c.inFlight {
		c.mu.Unlock()
		return false, nil
	}
	c.state = StateLoadingMore
	c.inFlight = true
	token := c.token
	next := c.page + 1
	c.mu.Unlock()

	page, err := c.fetcher.FetchPage(ctx, next)
	return true, c.resolve(token, next, page, err, false)
}

// Refresh discards all accumulated state and re-fetches from page 0. It is
// the only way to fully reconcile ordering after a backdated insert. Any
// fetch in flight when Refresh is called resolves into the void.
func (c *Controller) Refresh(ctx context.Context) error {
	c.mu.Lock()
	c.token++
	token := c.token
	c.state = StateLoadingFirst
	c.items = nil
	c.total = 0
	c.page = 0
	c.hasMore = false
	c.inFlight = true
	c.mu.Unlock()

	page, err := c.fetcher.FetchPage(ctx, 0)
	return c.resolve(token, 0, page, err, true)
}

func (c *Controller) resolve(token uint64, pageNum int, page *Page, err error, replace bool) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if token != c.token {
		// Superseded by a Refresh; drop the result on the floor.
		return nil
	}
	c.inFlight = false

	if err != nil {
		c.state = StateError
		c.lastErr = err
		return err
	}

	if replace {
		c.items = append([]model.Billable(nil), page.Items...)
	} else {
		c.items = append(c.items, page.Items...)
	}
	c.total = page.TotalCount
	c.page = pageNum
	// The count is fresh on every page request, so hasMore self-corrects if
	// rows were concurrently inserted or deleted elsewhere.
	c.hasMore = len(c.items) < page.TotalCount
	c.state = StateReady
	c.lastErr = nil
	return nil
}

// ApplyChange merges one live-feed event into the view. Inserts prepend
// unless the id is already present (the inserting client sees both its own
// insert response and the feed echo), updates replace in place, deletes
// remove. Pagination bookkeeping is deliberately untouched.
func (c *Controller) ApplyChange(ev model.BillableChange) {
	c.mu.Lock()
	defer c.mu.Unlock()

	switch ev.Type {
	case model.ChangeInsert:
		if ev.Billable == nil || c.indexOf(ev.Billable.ID) >= 0 {
			return
		}
		c.items = append([]model.Billable{*ev.Billable}, c.items...)
	case model.ChangeUpdate:
		if ev.Billable == nil {
			return
		}
		if i := c.indexOf(ev.Billable.ID); i >= 0 {
			c.items[i] = *ev.Billable
		}
	case model.ChangeDelete:
		if i := c.indexOf(ev.ID); i >= 0 {
			c.items = append(c.items[:i], c.items[i+1:]...)
		}
	}
}

func (c *Controller) indexOf(id string) int {
	for i := range c.items {
		if c.items[i].ID == id {
			return i
		}
	}
	return -1
}

// Snapshot returns a copy of the current view.
func (c *Controller) Snapshot() Snapshot {
	c.mu.Lock()
	defer c.mu.Unlock()

	snap := Snapshot{
		State:      c.state,
		Items:      append([]model.Billable(nil), c.items...),
		TotalCount: c.total,
		HasMore:    c.hasMore,
	}
	if c.lastErr != nil {
		snap.Error = c.lastErr.Error()
	}
	return snap
}
