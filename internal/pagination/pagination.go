// Package pagination turns a backend result count into the page-button model
// rendered under every recipe list.
//
// It is pure: Present computes the model, and Pager forwards page changes to a
// caller-supplied callback. Fetching the new page is the caller's job.
package pagination

// DefaultLimit is the page size used by every list view.
const DefaultLimit = 6

// Item is one numbered page button.
type Item struct {
	Number int
	Active bool
	Href   string
}

// Model is everything a template needs to draw the pagination bar.
// A zero-value Model (Visible == false) renders nothing.
type Model struct {
	Visible      bool
	Current      int
	Total        int
	Items        []Item
	PrevDisabled bool
	NextDisabled bool
	PrevHref     string
	NextHref     string
}

// TotalPages returns ceil(count/limit), or 0 when limit is not positive.
func TotalPages(count, limit int) int {
	if count <= 0 || limit <= 0 {
		return 0
	}
	return (count + limit - 1) / limit
}

// Present builds the model for count results, limit per page, with current selected.
//
// Nothing is rendered when count is 0 or everything fits on one page. current is
// clamped into [1, total] so a stale page number never marks a missing button.
func Present(count, limit, current int) Model {
	total := TotalPages(count, limit)
	if total <= 1 {
		return Model{}
	}

	if current < 1 {
		current = 1
	}
	if current > total {
		current = total
	}

	items := make([]Item, total)
	for i := range items {
		items[i] = Item{Number: i + 1, Active: i+1 == current}
	}

	return Model{
		Visible:      true,
		Current:      current,
		Total:        total,
		Items:        items,
		PrevDisabled: current == 1,
		NextDisabled: current == total,
	}
}

// WithLinks fills in the hrefs using href(page). Disabled arrows get no link.
func (m Model) WithLinks(href func(page int) string) Model {
	if !m.Visible {
		return m
	}

	items := make([]Item, len(m.Items))
	for i, it := range m.Items {
		it.Href = href(it.Number)
		items[i] = it
	}
	m.Items = items

	if !m.PrevDisabled {
		m.PrevHref = href(m.Current - 1)
	}
	if !m.NextDisabled {
		m.NextHref = href(m.Current + 1)
	}
	return m
}

// Pager is the interactive form of Model: selecting pages invokes OnChange.
type Pager struct {
	Model
	limit    int
	count    int
	OnChange func(page int)
}

// NewPager creates a Pager positioned on current.
func NewPager(count, limit, current int, onChange func(page int)) *Pager {
	return &Pager{
		Model:    Present(count, limit, current),
		limit:    limit,
		count:    count,
		OnChange: onChange,
	}
}

// Select moves to page n and notifies OnChange. Out-of-range pages are ignored.
func (p *Pager) Select(n int) {
	if !p.Visible || n < 1 || n > p.Total {
		return
	}
	p.Model = Present(p.count, p.limit, n)
	if p.OnChange != nil {
		p.OnChange(n)
	}
}

// Prev selects the previous page. It is a no-op on the first page.
func (p *Pager) Prev() {
	if p.PrevDisabled {
		return
	}
	p.Select(p.Current - 1)
}

// Next selects the next page. It is a no-op on the last page.
func (p *Pager) Next() {
	if p.NextDisabled {
		return
	}
	p.Select(p.Current + 1)
}
