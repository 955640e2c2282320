package recipes

import (
	"sync"

	"github.com/sakif/foodgram-web/internal/model"
)

// TagOption is a tag together with its client-only selection state.
type TagOption struct {
	model.Tag
	Selected bool
}

// TagFilter is the set of toggleable tag selections of a list view.
//
// Freshly loaded tags are all selected. The selection is never persisted: it is
// rebuilt whenever tags are reloaded from the backend.
type TagFilter struct {
	mu   sync.Mutex
	tags []TagOption
}

// NewTagFilter wraps tags loaded from the backend, all selected.
func NewTagFilter(tags []model.Tag) *TagFilter {
	opts := make([]TagOption, len(tags))
	for i, t := range tags {
		opts[i] = TagOption{Tag: t, Selected: true}
	}
	return &TagFilter{tags: opts}
}

// Restrict selects exactly the tags whose slug is listed.
func (f *TagFilter) Restrict(slugs []string) {
	set := make(map[string]bool, len(slugs))
	for _, s := range slugs {
		set[s] = true
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	for i := range f.tags {
		f.tags[i].Selected = set[f.tags[i].Slug]
	}
}

// Toggle flips the selection of tag id. It reports false for an unknown id.
func (f *TagFilter) Toggle(id int) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	for i := range f.tags {
		if f.tags[i].ID == id {
			f.tags[i].Selected = !f.tags[i].Selected
			return true
		}
	}
	return false
}

// Options returns every tag with its selection state, in backend order.
func (f *TagFilter) Options() []TagOption {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]TagOption(nil), f.tags...)
}

// Selected returns the selected tags.
func (f *TagFilter) Selected() []model.Tag {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []model.Tag
	for _, t := range f.tags {
		if t.Selected {
			out = append(out, t.Tag)
		}
	}
	return out
}

// AllSelected reports whether every tag is selected.
func (f *TagFilter) AllSelected() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, t := range f.tags {
		if !t.Selected {
			return false
		}
	}
	return true
}

// QueryParam returns the slugs to send as the tags filter.
//
// With no tags loaded it returns nil (no filter). Otherwise it returns a non-nil
// slice, empty when nothing is selected; List.Load treats that as "no results".
func (f *TagFilter) QueryParam() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.tags) == 0 {
		return nil
	}
	out := []string{}
	for _, t := range f.tags {
		if t.Selected {
			out = append(out, t.Slug)
		}
	}
	return out
}

// ToggledParam returns what QueryParam would return after toggling tag id,
// without changing the filter. Used to build the link of each tag button.
func (f *TagFilter) ToggledParam(id int) []string {
	f.mu.Lock()
	clone := &TagFilter{tags: append([]TagOption(nil), f.tags...)}
	f.mu.Unlock()

	clone.Toggle(id)
	return clone.QueryParam()
}
