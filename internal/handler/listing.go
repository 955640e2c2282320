package handler

import (
	"net/url"
	"strconv"
	"strings"

	"github.com/sakif/foodgram-web/internal/recipes"
)

// scope identifies one of the recipe list pages.
type scope struct {
	Path  string
	Extra recipes.Filter
	// Tags reports whether the page offers the tag filter.
	Tags bool
}

// scopeFor recognises the list page at path.
func scopeFor(path string) (scope, bool) {
	switch path {
	case "/recipes":
		return scope{Path: path, Tags: true}, true
	case "/favorites":
		return scope{Path: path, Tags: true, Extra: recipes.Filter{IsFavorited: true}}, true
	case "/cart":
		return scope{Path: path, Extra: recipes.Filter{IsInShoppingCart: true}}, true
	}
	if rest, ok := strings.CutPrefix(path, "/user/"); ok {
		if id, err := strconv.Atoi(rest); err == nil && id > 0 {
			return scope{Path: path, Tags: true, Extra: recipes.Filter{Author: id}}, true
		}
	}
	return scope{}, false
}

// detailID recognises a recipe detail path, /recipes/{id}.
func detailID(path string) (int, bool) {
	rest, ok := strings.CutPrefix(path, "/recipes/")
	if !ok {
		return 0, false
	}
	id, err := strconv.Atoi(rest)
	if err != nil || id < 1 {
		return 0, false
	}
	return id, true
}

// listQuery is the state of a list page carried in its URL.
//
//	?page=2            page number, 1 when missing or invalid
//	?tags=lunch,dinner selected tag slugs; absent means all, empty means none
//	?toggle=3          flip tag 3 and go back to page 1
type listQuery struct {
	Page    int
	Tags    []string
	HasTags bool
	Toggle  int
}

func parseListQuery(q url.Values) listQuery {
	lq := listQuery{Page: 1}
	if p, err := strconv.Atoi(q.Get("page")); err == nil && p > 0 {
		lq.Page = p
	}
	if q.Has("tags") {
		lq.HasTags = true
		lq.Tags = []string{}
		for _, s := range strings.Split(q.Get("tags"), ",") {
			if s = strings.TrimSpace(s); s != "" {
				lq.Tags = append(lq.Tags, s)
			}
		}
	}
	if t, err := strconv.Atoi(q.Get("toggle")); err == nil && t > 0 {
		lq.Toggle = t
	}
	return lq
}

// tagsParam is the slug list used by a plain Load: nil (no filter) when the URL
// does not restrict tags.
func (lq listQuery) tagsParam() []string {
	if !lq.HasTags {
		return nil
	}
	return lq.Tags
}

// listHref builds the canonical URL of a list page. tags is omitted when every
// tag is selected (all == true).
func listHref(path string, page int, tags []string, all bool) string {
	v := url.Values{}
	if page > 1 {
		v.Set("page", strconv.Itoa(page))
	}
	if !all {
		v.Set("tags", strings.Join(tags, ","))
	}
	if len(v) == 0 {
		return path
	}
	return path + "?" + v.Encode()
}
