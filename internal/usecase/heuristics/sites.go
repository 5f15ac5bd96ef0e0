// Package heuristics carries selector maps for well known comment hosts.
package heuristics

import (
	"strings"

	"comment-extractor/internal/domain/entity"
)

type site struct {
	domain    string
	selectors entity.SelectorMap
}

var known = []site{
	{"youtube.com", entity.SelectorMap{
		entity.FieldContainer:   "ytd-comments#comments",
		entity.FieldItem:        "ytd-comment-thread-renderer",
		entity.FieldUsername:    "#author-text",
		entity.FieldContent:     "#content-text",
		entity.FieldTimestamp:   ".published-time-text",
		entity.FieldLikes:       "#vote-count-middle",
		entity.FieldReplyItem:   "ytd-comment-view-model",
		entity.FieldReplyExpand: "#more-replies button",
	}},
	{"reddit.com", entity.SelectorMap{
		entity.FieldContainer: "shreddit-comment-tree",
		entity.FieldItem:      "shreddit-comment",
		entity.FieldUsername:  "[slot=commentMeta] a[href*='/user/']",
		entity.FieldContent:   "[slot=comment]",
		entity.FieldTimestamp: "time",
		entity.FieldLikes:     "shreddit-comment-action-row",
	}},
	{"news.ycombinator.com", entity.SelectorMap{
		entity.FieldContainer: "table.comment-tree",
		entity.FieldItem:      "tr.athing.comtr",
		entity.FieldUsername:  ".hnuser",
		entity.FieldContent:   ".commtext",
		entity.FieldTimestamp: ".age",
	}},
	{"x.com", entity.SelectorMap{
		entity.FieldContainer: "[aria-label^='Timeline']",
		entity.FieldItem:      "article[data-testid=tweet]",
		entity.FieldUsername:  "[data-testid=User-Name]",
		entity.FieldContent:   "[data-testid=tweetText]",
		entity.FieldTimestamp: "time",
		entity.FieldLikes:     "[data-testid=like]",
	}},
	{"twitter.com", entity.SelectorMap{
		entity.FieldContainer: "[aria-label^='Timeline']",
		entity.FieldItem:      "article[data-testid=tweet]",
		entity.FieldUsername:  "[data-testid=User-Name]",
		entity.FieldContent:   "[data-testid=tweetText]",
		entity.FieldTimestamp: "time",
		entity.FieldLikes:     "[data-testid=like]",
	}},
	{"bilibili.com", entity.SelectorMap{
		entity.FieldContainer: "bili-comments",
		entity.FieldItem:      "bili-comment-thread-renderer",
		entity.FieldUsername:  "#user-name",
		entity.FieldContent:   "#contents",
		entity.FieldTimestamp: "#pubdate",
		entity.FieldLikes:     "#like #count",
	}},
	{"disqus.com", entity.SelectorMap{
		entity.FieldContainer: "#posts",
		entity.FieldItem:      "li.post",
		entity.FieldUsername:  ".author",
		entity.FieldContent:   ".post-message",
		entity.FieldTimestamp: ".time-ago",
	}},
}

// Lookup returns the selector map for domain, matching the host exactly or
// as a subdomain of a known host.
func Lookup(domain string) (entity.SelectorMap, bool) {
	domain = strings.TrimPrefix(strings.ToLower(strings.TrimSpace(domain)), "www.")
	if domain == "" {
		return nil, false
	}
	for _, s := range known {
		if domain == s.domain {
			return s.selectors.Clone(), true
		}
	}
	for _, s := range known {
		if strings.HasSuffix(domain, "."+s.domain) {
			return s.selectors.Clone(), true
		}
	}
	return nil, false
}
