package htmldoc

import (
	"golang.org/x/net/html"
)

type CleanConfig struct {
	TagsToRemove []string
}

// DefaultCleanConfig drops nodes that never carry comment content.
var DefaultCleanConfig = CleanConfig{
	TagsToRemove: []string{
		"script", "style", "noscript", "svg", "iframe",
		"link", "meta", "head",
	},
}

// cleanNode removes HTML comments and unwanted elements below n in place.
// Declarative shadow root templates are kept.
func cleanNode(n *html.Node, cfg *CleanConfig) {
	for c := n.FirstChild; c != nil; {
		next := c.NextSibling
		switch {
		case c.Type == html.CommentNode:
			n.RemoveChild(c)
		case c.Type == html.ElementNode && isOneOf(c.Data, cfg.TagsToRemove...):
			n.RemoveChild(c)
		default:
			cleanNode(c, cfg)
		}
		c = next
	}
}

func isOneOf(s string, candidates ...string) bool {
	for _, c := range candidates {
		if s == c {
			return true
		}
	}
	return false
}

// isShadowTemplate reports whether n is a declarative shadow root.
func isShadowTemplate(n *html.Node) bool {
	if n == nil || n.Type != html.ElementNode || n.Data != "template" {
		return false
	}
	for _, a := range n.Attr {
		if a.Key == "shadowrootmode" || a.Key == "shadowroot" {
			return true
		}
	}
	return false
}

func attr(n *html.Node, key string) (string, bool) {
	for _, a := range n.Attr {
		if a.Key == key {
			return a.Val, true
		}
	}
	return "", false
}

func removeAttr(n *html.Node, key string) {
	kept := n.Attr[:0]
	for _, a := range n.Attr {
		if a.Key != key {
			kept = append(kept, a)
		}
	}
	n.Attr = kept
}
