package entity

import "time"

const ContentTypeComments = "comments"

type SelectorCacheEntry struct {
	Domain        string      `json:"domain"`
	ContentType   string      `json:"contentType"`
	Selectors     SelectorMap `json:"selectors"`
	LastUsed      time.Time   `json:"lastUsed"`
	SuccessCount  int         `json:"successCount"`
	Invalidated   bool        `json:"invalidated,omitempty"`
	InvalidatedAt time.Time   `json:"invalidatedAt,omitempty"`
}
