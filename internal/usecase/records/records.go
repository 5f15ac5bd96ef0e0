// Package records normalizes, identifies and deduplicates extracted comments.
package records

import (
	"crypto/sha256"
	"encoding/hex"
	"strconv"
	"strings"

	"comment-extractor/internal/domain/entity"
)

// ID hashes the identifying triple of a record. A positive ordinal
// distinguishes distinct elements that carry identical triples.
func ID(username, content, timestamp string, ordinal int) string {
	h := sha256.New()
	for _, part := range []string{username, content, timestamp} {
		h.Write([]byte(strings.TrimSpace(part)))
		h.Write([]byte{0x1f})
	}
	if ordinal > 0 {
		h.Write([]byte(strconv.Itoa(ordinal)))
	}
	return hex.EncodeToString(h.Sum(nil))[:16]
}

// Valid reports whether c carries the required fields.
func Valid(c entity.Comment) bool {
	return strings.TrimSpace(c.Username) != "" && strings.TrimSpace(c.Content) != ""
}

// Normalize trims fields, clamps likes, fills the id and guarantees a
// non-nil replies slice, recursively. Invalid replies are dropped.
func Normalize(c entity.Comment) entity.Comment {
	c.Username = strings.TrimSpace(c.Username)
	c.Content = strings.TrimSpace(c.Content)
	c.Timestamp = strings.TrimSpace(c.Timestamp)
	if c.Likes < 0 {
		c.Likes = 0
	}
	if c.ID == "" {
		c.ID = ID(c.Username, c.Content, c.Timestamp, 0)
	}
	replies := make([]entity.Comment, 0, len(c.Replies))
	for _, r := range c.Replies {
		if !Valid(r) {
			continue
		}
		replies = append(replies, Normalize(r))
	}
	c.Replies = replies
	return c
}

// Sanitize normalizes every record and drops those failing Valid.
func Sanitize(list []entity.Comment) []entity.Comment {
	out := make([]entity.Comment, 0, len(list))
	for _, c := range list {
		if !Valid(c) {
			continue
		}
		out = append(out, Normalize(c))
	}
	return out
}

// Truncate caps the number of top-level records. max <= 0 keeps all.
func Truncate(list []entity.Comment, max int) []entity.Comment {
	if max <= 0 || len(list) <= max {
		return list
	}
	return list[:max]
}

// Collector accumulates records for one run, admitting each id once.
type Collector struct {
	seen map[string]struct{}
	list []entity.Comment
}

func NewCollector() *Collector {
	return &Collector{seen: make(map[string]struct{})}
}

// Add normalizes c and keeps it if valid and unseen.
func (c *Collector) Add(rec entity.Comment) bool {
	if !Valid(rec) {
		return false
	}
	rec = Normalize(rec)
	if _, dup := c.seen[rec.ID]; dup {
		return false
	}
	c.seen[rec.ID] = struct{}{}
	c.list = append(c.list, rec)
	return true
}

// AddAll returns how many of list were new.
func (c *Collector) AddAll(list []entity.Comment) int {
	added := 0
	for _, rec := range list {
		if c.Add(rec) {
			added++
		}
	}
	return added
}

func (c *Collector) Has(id string) bool {
	_, ok := c.seen[id]
	return ok
}

func (c *Collector) Len() int {
	return len(c.list)
}

func (c *Collector) Comments() []entity.Comment {
	out := make([]entity.Comment, len(c.list))
	copy(out, c.list)
	return out
}
