package oraclejson

import (
	"encoding/json"
	"strconv"
	"strings"

	"comment-extractor/internal/domain/entity"
	"comment-extractor/internal/usecase/records"
)

// Count accepts JSON numbers as well as formatted strings like "1.2k".
type Count int

func (c *Count) UnmarshalJSON(b []byte) error {
	s := strings.TrimSpace(string(b))
	if s == "null" {
		*c = 0
		return nil
	}
	if f, err := strconv.ParseFloat(s, 64); err == nil {
		if f < 0 {
			f = 0
		}
		*c = Count(int(f))
		return nil
	}
	var str string
	if err := json.Unmarshal(b, &str); err != nil {
		*c = 0
		return nil
	}
	*c = Count(records.ParseCount(str))
	return nil
}

// Detection is the reply to a container detection request.
type Detection struct {
	Selector   string  `json:"selector"`
	Confidence float64 `json:"confidence"`
	Reasoning  string  `json:"reasoning,omitempty"`
}

func (d Detection) Found() bool {
	return strings.TrimSpace(d.Selector) != ""
}

// Selectors is the reply to a selector discovery request.
type Selectors struct {
	Selectors  entity.SelectorMap `json:"selectors"`
	Confidence float64            `json:"confidence"`
}

// RawComment is one record as produced by the oracle.
type RawComment struct {
	Username  string       `json:"username"`
	Content   string       `json:"content"`
	Timestamp string       `json:"timestamp"`
	Likes     Count        `json:"likes"`
	Replies   []RawComment `json:"replies"`
}

func (r RawComment) Comment() entity.Comment {
	c := entity.Comment{
		ID:        records.ID(r.Username, r.Content, r.Timestamp, 0),
		Username:  r.Username,
		Content:   r.Content,
		Timestamp: r.Timestamp,
		Likes:     int(r.Likes),
		Replies:   make([]entity.Comment, 0, len(r.Replies)),
	}
	for _, reply := range r.Replies {
		c.Replies = append(c.Replies, reply.Comment())
	}
	return c
}

func toComments(raw []RawComment) []entity.Comment {
	out := make([]entity.Comment, 0, len(raw))
	for _, r := range raw {
		out = append(out, r.Comment())
	}
	return out
}

// Extraction is the reply to a record extraction request.
type Extraction struct {
	Comments []RawComment `json:"comments"`
	HasMore  bool         `json:"hasMore"`
}

func (e Extraction) Records() []entity.Comment {
	return toComments(e.Comments)
}

type ExpandRequest struct {
	Selector string `json:"selector"`
	Priority int    `json:"priority"`
}

// Progressive is the reply to one progressive snapshot.
type Progressive struct {
	Comments   []RawComment    `json:"comments"`
	Expand     []ExpandRequest `json:"expand"`
	NeedScroll bool            `json:"needScroll"`
	Complete   bool            `json:"complete"`
}

func (p Progressive) Records() []entity.Comment {
	return toComments(p.Comments)
}

func ParseDetection(content string) Detection {
	var d Detection
	if !Decode(content, &d) {
		return Detection{}
	}
	if d.Confidence < 0 {
		d.Confidence = 0
	}
	if d.Confidence > 1 {
		d.Confidence = 1
	}
	return d
}

// ParseSelectors accepts {"selectors": {...}} as well as a bare field map.
func ParseSelectors(content string) Selectors {
	var s Selectors
	if Decode(content, &s) && len(s.Selectors) > 0 {
		return s
	}
	var flat map[string]any
	if !Decode(content, &flat) {
		return Selectors{Selectors: entity.SelectorMap{}}
	}
	out := Selectors{Selectors: entity.SelectorMap{}}
	for k, v := range flat {
		if str, ok := v.(string); ok && strings.TrimSpace(str) != "" {
			out.Selectors[k] = str
		}
	}
	return out
}

func ParseExtraction(content string) Extraction {
	var e Extraction
	if !Decode(content, &e) {
		return Extraction{}
	}
	return e
}

func ParseProgressive(content string) Progressive {
	var p Progressive
	if !Decode(content, &p) {
		return Progressive{}
	}
	return p
}
