package entity

// Comment is one extracted record with its nested replies.
type Comment struct {
	ID        string    `json:"id"`
	Username  string    `json:"username"`
	Content   string    `json:"content"`
	Timestamp string    `json:"timestamp"`
	Likes     int       `json:"likes"`
	Replies   []Comment `json:"replies"`
}

// Total counts the comment and all of its nested replies.
func (c Comment) Total() int {
	n := 1
	for _, r := range c.Replies {
		n += r.Total()
	}
	return n
}
