package post

import "time"

type Post struct {
	ID       int       `json:"id"`
	AuthorID int       `json:"author_id"`
	Created  time.Time `json:"created"`
	Title    string    `json:"title"`
	Body     string    `json:"body"`
	Username string    `json:"username"` // author's username, joined on read
}
