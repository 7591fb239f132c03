// Package feed adapts a FreeFeed timeline into content nodes.
package feed

import (
	"strconv"
	"strings"
	"time"
)

// Post is a feed post. Comments and Attachments hold ids resolved against the
// enclosing Timeline.
type Post struct {
	ID          string   `json:"id"`
	CreatedAt   string   `json:"createdAt"`
	UpdatedAt   string   `json:"updatedAt"`
	Body        string   `json:"body"`
	CreatedBy   string   `json:"createdBy"`
	Comments    []string `json:"comments"`
	Attachments []string `json:"attachments,omitempty"`
	Category    string   `json:"category,omitempty"`
	Cover       string   `json:"cover,omitempty"`
}

// Created parses CreatedAt, a unix timestamp in milliseconds.
func (p Post) Created() (time.Time, bool) {
	ms, err := strconv.ParseFloat(strings.TrimSpace(p.CreatedAt), 64)
	if err != nil {
		return time.Time{}, false
	}
	return time.UnixMilli(int64(ms)).UTC(), true
}

type Comment struct {
	ID        string `json:"id"`
	SeqNumber int    `json:"seqNumber"`
	Body      string `json:"body"`
	CreatedBy string `json:"createdBy"`
}

type Attachment struct {
	ID       string `json:"id"`
	FileName string `json:"fileName"`
	URL      string `json:"url"`
}

type User struct {
	ID         string `json:"id"`
	Username   string `json:"username"`
	ScreenName string `json:"screenName"`
}

// Timeline is one page of a user's posts with their comments and attachments.
type Timeline struct {
	Posts       []Post       `json:"posts"`
	Comments    []Comment    `json:"comments"`
	Attachments []Attachment `json:"attachments"`
}

// FindComment returns the comment with id.
func (t *Timeline) FindComment(id string) (Comment, bool) {
	for _, c := range t.Comments {
		if c.ID == id {
			return c, true
		}
	}
	return Comment{}, false
}

// FindAttachment returns the attachment with id.
func (t *Timeline) FindAttachment(id string) (Attachment, bool) {
	for _, a := range t.Attachments {
		if a.ID == id {
			return a, true
		}
	}
	return Attachment{}, false
}

// PostTimeline is the response of a single-post request.
type PostTimeline struct {
	Posts       Post         `json:"posts"`
	Comments    []Comment    `json:"comments"`
	Attachments []Attachment `json:"attachments"`
}

// Timeline wraps the single post as a one-post timeline.
func (p PostTimeline) Timeline() *Timeline {
	return &Timeline{Posts: []Post{p.Posts}, Comments: p.Comments, Attachments: p.Attachments}
}
