package storage

import (
	"strconv"
	"time"
)

// Visibility values shared by articles and chapters.
const (
	VisibilityPublic  = "public"
	VisibilityPrivate = "private"
)

type Article struct {
	ID          string    `json:"id" toml:"id"`
	Title       string    `json:"title" toml:"title"`
	Description string    `json:"description" toml:"description"`
	Content     string    `json:"content" toml:"content"`
	User        string    `json:"user" toml:"user"`
	Chapter     string    `json:"chapter" toml:"chapter"`
	Visibility  string    `json:"visibility" toml:"visibility"`
	Keywords    []string  `json:"keywords" toml:"keywords"`
	Likes       int       `json:"likes" toml:"likes"`
	Views       int       `json:"views" toml:"views"`
	URL         string    `json:"url,omitempty" toml:"url"`
	Created     time.Time `json:"created" toml:"created"`
	Updated     time.Time `json:"updated" toml:"updated"`
}

// Field exposes article columns to filter evaluation and sorting.
func (a Article) Field(name string) ([]string, bool) {
	switch name {
	case "id":
		return []string{a.ID}, true
	case "title":
		return []string{a.Title}, true
	case "description":
		return []string{a.Description}, true
	case "content":
		return []string{a.Content}, true
	case "user":
		return []string{a.User}, true
	case "chapter":
		return []string{a.Chapter}, true
	case "visibility":
		return []string{a.Visibility}, true
	case "keywords":
		return a.Keywords, true
	case "likes":
		return []string{strconv.Itoa(a.Likes)}, true
	case "views":
		return []string{strconv.Itoa(a.Views)}, true
	case "created":
		return []string{formatTime(a.Created)}, true
	case "updated":
		return []string{formatTime(a.Updated)}, true
	}
	return nil, false
}

func (a Article) Key() string { return a.ID }

type Chapter struct {
	ID          string    `json:"id" toml:"id"`
	Title       string    `json:"title" toml:"title"`
	Description string    `json:"description" toml:"description"`
	User        string    `json:"user" toml:"user"`
	Visibility  string    `json:"visibility" toml:"visibility"`
	Articles    []string  `json:"articles" toml:"articles"`
	Keywords    []string  `json:"keywords" toml:"keywords"`
	Likes       int       `json:"likes" toml:"likes"`
	Views       int       `json:"views" toml:"views"`
	Created     time.Time `json:"created" toml:"created"`
	Updated     time.Time `json:"updated" toml:"updated"`
}

// Field exposes chapter columns to filter evaluation and sorting.
func (c Chapter) Field(name string) ([]string, bool) {
	switch name {
	case "id":
		return []string{c.ID}, true
	case "title":
		return []string{c.Title}, true
	case "description":
		return []string{c.Description}, true
	case "user":
		return []string{c.User}, true
	case "visibility":
		return []string{c.Visibility}, true
	case "articles":
		return c.Articles, true
	case "keywords":
		return c.Keywords, true
	case "likes":
		return []string{strconv.Itoa(c.Likes)}, true
	case "views":
		return []string{strconv.Itoa(c.Views)}, true
	case "created":
		return []string{formatTime(c.Created)}, true
	case "updated":
		return []string{formatTime(c.Updated)}, true
	}
	return nil, false
}

func (c Chapter) Key() string { return c.ID }

type Keyword struct {
	ID      string    `json:"id" toml:"id"`
	Word    string    `json:"word" toml:"word"`
	Created time.Time `json:"created" toml:"created"`
}

func (k Keyword) Field(name string) ([]string, bool) {
	switch name {
	case "id":
		return []string{k.ID}, true
	case "word":
		return []string{k.Word}, true
	case "created":
		return []string{formatTime(k.Created)}, true
	}
	return nil, false
}

func (k Keyword) Key() string { return k.ID }

func formatTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format(time.RFC3339)
}
