package internal

import "time"

type Feed struct {
	ID        string    `json:"id" db:"id"`
	Slug      string    `json:"slug" db:"slug"`
	Url       string    `json:"url" db:"url"`
	Title     string    `json:"title" db:"title"`
	CreatedAt time.Time `json:"createdAt" db:"created_at"`
}

type Record struct {
	ID          string    `json:"id" db:"id"`
	FeedID      string    `json:"feed_id" db:"feed_id"`
	Title       string    `json:"title" db:"title"`
	Description string    `json:"description" db:"description"`
	Content     string    `json:"content" db:"content"`
	PublishedAt time.Time `json:"published_at" db:"published_at"`
	Link        string    `json:"link" db:"link"`
	// OriginalLink is the item link before untracking.
	OriginalLink string `json:"original_link" db:"original_link"`
}

type Page struct {
	Url       string    `json:"url" db:"url"`
	Title     string    `json:"title" db:"title"`
	Content   string    `json:"content" db:"content"`
	Cleaned   int       `json:"cleaned" db:"cleaned"`
	CreatedAt time.Time `json:"created_at" db:"created_at"`
}

// Link is one cleaned url kept in the history.
type Link struct {
	ID        string    `json:"id" db:"id"`
	Original  string    `json:"original" db:"original"`
	Cleaned   string    `json:"cleaned" db:"cleaned"`
	Source    string    `json:"source" db:"source"`
	CreatedAt time.Time `json:"created_at" db:"created_at"`
}
