package store

import (
	. "github.com/tmshv/untrack/internal"
)

type Store interface {
	AddLink(Link) (int64, error)
	FindLinkByOriginal(string) (Link, error)
	GetLinks(int) ([]Link, error)
	AddFeed(string, string, string) error
	GetFeeds() ([]Feed, error)
	Close() error
}
