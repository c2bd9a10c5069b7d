package feeds

import (
	"fmt"
	"time"
)

// NewsItem is one normalized entry from a feed.
type NewsItem struct {
	Title           string    `json:"title"`
	Content         string    `json:"content"`
	Source          string    `json:"source"`
	PublicationDate time.Time `json:"publicationDate"`
	Categories      []string  `json:"categories,omitempty"`
}

// Source identifies a feed to download.
type Source struct {
	Name string
	URL  string
}

// HTTPError reports a non-2xx response from a feed server.
type HTTPError struct {
	StatusCode int
	URL        string
}

func (e *HTTPError) Error() string {
	return fmt.Sprintf("feed %s: unexpected status %d", e.URL, e.StatusCode)
}

// DateError reports an item whose pubDate could not be interpreted.
type DateError struct {
	Title string
	Value string
}

func (e *DateError) Error() string {
	if e.Value == "" {
		return fmt.Sprintf("item %q: missing publication date", e.Title)
	}
	return fmt.Sprintf("item %q: unparseable publication date %q", e.Title, e.Value)
}
