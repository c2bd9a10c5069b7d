package feeds

import (
	"fmt"
	"io"
	"iter"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/mmcdole/gofeed"
)

// Parse decodes an RSS document (Atom and JSON feeds are accepted too). A
// malformed document returns an error immediately; otherwise the sequence
// yields every item in document order, paired with a *DateError when its
// publication date is missing or unparseable.
func Parse(r io.Reader) (iter.Seq2[NewsItem, error], error) {
	feed, err := gofeed.NewParser().Parse(r)
	if err != nil {
		return nil, fmt.Errorf("parse feed: %w", err)
	}

	source := cleanText(feed.Title)
	items := feed.Items
	return func(yield func(NewsItem, error) bool) {
		for _, raw := range items {
			if raw == nil {
				continue
			}
			item, err := convertItem(raw, source)
			if !yield(item, err) {
				return
			}
		}
	}, nil
}

// ParseAll collects the sequence returned by Parse, dropping items with
// date errors and reporting them through skipped.
func ParseAll(r io.Reader, skipped func(error)) ([]NewsItem, error) {
	seq, err := Parse(r)
	if err != nil {
		return nil, err
	}
	var out []NewsItem
	for item, itemErr := range seq {
		if itemErr != nil {
			if skipped != nil {
				skipped(itemErr)
			}
			continue
		}
		out = append(out, item)
	}
	return out, nil
}

func convertItem(raw *gofeed.Item, source string) (NewsItem, error) {
	title := cleanText(raw.Title)
	body := stripCDATA(raw.Content)
	if body == "" {
		body = stripCDATA(raw.Description)
	}

	categories := make([]string, 0, len(raw.Categories))
	for _, category := range raw.Categories {
		if c := cleanText(category); c != "" {
			categories = append(categories, c)
		}
	}

	item := NewsItem{
		Title:      title,
		Content:    HTMLToText(body),
		Source:     source,
		Categories: categories,
	}

	switch {
	case raw.PublishedParsed != nil:
		item.PublicationDate = raw.PublishedParsed.UTC()
	case raw.Published == "" && raw.UpdatedParsed != nil:
		item.PublicationDate = raw.UpdatedParsed.UTC()
	default:
		return item, &DateError{Title: title, Value: cleanText(raw.Published)}
	}
	return item, nil
}

// HTMLToText reduces an HTML fragment to its visible text with whitespace collapsed.
func HTMLToText(fragment string) string {
	fragment = strings.TrimSpace(fragment)
	if fragment == "" {
		return ""
	}
	if !strings.ContainsAny(fragment, "<&") {
		return collapseSpace(fragment)
	}
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(fragment))
	if err != nil {
		return collapseSpace(fragment)
	}
	doc.Find("script, style, noscript").Remove()
	return collapseSpace(doc.Text())
}

func stripCDATA(value string) string {
	trimmed := strings.TrimSpace(value)
	for strings.HasPrefix(trimmed, "<![CDATA[") {
		trimmed = strings.TrimPrefix(trimmed, "<![CDATA[")
		trimmed = strings.TrimSuffix(strings.TrimSpace(trimmed), "]]>")
		trimmed = strings.TrimSpace(trimmed)
	}
	return trimmed
}

func cleanText(value string) string {
	return collapseSpace(stripCDATA(value))
}

func collapseSpace(value string) string {
	return strings.Join(strings.Fields(value), " ")
}
