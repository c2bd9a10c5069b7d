package feeds

import (
	"log/slog"
	"strings"
	"time"

	"golang.org/x/text/cases"

	"noticiero/internal/logging"
)

// FilterOptions controls which items survive Filter.
type FilterOptions struct {
	Now           time.Time
	Window        time.Duration
	CensoredWords []string
}

// Filter keeps items published no earlier than Now-Window whose title and
// content contain none of the censored words (Unicode case-insensitive
// substring match). Input order is preserved and the input is not modified.
func Filter(items []NewsItem, opts FilterOptions) []NewsItem {
	folder := cases.Fold()
	words := make([]string, 0, len(opts.CensoredWords))
	for _, word := range opts.CensoredWords {
		if w := strings.TrimSpace(word); w != "" {
			words = append(words, folder.String(w))
		}
	}
	cutoff := opts.Now.Add(-opts.Window)

	kept := make([]NewsItem, 0, len(items))
	for _, item := range items {
		if item.PublicationDate.Before(cutoff) {
			continue
		}
		if containsAny(folder, item.Title, words) || containsAny(folder, item.Content, words) {
			continue
		}
		kept = append(kept, item)
	}
	return kept
}

// FilterAndLog runs Filter and records how many items were discarded and kept.
func FilterAndLog(logger *slog.Logger, items []NewsItem, opts FilterOptions) []NewsItem {
	kept := Filter(items, opts)
	logging.NewComponentLogger(logger, "filter").Info("news filtered",
		logging.Int("discarded", len(items)-len(kept)),
		logging.Int("retained", len(kept)),
		logging.Duration("window", opts.Window),
	)
	return kept
}

func containsAny(folder cases.Caser, text string, words []string) bool {
	if len(words) == 0 || text == "" {
		return false
	}
	folded := folder.String(text)
	for _, word := range words {
		if strings.Contains(folded, word) {
			return true
		}
	}
	return false
}
