package store

import (
	"strings"
	"time"
)

// State is the editorial lifecycle of a noticiero.
type State string

const (
	StatePending   State = "PENDING"
	StatePublished State = "PUBLISHED"
	StateRejected  State = "REJECTED"
)

// ParseState accepts a state name in any case.
func ParseState(value string) (State, bool) {
	switch State(strings.ToUpper(strings.TrimSpace(value))) {
	case StatePending:
		return StatePending, true
	case StatePublished:
		return StatePublished, true
	case StateRejected:
		return StateRejected, true
	}
	return "", false
}

// Terminal reports whether no further transition is allowed.
func (s State) Terminal() bool {
	return s == StatePublished || s == StateRejected
}

// Noticiero is one drafted bulletin.
type Noticiero struct {
	ID              string    `json:"id"`
	Title           string    `json:"title"`
	Guion           string    `json:"guion"`
	State           State     `json:"state"`
	PublicationDate time.Time `json:"publicationDate"`
	CreatedAt       time.Time `json:"createdAt"`
	UpdatedAt       time.Time `json:"updatedAt"`
}

// FeedSource is a registered RSS feed.
type FeedSource struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	URL       string    `json:"url"`
	Active    bool      `json:"active"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// BroadcastConfig holds the channel identity and the censored word list.
type BroadcastConfig struct {
	ChannelName     string   `json:"channelName"`
	MalePresenter   string   `json:"malePresenter"`
	FemalePresenter string   `json:"femalePresenter"`
	CensoredWords   []string `json:"censoredWords"`
}

// Normalized returns a copy with presenter names upper-cased, since they
// double as speaker labels in the script and in the speech request.
func (b BroadcastConfig) Normalized() BroadcastConfig {
	out := BroadcastConfig{
		ChannelName:     strings.TrimSpace(b.ChannelName),
		MalePresenter:   strings.ToUpper(strings.TrimSpace(b.MalePresenter)),
		FemalePresenter: strings.ToUpper(strings.TrimSpace(b.FemalePresenter)),
		CensoredWords:   make([]string, 0, len(b.CensoredWords)),
	}
	for _, word := range b.CensoredWords {
		if w := strings.TrimSpace(word); w != "" {
			out.CensoredWords = append(out.CensoredWords, w)
		}
	}
	return out
}

// ListFilter narrows ListNoticieros.
type ListFilter struct {
	State State
	Limit int
}
