// Package dedup decides whether a discovered video is already known.
//
// Matching runs in strictly decreasing confidence: source locator, exact
// normalized title, then fuzzy title similarity. Fuzzy hits are only ever
// surfaced as suggestions for an operator, never merged automatically.
package dedup

import (
	"context"
	"errors"
	"fmt"

	"mvault/internal/store"
	"mvault/internal/textutil"
)

// MatchKind says which rule produced a match.
type MatchKind string

const (
	MatchByLocator MatchKind = "locator"
	MatchByTitle   MatchKind = "title"
)

// Match is a confirmed duplicate of an existing candidate.
type Match struct {
	Candidate *store.Candidate
	Kind      MatchKind
}

// Suggestion is a possible duplicate that requires operator review.
type Suggestion struct {
	Candidate  *store.Candidate
	Similarity float64
}

// Lookup is the slice of store the index needs.
type Lookup interface {
	FindByLocator(ctx context.Context, artistID int64, locator string) (*store.Candidate, error)
	FindByNormalizedTitle(ctx context.Context, artistID int64, normalizedTitle string) ([]*store.Candidate, error)
	ListByArtist(ctx context.Context, artistID int64) ([]*store.Candidate, error)
}

// Index answers duplicate queries against the candidate store.
type Index struct {
	lookup    Lookup
	threshold float64
}

// NewIndex builds an index. threshold is the similarity above which a fuzzy
// suggestion is reported; values outside (0, 1] fall back to 0.85.
func NewIndex(lookup Lookup, threshold float64) *Index {
	if threshold <= 0 || threshold > 1 {
		threshold = 0.85
	}
	return &Index{lookup: lookup, threshold: threshold}
}

// FindExisting checks whether a video identified by locator and title is
// already tracked for the artist. A nil match with non-empty suggestions
// means "probably known, ask a human".
func (ix *Index) FindExisting(ctx context.Context, artistID int64, locator, title string) (*Match, []Suggestion, error) {
	if locator != "" {
		existing, err := ix.lookup.FindByLocator(ctx, artistID, locator)
		switch {
		case err == nil:
			return &Match{Candidate: existing, Kind: MatchByLocator}, nil, nil
		case errors.Is(err, store.ErrNotFound):
		default:
			return nil, nil, fmt.Errorf("locator lookup: %w", err)
		}
	}

	normalized := textutil.NormalizeTitle(title)
	if normalized == "" {
		return nil, nil, nil
	}

	exact, err := ix.lookup.FindByNormalizedTitle(ctx, artistID, normalized)
	if err != nil {
		return nil, nil, fmt.Errorf("title lookup: %w", err)
	}
	if len(exact) > 0 {
		return &Match{Candidate: exact[0], Kind: MatchByTitle}, nil, nil
	}

	all, err := ix.lookup.ListByArtist(ctx, artistID)
	if err != nil {
		return nil, nil, fmt.Errorf("artist scan: %w", err)
	}

	var suggestions []Suggestion
	for _, candidate := range all {
		similarity := textutil.TitleSimilarity(normalized, candidate.NormalizedTitle)
		if similarity >= ix.threshold {
			suggestions = append(suggestions, Suggestion{Candidate: candidate, Similarity: similarity})
		}
	}
	return nil, suggestions, nil
}
