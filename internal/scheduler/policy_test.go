package scheduler

import (
	"testing"

	"mvault/internal/store"
)

func testPolicy() Policy {
	return Policy{
		IncludeKinds: []string{"official", "live"},
		ExcludeKinds: []string{"teaser"},
		KindKeywords: map[string][]string{
			"live":   {"live at", "(live)"},
			"lyric":  {"lyric video"},
			"teaser": {"teaser"},
		},
	}
}

func TestClassifyPrefersProviderKind(t *testing.T) {
	p := testPolicy()
	if got := p.Classify("Lyric", "Song Live At Wembley"); got != "lyric" {
		t.Fatalf("Classify = %q, want provider kind to win", got)
	}
}

func TestClassifyInfersFromKeywords(t *testing.T) {
	p := testPolicy()
	if got := p.Classify("", "Song (Live) 2024"); got != "live" {
		t.Fatalf("Classify = %q, want live", got)
	}
	if got := p.Classify("", "Plain Title"); got != DefaultKind {
		t.Fatalf("Classify = %q, want default", got)
	}
}

func TestDecide(t *testing.T) {
	p := testPolicy()
	cases := []struct {
		kind  string
		title string
		want  store.Status
	}{
		{"official", "Song", store.StatusWanted},
		{"live", "Song", store.StatusWanted},
		{"teaser", "Song", store.StatusSkipped},
		{"lyric", "Song", store.StatusSkipped},
		{"", "Song Teaser", store.StatusSkipped},
		{"", "Song", store.StatusWanted},
	}
	for _, tc := range cases {
		got, _ := p.Decide(tc.kind, tc.title)
		if got != tc.want {
			t.Fatalf("Decide(%q, %q) = %s, want %s", tc.kind, tc.title, got, tc.want)
		}
	}
}

func TestForArtistOverridesGlobalPolicy(t *testing.T) {
	p := testPolicy()

	inherited := p.ForArtist(nil, nil)
	if got, _ := inherited.Decide("lyric", "Song"); got != store.StatusSkipped {
		t.Fatalf("nil overrides must inherit the global policy, got %s", got)
	}

	lyricFan := p.ForArtist([]string{"lyric"}, nil)
	if got, _ := lyricFan.Decide("lyric", "Song"); got != store.StatusWanted {
		t.Fatalf("include override not applied, got %s", got)
	}
	if got, _ := lyricFan.Decide("official", "Song"); got != store.StatusSkipped {
		t.Fatalf("include override must replace the global list, got %s", got)
	}

	// An explicit empty exclude list lifts the global teaser exclusion.
	completist := p.ForArtist([]string{}, []string{})
	if got, _ := completist.Decide("teaser", "Song"); got != store.StatusWanted {
		t.Fatalf("empty overrides must accept everything, got %s", got)
	}
}

func TestDecideEmptyIncludeAcceptsAllButExcluded(t *testing.T) {
	p := Policy{ExcludeKinds: []string{"teaser"}}
	if got, _ := p.Decide("interview", "x"); got != store.StatusWanted {
		t.Fatalf("empty include list must accept non-excluded kinds, got %s", got)
	}
	if got, _ := p.Decide("teaser", "x"); got != store.StatusSkipped {
		t.Fatalf("excluded kind must be skipped, got %s", got)
	}
}
