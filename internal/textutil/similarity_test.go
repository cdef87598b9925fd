package textutil

import "testing"

func TestTitleSimilarityIdentical(t *testing.T) {
	if got := TitleSimilarity("Song A (Official Video)", "song a official video"); got < 0.999 {
		t.Fatalf("similarity = %f, want ~1.0", got)
	}
}

func TestTitleSimilarityDisjoint(t *testing.T) {
	if got := TitleSimilarity("Completely Different", "Song A"); got != 0 {
		t.Fatalf("similarity = %f, want 0", got)
	}
}

func TestTitleSimilarityPartial(t *testing.T) {
	got := TitleSimilarity("Song A", "Song A Live at Wembley")
	if got <= 0 || got >= 1 {
		t.Fatalf("similarity = %f, want between 0 and 1", got)
	}
}

func TestFingerprintNilSafety(t *testing.T) {
	if fp := NewFingerprint(""); fp != nil {
		t.Fatalf("expected nil fingerprint for empty input")
	}
	if got := CosineSimilarity(nil, NewFingerprint("song")); got != 0 {
		t.Fatalf("similarity with nil = %f, want 0", got)
	}
}
