package textutil

import "testing"

func TestNormalizeTitle(t *testing.T) {
	cases := []struct {
		name string
		in   string
		want string
	}{
		{"plain", "Song A", "song a"},
		{"punctuation", "Song: A (Official Video)", "song a official video"},
		{"diacritics", "Beyoncé — Déjà Vu", "beyonce deja vu"},
		{"mixed runs", "  IT'S   ALIVE!!  ", "it s alive"},
		{"empty", "???", ""},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := NormalizeTitle(tc.in); got != tc.want {
				t.Fatalf("NormalizeTitle(%q) = %q, want %q", tc.in, got, tc.want)
			}
		})
	}
}

func TestNormalizeTitleStable(t *testing.T) {
	variants := []string{"Déjà Vu", "deja vu", "DEJA-VU", "Deja  Vu!"}
	want := NormalizeTitle(variants[0])
	for _, v := range variants[1:] {
		if got := NormalizeTitle(v); got != want {
			t.Fatalf("NormalizeTitle(%q) = %q, want %q", v, got, want)
		}
	}
}
