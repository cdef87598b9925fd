package organize

import (
	"path/filepath"
	"strings"

	"mvault/internal/textutil"
)

// Plan is the computed library destination for one video.
type Plan struct {
	ArtistDir string
	FileName  string
}

// Path returns the destination relative to the library root.
func (p Plan) Path() string {
	return filepath.Join(p.ArtistDir, p.FileName)
}

// Planner computes library paths. It is pure: the same inputs always yield
// the same plan, and no filesystem state is consulted.
type Planner struct{}

// Plan maps an artist, title, and extension onto <Artist>/<Title><ext> with
// filesystem-hostile characters sanitized out of both segments. The artist is
// carried by the directory, not repeated in the filename.
func (Planner) Plan(artist, title, ext string) Plan {
	artistName := textutil.SanitizeFileName(artist)
	if artistName == "" {
		artistName = "Unknown Artist"
	}
	videoTitle := textutil.SanitizeFileName(title)
	if videoTitle == "" {
		videoTitle = "Untitled"
	}
	ext = strings.ToLower(strings.TrimSpace(ext))
	if ext != "" && !strings.HasPrefix(ext, ".") {
		ext = "." + ext
	}
	return Plan{
		ArtistDir: artistName,
		FileName:  videoTitle + ext,
	}
}
