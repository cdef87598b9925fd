package store

import "time"

// Status captures a candidate's lifecycle state.
type Status string

const (
	// StatusDiscovered is the initial state after provider discovery, before
	// the policy filter has run.
	StatusDiscovered Status = "discovered"
	// StatusWanted marks candidates accepted by policy and awaiting download.
	StatusWanted Status = "wanted"
	// StatusQueued marks candidates handed to the download queue.
	StatusQueued Status = "queued"
	// StatusDownloading marks candidates claimed by a worker.
	StatusDownloading Status = "downloading"
	// StatusOrganized marks candidates placed in the library.
	StatusOrganized Status = "organized"
	// StatusFailed marks candidates whose download failed terminally or
	// exhausted its attempts.
	StatusFailed Status = "failed"
	// StatusSkipped marks candidates rejected by policy or an operator.
	StatusSkipped Status = "skipped"
)

// AllStatuses lists every candidate status in lifecycle order.
func AllStatuses() []Status {
	return []Status{
		StatusDiscovered,
		StatusWanted,
		StatusQueued,
		StatusDownloading,
		StatusOrganized,
		StatusFailed,
		StatusSkipped,
	}
}

// Skipping is a user decision and is allowed from every resting state; only
// queued and downloading resist, since the pipeline owns those rows until the
// job resolves.
var allowedTransitions = map[Status][]Status{
	StatusDiscovered:  {StatusWanted, StatusSkipped},
	StatusWanted:      {StatusQueued, StatusSkipped, StatusOrganized},
	StatusQueued:      {StatusDownloading, StatusWanted},
	StatusDownloading: {StatusOrganized, StatusWanted, StatusFailed},
	StatusOrganized:   {StatusWanted, StatusSkipped},
	StatusFailed:      {StatusWanted, StatusOrganized, StatusSkipped},
	StatusSkipped:     {StatusWanted},
}

// CanTransition reports whether the edge from -> to exists in the status machine.
func CanTransition(from, to Status) bool {
	for _, next := range allowedTransitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

// InFlight reports whether the status represents work the download pipeline owns.
func (s Status) InFlight() bool {
	return s == StatusQueued || s == StatusDownloading
}

// Valid reports whether the status is one of the known lifecycle states.
func (s Status) Valid() bool {
	for _, known := range AllStatuses() {
		if s == known {
			return true
		}
	}
	return false
}

// Artist is a monitored artist row. IncludeKinds and ExcludeKinds override
// the global acquisition policy for this artist: nil inherits the global
// setting, a non-nil slice (even an empty one) replaces it.
type Artist struct {
	ID               int64
	Name             string
	ProviderID       string
	Monitored        bool
	IncludeKinds     []string
	ExcludeKinds     []string
	LastDiscoveredAt *time.Time
	CreatedAt        time.Time
	UpdatedAt        time.Time
}

// Candidate is a single acquisition candidate row.
type Candidate struct {
	ID              int64
	ArtistID        int64
	Title           string
	NormalizedTitle string
	Kind            string
	SourceLocator   string
	Status          Status
	Checksum        string
	LibraryPath     string
	ReleasedAt      *time.Time
	DurationSec     int
	AttemptCount    int
	LastError       string
	LastAttemptAt   *time.Time
	CreatedAt       time.Time
	UpdatedAt       time.Time
}
