package db

// Planning represents a stored distribution run over a date range
type Planning struct {
	ID        string
	Name      string
	Start     string // YYYY-MM-DD
	End       string // YYYY-MM-DD
	Seed      uint64
	Success   bool
	Unfilled  int
	CreatedAt string // RFC3339
}

// Assignment represents one slot held by a person in a stored planning
type Assignment struct {
	ID          string
	PlanningID  string
	Date        string // YYYY-MM-DD
	PostType    string
	Site        string
	Person      string
	Stage       string
	Combination string
	Relaxed     bool

	// Preserved assignments survive a planning reset
	Preserved bool
}
