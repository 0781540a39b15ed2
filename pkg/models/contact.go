package models

// ContactRecord is one deduplicated contact scraped from a list.
type ContactRecord struct {
	Name            string
	Phone           string
	NormalizedPhone string
	About           string
	Role            Role
	DMLink          string

	// Key is the dedup key the record is stored under (normalized phone or raw text).
	Key string
}

// Observation is the text of one DOM node captured during a single tick.
type Observation struct {
	Text  string
	Lines []string
}
