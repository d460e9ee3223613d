package core

import "time"

// RunRecord is a completed review run as stored in the database: the scope it
// covered and the machine-readable report it produced.
type RunRecord struct {
	ID           int64
	RepoFullName string
	PRNumber     int
	HeadSHA      string
	Status       string
	ReportJSON   string
	CreatedAt    time.Time
}
