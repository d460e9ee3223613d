package core

import "time"

// VerifyStats summarizes the evidence/policy stage for one aspect.
type VerifyStats struct {
	TotalFindings    int            `json:"total_findings"`
	Verified         int            `json:"verified"`
	Unverified       int            `json:"unverified"`
	Downgraded       int            `json:"downgraded"`
	UnverifiedReason map[string]int `json:"unverified_reason_counts,omitempty"`
}

// Accumulate folds another aspect's stats into a running total.
func (s *VerifyStats) Accumulate(other VerifyStats) {
	s.TotalFindings += other.TotalFindings
	s.Verified += other.Verified
	s.Unverified += other.Unverified
	s.Downgraded += other.Downgraded
	for k, v := range other.UnverifiedReason {
		if s.UnverifiedReason == nil {
			s.UnverifiedReason = make(map[string]int)
		}
		s.UnverifiedReason[k] += v
	}
}

// RunStats carries run-level statistics, persisted for audit.
type RunStats struct {
	Aspects       map[string]VerifyStats `json:"aspects"`
	Totals        VerifyStats            `json:"totals"`
	SchemaFailed  []string               `json:"schema_failed_aspects,omitempty"`
	TimedOut      []string               `json:"timed_out_aspects,omitempty"`
	BundleWarning int                    `json:"bundle_warning_count"`
}

// ReviewReport is the aggregate of all aspect results for one run. Created
// once after all aspects resolve, immutable once persisted, the sole input
// to delivery.
type ReviewReport struct {
	ScopeID            string            `json:"scope_id"`
	HeadSHA            string            `json:"head_sha,omitempty"`
	Status             Status            `json:"status"`
	AspectStatuses     map[string]Status `json:"aspect_statuses"`
	Findings           []Finding         `json:"findings"`
	Questions          []string          `json:"questions"`
	OverallExplanation string            `json:"overall_explanation"`
	Stats              RunStats          `json:"stats"`
	GeneratedAt        time.Time         `json:"generated_at"`
}

// DeliveryEntry records one posted inline comment keyed by fingerprint.
type DeliveryEntry struct {
	CommentID   int64  `json:"comment_id"`
	LastSeenRun string `json:"last_seen_run"`
	Resolved    bool   `json:"resolved"`
}

// DeliveryRecord is the only durable cross-run state: the mapping of finding
// fingerprints to posted comments, used to make inline delivery idempotent.
// It grows monotonically; entries whose finding disappeared are marked
// resolved, never deleted, so dedup stays correct if the finding reappears.
//
// Concurrent runs against the same record are the caller's responsibility to
// serialize; within a run it is read once and rewritten atomically once.
type DeliveryRecord struct {
	Version  int                      `json:"version"`
	RepoFull string                   `json:"repo_full_name"`
	PRNumber int                      `json:"pr_number"`
	Entries  map[string]DeliveryEntry `json:"entries"`
}

// DeliveryRecordVersion is the current on-disk schema version.
const DeliveryRecordVersion = 1

// NewDeliveryRecord returns an empty record for a change.
func NewDeliveryRecord(repoFull string, pr int) *DeliveryRecord {
	return &DeliveryRecord{
		Version:  DeliveryRecordVersion,
		RepoFull: repoFull,
		PRNumber: pr,
		Entries:  make(map[string]DeliveryEntry),
	}
}
