package report

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"strings"

	"github.com/tribunal-dev/tribunal/internal/core"
)

// FingerprintPrefix versions the fingerprint scheme. Bump it whenever the
// canonical payload below changes, so stale delivery records never collide
// with new fingerprints.
const FingerprintPrefix = "tbf1:"

// fingerprintPayload is the canonical identity of a finding across runs.
// Field order is fixed; json.Marshal of a struct is deterministic, so the
// serialized bytes are stable. Priority participates only through its class:
// a P0→P1 reshuffle (or a policy downgrade landing in the same class) does
// not create a duplicate comment, while a blocking→advisory move does.
type fingerprintPayload struct {
	Aspect    string `json:"aspect"`
	Path      string `json:"path"`
	LineStart int    `json:"line_start"`
	LineEnd   int    `json:"line_end"`
	Class     string `json:"class"`
	TitleHash string `json:"title_hash"`
}

// Fingerprint returns the stable identity of a finding for inline-comment
// dedup. Title text participates via a whitespace-insensitive, case-folded
// hash so cosmetic rewording does not repost the comment.
func Fingerprint(f core.Finding) string {
	payload := fingerprintPayload{
		Aspect:    f.Aspect,
		Path:      f.CodeLocation.Path,
		LineStart: f.CodeLocation.LineRange.Start,
		LineEnd:   f.CodeLocation.LineRange.End,
		Class:     f.Priority.Class(),
		TitleHash: titleHash(f.Title),
	}
	raw, err := json.Marshal(payload)
	if err != nil {
		// Unreachable for a struct of strings and ints.
		panic(err)
	}
	sum := sha256.Sum256(raw)
	return FingerprintPrefix + hex.EncodeToString(sum[:])
}

func titleHash(title string) string {
	normalized := strings.ToLower(strings.Join(strings.Fields(title), " "))
	sum := sha256.Sum256([]byte(normalized))
	return hex.EncodeToString(sum[:])
}
