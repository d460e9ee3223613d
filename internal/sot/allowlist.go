package sot

// DefaultAllowlist is the default set of reference-document globs.
// Deliberately small and repo-relative.
func DefaultAllowlist() []string {
	return []string{
		// Project docs
		"docs/prd/**/*.md",
		"docs/epics/**/*.md",
		"docs/decisions.md",
		"docs/glossary.md",
		// Root-level references
		"README.md",
		"CHANGELOG.md",
		"AGENTS.md",
		// Agent rules (project governance)
		".agent/commands/**/*.md",
		".agent/rules/**/*.md",
	}
}
