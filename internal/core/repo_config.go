package core

// RepoConfig represents the structure of the .tribunal.yml file a repository
// may carry to tune its own reviews.
type RepoConfig struct {
	// Aspects narrows which reviewers run. Empty means all of them.
	Aspects []string `yaml:"aspects"`

	// SoTPaths is the allow-list of reference-document globs bundled as
	// source-of-truth context. Empty keeps the built-in defaults.
	SoTPaths []string `yaml:"sot_paths"`

	// CustomInstructions are appended verbatim to every reviewer prompt.
	CustomInstructions []string `yaml:"custom_instructions"`

	// Explore enables the read-only exploration tools for reviewers.
	Explore bool `yaml:"explore"`

	// ExploreAspects narrows exploration to the named aspects. Empty with
	// Explore set means every aspect may explore.
	ExploreAspects []string `yaml:"explore_aspects"`

	// ExplorePaths is the glob allow-list exploring reviewers are told to
	// stay within. Advisory at invocation time; the post-hoc audit still
	// gates every read.
	ExplorePaths []string `yaml:"explore_paths"`
}

// MayExplore reports whether the named aspect is allowed to explore.
func (c *RepoConfig) MayExplore(aspect string) bool {
	if !c.Explore {
		return false
	}
	if len(c.ExploreAspects) == 0 {
		return true
	}
	for _, a := range c.ExploreAspects {
		if a == aspect {
			return true
		}
	}
	return false
}

// DefaultRepoConfig returns a config with default values.
func DefaultRepoConfig() *RepoConfig {
	return &RepoConfig{
		Aspects:            []string{},
		SoTPaths:           []string{},
		CustomInstructions: []string{},
	}
}
