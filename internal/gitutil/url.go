package gitutil

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

var prURLPattern = regexp.MustCompile(`github\.com/([^/]+)/([^/]+)/pull/(\d+)$`)

// ParsePullRequestURL extracts owner, repo, and PR number from a GitHub pull
// request URL of the form https://github.com/{owner}/{repo}/pull/{number}.
// A trailing slash and a missing scheme are tolerated.
func ParsePullRequestURL(url string) (owner, repo string, prNumber int, err error) {
	m := prURLPattern.FindStringSubmatch(strings.TrimSuffix(url, "/"))
	if m == nil {
		return "", "", 0, fmt.Errorf("not a pull request URL: %s", url)
	}

	prNumber, err = strconv.Atoi(m[3])
	if err != nil || prNumber <= 0 {
		return "", "", 0, fmt.Errorf("invalid pull request number %q", m[3])
	}
	return m[1], m[2], prNumber, nil
}
