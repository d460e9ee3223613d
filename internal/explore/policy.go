package explore

import (
	"fmt"
	"regexp"
	"slices"
	"strings"

	"github.com/tribunal-dev/tribunal/internal/core"
)

// TrackedIndex answers whether a repo-relative path is tracked by version
// control. Reads of untracked files are policy violations: untracked files
// include local secrets and build output.
type TrackedIndex interface {
	IsTracked(path string) bool
}

// forbiddenShellChars reject anything that could chain, substitute, or
// redirect. The validator never tries to understand these, only to refuse
// them.
const forbiddenShellChars = "\n$;|&><`"

var forbiddenGitGlobalOpts = map[string]bool{
	"-c": true, "--config": true, "--git-dir": true, "--work-tree": true,
	"--exec-path": true, "--paginate": true, "-p": true,
}

var allowedGitSubcommands = map[string]bool{
	"diff": true, "log": true, "blame": true, "show": true, "status": true,
}

// forbiddenPathRoots are repo-relative roots a reviewer may never touch:
// version-control internals and this tool's own artifact directory.
var forbiddenPathRoots = map[string]bool{
	".git":      true,
	".tribunal": true,
}

func violation(format string, args ...any) error {
	return core.Blocked("explore policy violation: " + fmt.Sprintf(format, args...))
}

// Policy audits recorded tool events against the read-only exploration
// contract.
type Policy struct {
	tracked TrackedIndex
}

// NewPolicy builds a policy over the repository's tracked-file index.
func NewPolicy(tracked TrackedIndex) *Policy {
	return &Policy{tracked: tracked}
}

// Violation pairs a failed event with the rule it broke.
type Violation struct {
	Event ToolEvent
	Err   error
}

// AuditResult is the aggregate verdict over a trace. One violation blocks
// the whole exploration; there is no per-event tolerance.
type AuditResult struct {
	Events     int
	Violations []Violation
}

// Blocked reports whether the exploration verdict is fail-closed Blocked.
func (r *AuditResult) Blocked() bool {
	return len(r.Violations) > 0
}

// Err returns the first violation as the gate error, or nil.
func (r *AuditResult) Err() error {
	if len(r.Violations) == 0 {
		return nil
	}
	return r.Violations[0].Err
}

// Audit evaluates every event independently and collects all violations,
// so the artifact shows the full set of problems, not just the first.
func (p *Policy) Audit(events []ToolEvent) *AuditResult {
	res := &AuditResult{Events: len(events)}
	for _, ev := range events {
		var err error
		switch ev.Kind {
		case EventRead:
			err = p.ValidateRead(ev.Path)
		case EventSearch:
			err = p.ValidateSearch(ev)
		case EventShell:
			err = ValidateShellCommand(ev.Command)
		default:
			err = violation("unknown tool event kind %q", ev.Kind)
		}
		if err != nil {
			res.Violations = append(res.Violations, Violation{Event: ev, Err: err})
		}
	}
	return res
}

// ValidateRead enforces the file-read rules: repo-relative, outside the
// sensitive denylist, and tracked by version control.
func (p *Policy) ValidateRead(path string) error {
	norm, err := normalizeRelPath(path)
	if err != nil {
		return err
	}
	if err := checkForbiddenPath(norm); err != nil {
		return err
	}
	if p.tracked == nil || !p.tracked.IsTracked(norm) {
		return violation("read of untracked file %q", norm)
	}
	return nil
}

// ValidateSearch requires the search target to be qualified: an explicit
// extension or a concrete filename in the final segment. An unqualified
// wildcard could sweep in environment or secret files, so it is refused
// outright rather than filtered.
func (p *Policy) ValidateSearch(ev ToolEvent) error {
	filter := ev.Include
	if filter == "" {
		filter = ev.Path
	}
	if filter == "" {
		filter = ev.Pattern
	}
	if filter == "" {
		return violation("search without a path filter")
	}

	norm, err := normalizeRelPath(filter)
	if err != nil {
		return err
	}
	if err := checkForbiddenPath(norm); err != nil {
		return err
	}

	segs := strings.Split(norm, "/")
	last := segs[len(segs)-1]
	if !strings.ContainsAny(last, "*?[") {
		return nil // concrete filename
	}
	dot := strings.LastIndex(last, ".")
	if dot < 0 || dot == len(last)-1 {
		return violation("search filter %q has no explicit extension", filter)
	}
	ext := last[dot:]
	if strings.ContainsAny(ext, "*?[") || strings.HasPrefix(ext, ".env") {
		return violation("search filter %q is broad enough to match sensitive files", filter)
	}
	return nil
}

// ValidateShellCommand enforces the read-only git contract: a single `git`
// invocation, `--no-pager` required, allow-listed subcommand, no config or
// output escapes, and patch-emitting forms scoped to explicit repo paths.
func ValidateShellCommand(command string) error {
	cmd := strings.TrimSpace(command)
	if cmd == "" {
		return violation("empty shell command")
	}
	if strings.ContainsAny(cmd, forbiddenShellChars) {
		return violation("shell metacharacters are not allowed")
	}

	tokens, err := splitCommand(cmd)
	if err != nil {
		return violation("unparseable shell command")
	}
	if len(tokens) == 0 || tokens[0] != "git" {
		return violation("shell commands must invoke git")
	}

	i := 1
	sawNoPager := false
	for i < len(tokens) && strings.HasPrefix(tokens[i], "-") {
		opt := tokens[i]
		key, _, hasValue := strings.Cut(opt, "=")
		if forbiddenGitGlobalOpts[key] || strings.HasPrefix(opt, "-c") {
			return violation("forbidden git global option %q", opt)
		}
		if key != "--no-pager" || hasValue {
			return violation("forbidden git global option %q", opt)
		}
		sawNoPager = true
		i++
	}
	if !sawNoPager {
		return violation("git commands must pass --no-pager")
	}
	if i >= len(tokens) {
		return violation("missing git subcommand")
	}

	sub := tokens[i]
	i++
	if !allowedGitSubcommands[sub] {
		return violation("forbidden git subcommand %q", sub)
	}
	args := tokens[i:]

	for _, arg := range args {
		if arg == "--output" || strings.HasPrefix(arg, "--output=") {
			return violation("git args must not use --output")
		}
		if strings.HasPrefix(arg, "--ext") {
			return violation("git args must not use --ext-diff")
		}
		if sub == "blame" && (strings.HasPrefix(arg, "--c") || strings.HasPrefix(arg, "--no-c")) {
			return violation("git blame must not use --contents")
		}
		if arg == "--contents" || strings.HasPrefix(arg, "--contents=") {
			return violation("git args must not use --contents")
		}
	}

	if sub == "diff" {
		return validateGitDiffArgs(args)
	}
	return validateGitScopedArgs(sub, args)
}

func validateGitDiffArgs(args []string) error {
	hasNoExtDiff := false
	for _, arg := range args {
		switch arg {
		case "--no-index":
			return violation("git diff must not use --no-index")
		case "--no-ext-diff":
			hasNoExtDiff = true
		}
	}
	if !hasNoExtDiff {
		return violation("git diff must pass --no-ext-diff")
	}
	for _, arg := range args {
		if arg == "" || strings.HasPrefix(arg, "-") {
			continue
		}
		if err := checkPathArg(arg); err != nil {
			return err
		}
	}
	return nil
}

func validateGitScopedArgs(sub string, args []string) error {
	var scopePaths []string
	if j := slices.Index(args, "--"); j >= 0 {
		for _, pth := range args[j+1:] {
			if pth != "" {
				scopePaths = append(scopePaths, pth)
			}
		}
	}
	if sub == "show" {
		for _, arg := range args {
			if arg == "" || arg == "--" || strings.HasPrefix(arg, "-") {
				continue
			}
			if _, rhs, found := cutLast(arg, ":"); found && rhs != "" {
				scopePaths = append(scopePaths, rhs)
			}
		}
	}

	for _, pth := range scopePaths {
		if strings.HasPrefix(pth, "-") {
			return violation("git pathspec must not start with '-'")
		}
		if isBroadScope(pth) {
			return violation("git pathspec scope %q is too broad", pth)
		}
		if err := checkPathArg(pth); err != nil {
			return err
		}
	}

	if (sub == "show" || sub == "log") && len(scopePaths) == 0 && emitsPatch(sub, args) {
		return violation("git %s with patch output must be scoped with '-- <path>'", sub)
	}

	for _, arg := range args {
		if arg == "" || arg == "--" || strings.HasPrefix(arg, "-") {
			continue
		}
		candidate := arg
		if sub == "show" {
			if _, rhs, found := cutLast(arg, ":"); found {
				candidate = rhs
			}
		}
		if candidate == "" {
			continue
		}
		if err := checkPathArg(candidate); err != nil {
			return err
		}
	}
	return nil
}

// emitsPatch tracks the last patch-affecting flag. `show` emits a patch by
// default; `log` does not.
func emitsPatch(sub string, args []string) bool {
	emits := sub == "show"
	for _, a := range args {
		switch {
		case a == "--no-patch" || a == "-s":
			emits = false
		case a == "--patch" || a == "-p" || a == "-u":
			emits = true
		case a == "--unified" || strings.HasPrefix(a, "--unified="):
			emits = true
		case strings.HasPrefix(a, "-U"):
			emits = true
		}
	}
	return emits
}

func normalizeRelPath(path string) (string, error) {
	if path == "" {
		return "", violation("empty path")
	}
	norm := strings.ReplaceAll(path, "\\", "/")
	if strings.HasPrefix(norm, "/") || strings.HasPrefix(norm, "~") {
		return "", violation("path %q escapes the repository", path)
	}
	if matched, _ := regexp.MatchString(`^[A-Za-z]:/`, norm); matched {
		return "", violation("path %q escapes the repository", path)
	}
	for strings.HasPrefix(norm, "./") {
		norm = norm[2:]
	}
	for _, seg := range strings.Split(norm, "/") {
		if seg == ".." {
			return "", violation("path %q contains parent traversal", path)
		}
	}
	return norm, nil
}

func checkForbiddenPath(norm string) error {
	segs := strings.Split(norm, "/")
	for len(segs) > 0 && segs[0] == "." {
		segs = segs[1:]
	}
	if len(segs) == 0 {
		return nil
	}
	if forbiddenPathRoots[segs[0]] {
		return violation("path %q is in a forbidden directory", norm)
	}
	for _, seg := range segs {
		if strings.HasPrefix(seg, ".env") {
			return violation("path %q matches the sensitive-file denylist", norm)
		}
	}
	return nil
}

func checkPathArg(arg string) error {
	norm, err := normalizeRelPath(arg)
	if err != nil {
		return err
	}
	return checkForbiddenPath(norm)
}

func isBroadScope(path string) bool {
	norm := strings.TrimSpace(strings.ReplaceAll(path, "\\", "/"))
	if norm == "." || norm == "./" {
		return true
	}
	segs := strings.Split(norm, "/")
	for len(segs) > 0 && (segs[0] == "." || segs[0] == "") {
		segs = segs[1:]
	}
	return len(segs) == 0
}

// splitCommand tokenizes a command with POSIX-style single/double quotes.
// Metacharacters were already rejected, so only quoting and whitespace need
// handling; an unterminated quote is an error.
func splitCommand(cmd string) ([]string, error) {
	var tokens []string
	var cur strings.Builder
	inToken := false
	quote := byte(0)

	for i := 0; i < len(cmd); i++ {
		c := cmd[i]
		switch {
		case quote != 0:
			if c == quote {
				quote = 0
			} else {
				cur.WriteByte(c)
			}
		case c == '\'' || c == '"':
			quote = c
			inToken = true
		case c == '\\' && i+1 < len(cmd):
			i++
			cur.WriteByte(cmd[i])
			inToken = true
		case c == ' ' || c == '\t':
			if inToken {
				tokens = append(tokens, cur.String())
				cur.Reset()
				inToken = false
			}
		default:
			cur.WriteByte(c)
			inToken = true
		}
	}
	if quote != 0 {
		return nil, fmt.Errorf("unterminated quote")
	}
	if inToken {
		tokens = append(tokens, cur.String())
	}
	return tokens, nil
}

func cutLast(s, sep string) (before, after string, found bool) {
	i := strings.LastIndex(s, sep)
	if i < 0 {
		return s, "", false
	}
	return s[:i], s[i+len(sep):], true
}
