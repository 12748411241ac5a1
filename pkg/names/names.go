// Package names owns the naming rules of the platform.
// The canonical repository name "<login>-<project>" is the key used by the
// filesystem, the CI job parameters, and the git URL authorization check,
// so all three must agree on how it is formed and validated.
package names

import (
	"fmt"
	"sort"
	"strings"
)

// Canonical returns the canonical repository name for a (login, project) pair.
// Logins are system-generated and never contain '-', so the first '-' in the
// canonical name always separates login from project.
func Canonical(login, project string) string {
	return login + "-" + project
}

// ValidateProjectName checks a user-supplied project name.
// Accepted names are nonempty, at most maxLen characters, drawn from
// [a-z0-9-], with no leading or trailing '-' and no '--'.
// The returned error names the rule that was broken.
func ValidateProjectName(name string, maxLen int) error {
	if name == "" {
		return fmt.Errorf("project name is empty")
	}
	if len(name) > maxLen {
		return fmt.Errorf("project name is longer than %v characters", maxLen)
	}
	if bad := disallowedChars(name); len(bad) != 0 {
		return fmt.Errorf("project name contains disallowed characters %v (only a-z, 0-9 and '-' are allowed)", bad)
	}
	if name[0] == '-' || name[len(name)-1] == '-' {
		return fmt.Errorf("project name may not start or end with '-'")
	}
	if strings.Contains(name, "--") {
		return fmt.Errorf("project name may not contain consecutive hyphens")
	}
	return nil
}

func disallowedChars(name string) []string {
	seen := map[rune]bool{}
	for _, r := range name {
		if r >= 'a' && r <= 'z' || r >= '0' && r <= '9' || r == '-' {
			continue
		}
		seen[r] = true
	}
	bad := []string{}
	for r := range seen {
		bad = append(bad, fmt.Sprintf("%q", r))
	}
	sort.Strings(bad)
	return bad
}

// FirstSegmentOwnedBy reports whether the first path segment of uri belongs
// to login, i.e. whether it begins with "<login>-". uri is the raw request
// path forwarded by the fronting git server, e.g. "/alice1-hello.git/info/refs".
func FirstSegmentOwnedBy(uri, login string) bool {
	if login == "" || len(uri) < 2 || uri[0] != '/' {
		return false
	}
	segment := uri[1:]
	if i := strings.IndexByte(segment, '/'); i != -1 {
		segment = segment[:i]
	}
	return strings.HasPrefix(segment, login+"-")
}
