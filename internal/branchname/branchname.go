// Package branchname resolves branch names against a project's naming
// policy and defines the ordering of version branches in a multi-main
// branch family.
package branchname

import (
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/wardenbot/warden/internal/cfg"
)

// protectedBranchRe matches the long-lived branches that are exempt from
// the naming policy: dev, master, main, staging and the per-version
// integration branches like v2/dev.
var protectedBranchRe = regexp.MustCompile(`^((dev|master|main|staging)|(.*/(dev|master)))$`)

// ErrProtected is returned by Resolve for branches exempt from the naming
// policy.
var ErrProtected = errors.New("branch is a protected long-lived branch")

// ViolationError reports a branch name that matches neither the project's
// pattern nor any exemption.
// It is a policy violation to surface to the user, not a processing
// failure.
type ViolationError struct {
	Project string
	Branch  string
}

func (e *ViolationError) Error() string {
	return fmt.Sprintf("branch %q does not match the naming policy of project %q", e.Branch, e.Project)
}

// Ref is a branch name resolved against a project policy.
type Ref struct {
	Branch string

	// IssueIID is the issue encoded in the branch name, 0 when HasIssue
	// is false.
	IssueIID int
	// HasIssue is false when the branch carries the no-issue sentinel
	// instead of a ticket number.
	HasIssue bool

	// Version is the branch-family version token, empty for single-main
	// projects.
	Version string
}

// Resolve parses branch against the project's pattern.
//
// Protected long-lived branches and configured exceptions yield
// ErrProtected. Branches matching neither pattern nor exemptions yield a
// *ViolationError. Any other error is impossible, a matching branch always
// resolves.
func Resolve(policy *cfg.ProjectPolicy, branch string) (*Ref, error) {
	match := policy.BranchRegex.FindStringSubmatch(branch)
	if match == nil {
		if protectedBranchRe.MatchString(branch) || isException(policy, branch) {
			return nil, ErrProtected
		}

		return nil, &ViolationError{Project: policy.Project, Branch: branch}
	}

	ref := Ref{Branch: branch}

	iid := group(policy.BranchRegex, match, "iid")
	if iid != cfg.IssueSentinel {
		if nr, err := strconv.Atoi(iid); err == nil {
			ref.IssueIID = nr
			ref.HasIssue = true
		}
	}

	ref.Version = versionOf(policy, policy.BranchRegex, match, branch)

	return &ref, nil
}

func isException(policy *cfg.ProjectPolicy, branch string) bool {
	for _, name := range policy.BranchExceptions {
		if name == branch {
			return true
		}
	}

	return false
}

func group(re *regexp.Regexp, match []string, name string) string {
	for i, groupName := range re.SubexpNames() {
		if groupName == name && i < len(match) {
			return match[i]
		}
	}

	return ""
}

// versionOf extracts the branch-family version token.
// A "version" capture group wins, otherwise the family members are scanned
// as substrings; per the naming invariant a branch contains exactly one
// member, anything else resolves to no version.
func versionOf(policy *cfg.ProjectPolicy, re *regexp.Regexp, match []string, branch string) string {
	if !policy.MultiMain() {
		return ""
	}

	if v := group(re, match, "version"); v != "" {
		for _, member := range policy.MainBranches {
			if v == member {
				return v
			}
		}

		return ""
	}

	var found string
	for _, member := range policy.MainBranches {
		if strings.Contains(branch, member) {
			if found != "" {
				return ""
			}

			found = member
		}
	}

	return found
}

// PreviousVersions returns the family members preceding version, nearest
// first.
// The result is empty when the project is not multi-main, the version is
// unknown or it is the first of the family.
func PreviousVersions(policy *cfg.ProjectPolicy, version string) []string {
	idx := versionIndex(policy, version)
	if idx <= 0 {
		return nil
	}

	result := make([]string, 0, idx)
	for i := idx - 1; i >= 0; i-- {
		result = append(result, policy.MainBranches[i])
	}

	return result
}

// NextVersions returns the family members following version, nearest
// first.
func NextVersions(policy *cfg.ProjectPolicy, version string) []string {
	idx := versionIndex(policy, version)
	if idx < 0 || idx >= len(policy.MainBranches)-1 {
		return nil
	}

	return append([]string{}, policy.MainBranches[idx+1:]...)
}

func versionIndex(policy *cfg.ProjectPolicy, version string) int {
	for i, member := range policy.MainBranches {
		if member == version {
			return i
		}
	}

	return -1
}

// SiblingBranch derives the name of the equivalent branch in another
// version of the family by swapping the version token.
func SiblingBranch(branch, from, to string) string {
	return strings.Replace(branch, from, to, 1)
}

// Normalize replaces every family version token in branch with a
// placeholder.
// Two branches implement the same feature iff their normalized names are
// equal.
func Normalize(policy *cfg.ProjectPolicy, branch string) string {
	result := branch
	for _, member := range policy.MainBranches {
		result = strings.ReplaceAll(result, member, "xxx")
	}

	return result
}

// IntegrationBranch returns the integration branch MRs of the given
// version target, e.g. "v2/dev".
func IntegrationBranch(version string) string {
	return version + "/dev"
}
