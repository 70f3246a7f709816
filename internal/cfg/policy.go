package cfg

import (
	"fmt"
	"io"
	"os"
	"regexp"

	"gopkg.in/yaml.v3"
)

// IssueSentinel is the iid capture value marking a branch that is
// deliberately not tied to a tracked issue.
const IssueSentinel = "y2k"

// DefaultBranchRegex is applied to projects that do not configure their own
// pattern.
// It recognizes branches like tkt_1234_fix_login or sup_y2k-hotfix, the
// "iid" group captures the ticket number or the no-issue sentinel.
const DefaultBranchRegex = `^(?:tkt|mig|sup|exp)_(?P<iid>\d+|` + IssueSentinel + `)[-_].+`

const DefaultChangelogFiletype = ".md"

// Check names accepted in the disabled_checks policy list.
const (
	CheckChangelog     = "changelog"
	CheckIssueMetadata = "issue_metadata"
	CheckTitle         = "title"
)

// LabelSet holds the workflow label names of a project.
// They are configuration, not fixed literals.
type LabelSet struct {
	Accepted    string `yaml:"accepted"`
	Test        string `yaml:"test"`
	MultipleMR  string `yaml:"multiple_mr"`
	NoChangelog string `yaml:"no_changelog"`
	DontRush    string `yaml:"dont_rush"`
	SkipAll     string `yaml:"skip_all"`
}

func defaultLabelSet() LabelSet {
	return LabelSet{
		Accepted:    "Accepted",
		Test:        "Test",
		MultipleMR:  "multiple-merge-requests",
		NoChangelog: "no-changelog",
		DontRush:    "dont-rush-me",
		SkipAll:     "warden-off",
	}
}

// ProjectPolicy is the resolved per-project configuration, all optional
// fields filled with their defaults.
type ProjectPolicy struct {
	Project     string
	BranchRegex *regexp.Regexp

	// MainBranches is the ordered version-branch family of a multi-main
	// project, lowest version first. Empty for single-main projects.
	MainBranches []string

	ChangelogFiletype   string
	ChangelogExceptions []string

	// BranchExceptions are branch names exempt from the naming policy in
	// addition to the built-in default branches.
	BranchExceptions []string

	DisabledChecks []string

	// IgnoreQuery is an optional jq expression evaluated against the raw
	// webhook JSON, events for which it yields true are skipped.
	IgnoreQuery string

	Labels LabelSet
}

// MultiMain reports whether the project uses the multi-main branching
// model.
func (p *ProjectPolicy) MultiMain() bool {
	return len(p.MainBranches) > 0
}

func (p *ProjectPolicy) CheckDisabled(name string) bool {
	for _, c := range p.DisabledChecks {
		if c == name {
			return true
		}
	}

	return false
}

// rawPolicy is the YAML shape of a single project entry.
type rawPolicy struct {
	BranchRegex         string   `yaml:"branch_regex"`
	MainBranches        []string `yaml:"main_branches"`
	ChangelogFiletype   string   `yaml:"changelog_filetype"`
	ChangelogExceptions []string `yaml:"changelog_exceptions"`
	BranchExceptions    []string `yaml:"branch_exceptions"`
	DisabledChecks      []string `yaml:"disabled_checks"`
	IgnoreQuery         string   `yaml:"ignore_query"`
	Labels              LabelSet `yaml:"labels"`
}

type rawPolicyFile struct {
	Defaults rawPolicy            `yaml:"defaults"`
	Projects map[string]rawPolicy `yaml:"projects"`
}

// Policies resolves project names to their policy.
// Only projects listed in the policy file are served, events for other
// projects must be rejected.
type Policies struct {
	projects map[string]*ProjectPolicy
}

func LoadPoliciesFile(path string) (*Policies, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer file.Close()

	return LoadPolicies(file)
}

func LoadPolicies(reader io.Reader) (*Policies, error) {
	data, err := io.ReadAll(reader)
	if err != nil {
		return nil, err
	}

	var raw rawPolicyFile
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return nil, err
	}

	result := Policies{projects: make(map[string]*ProjectPolicy, len(raw.Projects))}

	for name, rp := range raw.Projects {
		policy, err := resolvePolicy(name, &rp, &raw.Defaults)
		if err != nil {
			return nil, fmt.Errorf("project %q: %w", name, err)
		}

		result.projects[name] = policy
	}

	return &result, nil
}

func resolvePolicy(name string, rp, defaults *rawPolicy) (*ProjectPolicy, error) {
	policy := ProjectPolicy{
		Project:             name,
		MainBranches:        rp.MainBranches,
		ChangelogFiletype:   firstNonEmpty(rp.ChangelogFiletype, defaults.ChangelogFiletype, DefaultChangelogFiletype),
		ChangelogExceptions: append(append([]string{}, defaults.ChangelogExceptions...), rp.ChangelogExceptions...),
		BranchExceptions:    append(append([]string{}, defaults.BranchExceptions...), rp.BranchExceptions...),
		DisabledChecks:      append(append([]string{}, defaults.DisabledChecks...), rp.DisabledChecks...),
		IgnoreQuery:         firstNonEmpty(rp.IgnoreQuery, defaults.IgnoreQuery),
		Labels:              resolveLabels(&rp.Labels, &defaults.Labels),
	}

	pattern := firstNonEmpty(rp.BranchRegex, defaults.BranchRegex, DefaultBranchRegex)

	re, err := regexp.Compile(pattern)
	if err != nil {
		return nil, fmt.Errorf("invalid branch_regex: %w", err)
	}

	if !containsGroup(re, "iid") {
		return nil, fmt.Errorf("branch_regex %q has no 'iid' capture group", pattern)
	}

	policy.BranchRegex = re

	return &policy, nil
}

func resolveLabels(labels, defaults *LabelSet) LabelSet {
	def := defaultLabelSet()

	return LabelSet{
		Accepted:    firstNonEmpty(labels.Accepted, defaults.Accepted, def.Accepted),
		Test:        firstNonEmpty(labels.Test, defaults.Test, def.Test),
		MultipleMR:  firstNonEmpty(labels.MultipleMR, defaults.MultipleMR, def.MultipleMR),
		NoChangelog: firstNonEmpty(labels.NoChangelog, defaults.NoChangelog, def.NoChangelog),
		DontRush:    firstNonEmpty(labels.DontRush, defaults.DontRush, def.DontRush),
		SkipAll:     firstNonEmpty(labels.SkipAll, defaults.SkipAll, def.SkipAll),
	}
}

func containsGroup(re *regexp.Regexp, name string) bool {
	for _, groupName := range re.SubexpNames() {
		if groupName == name {
			return true
		}
	}

	return false
}

func firstNonEmpty(vals ...string) string {
	for _, v := range vals {
		if v != "" {
			return v
		}
	}

	return ""
}

// PolicyFor returns the policy of the named project.
// The second return value is false when the project is not configured.
func (p *Policies) PolicyFor(projectName string) (*ProjectPolicy, bool) {
	policy, exist := p.projects[projectName]
	return policy, exist
}

// ProjectNames returns the names of all configured projects.
func (p *Policies) ProjectNames() []string {
	result := make([]string, 0, len(p.projects))
	for name := range p.projects {
		result = append(result, name)
	}

	return result
}
