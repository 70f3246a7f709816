package enforcer

import "fmt"

// AmbiguousParentError reports that more than one live merge request
// exists for a prospective parent branch. The enforcer declines to guess
// and skips propagation.
type AmbiguousParentError struct {
	Project string
	Branch  string
	Count   int
}

func (e *AmbiguousParentError) Error() string {
	return fmt.Sprintf(
		"could not determine parent: %d open merge requests exist for branch %q in project %q",
		e.Count, e.Branch, e.Project,
	)
}

// ConfigurationMissingError reports an event for a project without a
// registered policy. The whole event is rejected, nothing is processed.
type ConfigurationMissingError struct {
	Project string
}

func (e *ConfigurationMissingError) Error() string {
	return fmt.Sprintf("no policy is configured for project %q", e.Project)
}
