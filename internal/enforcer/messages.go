package enforcer

import (
	"fmt"
	"strings"

	"github.com/wardenbot/warden/internal/gitlabclt"
)

// Comment templates. User-directed comments start with "@user: " so the
// duplicate guard can compare them mention-independently.

func msgNamingViolation(mr *gitlabclt.MergeRequest, pattern string) string {
	return fmt.Sprintf(
		"@%s: the source branch name `%s` does not match the naming convention of this project (`%s`). "+
			"Future automation will not pick this merge request up.",
		mr.MentionUsername(), mr.SourceBranch, pattern,
	)
}

func msgMissingChangelog(mr *gitlabclt.MergeRequest, filetype string) string {
	return fmt.Sprintf(
		"@%s: this merge request does not modify any `CHANGELOG%s` file. "+
			"Please add a changelog entry or label the merge request accordingly. "+
			"It was marked as draft until then.",
		mr.MentionUsername(), filetype,
	)
}

func msgWrongChangelogType(mr *gitlabclt.MergeRequest, filetype string) string {
	return fmt.Sprintf(
		"@%s: the changelog file this merge request touches does not have the `%s` extension, "+
			"the changelog generation will not pick it up. "+
			"Please rename the file. The merge request was marked as draft until then.",
		mr.MentionUsername(), filetype,
	)
}

func msgBadTitle(mr *gitlabclt.MergeRequest) string {
	return fmt.Sprintf(
		"@%s: the title of this merge request only repeats the ticket number. "+
			"Please give it a short description of the change.",
		mr.MentionUsername(),
	)
}

func msgSuperiorMerged(mentionUsername, mergedBranch, siblingBranch string) string {
	return fmt.Sprintf(
		"@%s: you merged `%s`, but its counterpart branch `%s` is still open. "+
			"Please remember to merge it as well, otherwise the versions diverge.",
		mentionUsername, mergedBranch, siblingBranch,
	)
}

func msgAutoCreated(mentionUsername string, parent *gitlabclt.MergeRequest) string {
	return fmt.Sprintf(
		"@%s: this merge request was created automatically, based on merge request !%d. "+
			"Review the changes before merging, conflicts may have been resolved incorrectly.",
		mentionUsername, parent.IID,
	)
}

func msgIssueMetadataMissing(project string, issueIID int, missing []string) string {
	return fmt.Sprintf(
		"issue #%d of project %s is missing: %s",
		issueIID, project, strings.Join(missing, ", "),
	)
}

// attributionFooter is appended to the description of propagated merge
// requests.
func attributionFooter(parent *gitlabclt.MergeRequest) string {
	return fmt.Sprintf("\n\n---\n\nMerge request based on merge request !%d", parent.IID)
}
