// Package commentguard decides if a bot comment may be posted on a merge
// request without repeating an earlier one.
//
// Comparison ignores the "@user: " mention prefix that user-directed
// messages carry, so the same notification addressed to a different
// assignee still counts as a duplicate.
package commentguard

import (
	"strings"
	"time"

	"github.com/benbjohnson/clock"

	"github.com/wardenbot/warden/internal/gitlabclt"
)

// Mode selects the duplicate-suppression behavior of a Guard.
type Mode int

const (
	// AlwaysAllow posts unconditionally.
	AlwaysAllow Mode = iota
	// SuppressIfDuplicate suppresses the comment when an equivalent one
	// already exists, no matter how old it is.
	SuppressIfDuplicate
	// SuppressIfDuplicateWithin suppresses the comment only when an
	// equivalent one was posted within the guard's window.
	SuppressIfDuplicateWithin
)

// Guard evaluates comment payloads against the existing comments of a
// merge request.
type Guard struct {
	mode   Mode
	window time.Duration
	clock  clock.Clock
}

// New returns a Guard for the given mode. The window is only consulted
// in SuppressIfDuplicateWithin mode.
func New(mode Mode, window time.Duration, clk clock.Clock) *Guard {
	if clk == nil {
		clk = clock.New()
	}

	return &Guard{
		mode:   mode,
		window: window,
		clock:  clk,
	}
}

// StripMention removes a leading "@user: " mention prefix from a comment
// body. Bodies without a mention prefix are returned unchanged.
func StripMention(body string) string {
	_, rest, found := strings.Cut(body, ": ")
	if !found {
		return body
	}

	return rest
}

// Allow reports whether body may be posted given the merge request's
// existing comments.
func (g *Guard) Allow(body string, existing []*gitlabclt.Comment) bool {
	if g.mode == AlwaysAllow {
		return true
	}

	payload := StripMention(body)

	for _, comment := range existing {
		if !strings.Contains(comment.Body, payload) {
			continue
		}

		if g.mode == SuppressIfDuplicate {
			return false
		}

		if g.clock.Now().Sub(comment.CreatedAt) <= g.window {
			return false
		}
	}

	return true
}
