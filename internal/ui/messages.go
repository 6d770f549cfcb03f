// Package ui provides the Bubble Tea TUI for popcorn.
package ui

import "github.com/abelbrown/popcorn/internal/session"

// searchDoneMsg carries a finished search back to the update loop.
type searchDoneMsg struct {
	done session.SearchDone
}

// detailDoneMsg carries a finished detail fetch back to the update loop.
type detailDoneMsg struct {
	done session.DetailDone
}
