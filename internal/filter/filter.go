// Package filter decides which observed transitions are worth storing
// as change events. It is pure: all state it consults is handed in.
package filter

import (
	"github.com/rootline/clusterwatch/internal/kinds"
	"github.com/rootline/clusterwatch/internal/types"
)

// Significant reports whether a transition must produce a change
// event. Created and deleted transitions always do. Updates report
// when the kind's reduced summary moved, or unconditionally for
// always-report kinds. With no cached summary to diff against (first
// observation in this process lifetime) an update stays silent unless
// the kind always reports; the eventual resync re-delivers current
// state as created transitions, so nothing is lost for good.
//
// Excluded objects never reach this predicate; sessions drop them
// before caching.
func Significant(h kinds.Handler, transition types.Transition, next, prev types.Summary) bool {
	switch transition {
	case types.TransitionCreated, types.TransitionDeleted:
		return true
	}

	if h.AlwaysSignificant() {
		return true
	}
	if prev == nil || next == nil {
		return false
	}
	return next.Changed(prev)
}
