// Package decide maps an interpretation status to the next loop action.
package decide

import "github.com/ppiankov/kgrepair/internal/model"

// Policy chooses the action for a status.
type Policy func(model.Status) model.Action

// Decide is the default policy. It is total: statuses outside the known
// set stop the loop.
func Decide(status model.Status) model.Action {
	switch status {
	case model.StatusOK:
		return model.ActionStop
	case model.StatusWarning:
		return model.ActionAcceptWithNotes
	case model.StatusViolation:
		return model.ActionIterate
	default:
		return model.ActionStop
	}
}
