package decide

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/ppiankov/kgrepair/internal/model"
)

func TestDecide(t *testing.T) {
	tests := []struct {
		status model.Status
		want   model.Action
	}{
		{model.StatusOK, model.ActionStop},
		{model.StatusWarning, model.ActionAcceptWithNotes},
		{model.StatusViolation, model.ActionIterate},
		{model.Status(0), model.ActionStop},
		{model.Status(99), model.ActionStop},
	}
	for _, tt := range tests {
		t.Run(tt.status.String(), func(t *testing.T) {
			assert.Equal(t, tt.want, Decide(tt.status))
		})
	}
}

func TestDecide_AlwaysReturnsKnownAction(t *testing.T) {
	for s := 0; s < 256; s++ {
		a := Decide(model.Status(s))
		assert.Contains(t, []model.Action{model.ActionStop, model.ActionAcceptWithNotes, model.ActionIterate}, a)
	}
}

func TestDecide_OnlyIterateContinues(t *testing.T) {
	assert.False(t, Decide(model.StatusViolation).Terminal())
	assert.True(t, Decide(model.StatusOK).Terminal())
	assert.True(t, Decide(model.StatusWarning).Terminal())
}
