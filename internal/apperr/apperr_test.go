package apperr

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestClassify(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want Kind
	}{
		{"not found", NotFound("Channel not found"), KindNotFound},
		{"forbidden", Forbidden("You are not a member of this channel"), KindForbidden},
		{"bad request", BadRequest("Cannot reply to a reply"), KindBadRequest},
		{"conflict", Conflict("Message is already pinned"), KindConflict},
		{"tenant required", TenantRequired("No tenant context on request"), KindTenantRequired},
		{"wrapped", fmt.Errorf("list pins: %w", NotFound("Channel not found")), KindNotFound},
		{"plain error", errors.New("connection refused"), KindUnknown},
		{"nil", nil, KindUnknown},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Classify(tt.err))
		})
	}
}

func TestPredicatesUnwrap(t *testing.T) {
	err := fmt.Errorf("pin message: %w", Conflict("Message is already pinned"))
	assert.True(t, IsConflict(err))
	assert.False(t, IsNotFound(err))
	assert.False(t, IsForbidden(err))
}

// Denied-private and truly-absent must be indistinguishable through the
// error channel: same kind, and the message carries no state-dependent
// detail an enumerating caller could use.
func TestNotFoundCarriesOnlyMessage(t *testing.T) {
	denied := NotFound("Channel not found")
	absent := NotFound("Channel not found")
	assert.Equal(t, denied.Error(), absent.Error())
	assert.Equal(t, Classify(denied), Classify(absent))
}
