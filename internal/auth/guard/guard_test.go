package guard

import (
	"testing"

	"fled-backend/internal/auth/domain"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSessionTransitions(t *testing.T) {
	teacher := &domain.Identity{UID: "u1", Role: "teacher"}

	tests := []struct {
		name       string
		events     []Event
		wantState  State
		wantEffect Effect
		wantErr    bool
	}{
		{
			name:       "missing token is rejected",
			events:     []Event{{Kind: EventTokenMissing}},
			wantState:  StateDenied,
			wantEffect: EffectReject,
		},
		{
			name:       "presented token waits for verification",
			events:     []Event{{Kind: EventTokenPresented}},
			wantState:  StateVerifying,
			wantEffect: EffectNone,
		},
		{
			name:       "verified token is allowed",
			events:     []Event{{Kind: EventTokenPresented}, {Kind: EventVerified, Identity: teacher}},
			wantState:  StateAuthorized,
			wantEffect: EffectAllow,
		},
		{
			name:       "failed verification is rejected",
			events:     []Event{{Kind: EventTokenPresented}, {Kind: EventVerificationFailed}},
			wantState:  StateDenied,
			wantEffect: EffectReject,
		},
		{
			name:       "wrong role is rejected",
			events:     []Event{{Kind: EventTokenPresented}, {Kind: EventRoleRejected}},
			wantState:  StateDenied,
			wantEffect: EffectReject,
		},
		{
			name:       "sign out after authorization",
			events:     []Event{{Kind: EventTokenPresented}, {Kind: EventVerified, Identity: teacher}, {Kind: EventTokenMissing}},
			wantState:  StateUnauthenticated,
			wantEffect: EffectReject,
		},
		{
			name:       "retry after denial",
			events:     []Event{{Kind: EventTokenMissing}, {Kind: EventTokenPresented}},
			wantState:  StateVerifying,
			wantEffect: EffectNone,
		},
		{
			name:      "verified before token is invalid",
			events:    []Event{{Kind: EventVerified, Identity: teacher}},
			wantState: StateUnauthenticated,
			wantErr:   true,
		},
		{
			name:      "verified without identity is invalid",
			events:    []Event{{Kind: EventTokenPresented}, {Kind: EventVerified}},
			wantState: StateVerifying,
			wantErr:   true,
		},
		{
			name:      "denied ignores role rejection",
			events:    []Event{{Kind: EventTokenMissing}, {Kind: EventRoleRejected}},
			wantState: StateDenied,
			wantErr:   true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := NewSession()
			var (
				effect Effect
				err    error
			)
			for _, ev := range tt.events {
				effect, err = s.Fire(ev)
			}
			assert.Equal(t, tt.wantState, s.State())
			if tt.wantErr {
				assert.ErrorIs(t, err, ErrInvalidTransition)
				assert.Equal(t, EffectNone, effect)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.wantEffect, effect)
		})
	}
}

func TestSessionIdentityOnlyWhileAuthorized(t *testing.T) {
	s := NewSession()
	id := &domain.Identity{UID: "u1"}

	_, _ = s.Fire(Event{Kind: EventTokenPresented})
	assert.Nil(t, s.Identity())

	_, _ = s.Fire(Event{Kind: EventVerified, Identity: id})
	assert.Same(t, id, s.Identity())

	_, _ = s.Fire(Event{Kind: EventTokenPresented})
	assert.Nil(t, s.Identity())

	_, _ = s.Fire(Event{Kind: EventVerificationFailed})
	assert.Nil(t, s.Identity())
}
