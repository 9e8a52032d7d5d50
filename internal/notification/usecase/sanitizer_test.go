package usecase

import (
	"context"
	"errors"
	"testing"

	"fled-backend/internal/notification/domain"
	schooldomain "fled-backend/internal/school/domain"
	schoolrepo "fled-backend/internal/school/repository"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
)

func newMemorySanitizer(store *schoolrepo.MemoryStore) *TokenSanitizer {
	return NewTokenSanitizer(
		schoolrepo.NewMemoryDeviceRepository(store),
		schoolrepo.NewMemoryUserRepository(store),
		schoolrepo.NewMemoryParentRepository(store),
		zerolog.Nop(),
	)
}

func TestUnregisteredTokenIsPurgedEverywhere(t *testing.T) {
	store := schoolrepo.NewMemoryStore()
	store.PutDevice(schooldomain.Device{ID: "d1", Path: "users/u1/devices/d1", Token: "stale"})
	store.PutDevice(schooldomain.Device{ID: "d2", Path: "users/u1/devices/d2", Token: "fresh"})
	store.PutUser(schooldomain.User{ID: "u1", FCMToken: "stale"})
	store.PutParent(schooldomain.Parent{ID: "p1", FCMToken: "stale"})

	sender := &fakeSender{codes: map[string]domain.ErrorCode{"stale": domain.ErrorCodeUnregistered}}
	d := NewDispatcher(sender, newMemorySanitizer(store), 0, zerolog.Nop())

	result := d.Dispatch(context.Background(), domain.Payload{}, []string{"stale", "fresh"})
	assert.Equal(t, 1, result.Sent)
	assert.Equal(t, []string{"stale"}, result.InvalidTokens)

	devices := store.Devices()
	if assert.Len(t, devices, 1) {
		assert.Equal(t, "fresh", devices[0].Token)
	}
	u, _ := store.User("u1")
	assert.Empty(t, u.FCMToken)
	p, _ := store.Parent("p1")
	assert.Empty(t, p.FCMToken)
}

type failingDevices struct{}

func (failingDevices) DeleteByToken(context.Context, string) (int, error) {
	return 0, errors.New("collection group index missing")
}

type panickingParents struct {
	schoolrepo.ParentRepository
}

func (panickingParents) ClearLegacyToken(context.Context, string) (int, error) {
	panic("nil client")
}

func TestPurgeContinuesAfterFailedStep(t *testing.T) {
	store := schoolrepo.NewMemoryStore()
	store.PutUser(schooldomain.User{ID: "u1", FCMToken: "t1"})
	store.PutUser(schooldomain.User{ID: "u2", FCMToken: "t2"})

	s := NewTokenSanitizer(failingDevices{}, schoolrepo.NewMemoryUserRepository(store), panickingParents{}, zerolog.Nop())

	assert.NotPanics(t, func() {
		s.Purge(context.Background(), []string{"t1", "t2"})
	})

	u1, _ := store.User("u1")
	u2, _ := store.User("u2")
	assert.Empty(t, u1.FCMToken)
	assert.Empty(t, u2.FCMToken)
}
