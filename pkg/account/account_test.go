package account

import (
	"context"
	"testing"
	"time"

	"github.com/korjavin/loversspace/pkg/models"
	"github.com/korjavin/loversspace/pkg/storage"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

func newTestService(t *testing.T) *Service {
	t.Helper()
	store, err := storage.NewInMemory()
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })

	s := New(store, time.Hour)
	s.hashCost = bcrypt.MinCost
	return s
}

func register(t *testing.T, s *Service, username string) Principal {
	t.Helper()
	u, err := s.Register(username, "", "secret123")
	require.NoError(t, err)
	p, err := s.PrincipalFor(u.ID)
	require.NoError(t, err)
	return p
}

func TestRegisterValidation(t *testing.T) {
	s := newTestService(t)

	_, err := s.Register("ab", "", "secret123")
	assert.ErrorIs(t, err, ErrInvalidUsername)

	_, err = s.Register("has space", "", "secret123")
	assert.ErrorIs(t, err, ErrInvalidUsername)

	_, err = s.Register("alice", "", "123")
	assert.ErrorIs(t, err, ErrWeakPassword)

	_, err = s.Register("alice", "Alice", "secret123")
	require.NoError(t, err)

	_, err = s.Register("ALICE", "", "secret123")
	assert.ErrorIs(t, err, ErrUsernameTaken)
}

func TestLoginAndAuthenticate(t *testing.T) {
	s := newTestService(t)
	_, err := s.Register("alice", "Alice", "secret123")
	require.NoError(t, err)

	_, _, _, err = s.Login("alice", "wrong-password")
	assert.ErrorIs(t, err, ErrInvalidCredentials)

	_, _, _, err = s.Login("nobody", "secret123")
	assert.ErrorIs(t, err, ErrInvalidCredentials)

	user, token, expires, err := s.Login("alice", "secret123")
	require.NoError(t, err)
	assert.Equal(t, "alice", user.Username)
	assert.True(t, expires.After(time.Now()))

	p, ok := s.Authenticate(token)
	require.True(t, ok)
	assert.Equal(t, user.ID, p.ID())
	assert.Nil(t, p.Partner)
	assert.Equal(t, []int64{user.ID}, p.Owners())

	require.NoError(t, s.Logout(token))
	_, ok = s.Authenticate(token)
	assert.False(t, ok)

	_, ok = s.Authenticate("")
	assert.False(t, ok)
}

func TestBindPartnerIsSymmetric(t *testing.T) {
	s := newTestService(t)
	alice := register(t, s, "alice")
	bob := register(t, s, "bob")

	code, _, err := s.CreateInvite(alice)
	require.NoError(t, err)

	_, err = s.BindPartner(alice, code)
	assert.ErrorIs(t, err, ErrSelfInvite)

	bound, err := s.BindPartner(bob, code)
	require.NoError(t, err)
	require.NotNil(t, bound.Partner)
	assert.Equal(t, alice.ID(), bound.Partner.ID)

	a, err := s.PrincipalFor(alice.ID())
	require.NoError(t, err)
	b, err := s.PrincipalFor(bob.ID())
	require.NoError(t, err)

	require.NotNil(t, a.Partner)
	require.NotNil(t, b.Partner)
	assert.Equal(t, bob.ID(), a.Partner.ID)
	assert.Equal(t, alice.ID(), b.Partner.ID)
	assert.Equal(t, a.CoupleKey(), b.CoupleKey())
	assert.True(t, a.Owns(bob.ID()))
	assert.ElementsMatch(t, []int64{alice.ID(), bob.ID()}, b.Owners())

	// invite codes are single use
	_, err = s.BindPartner(bob, code)
	assert.ErrorIs(t, err, ErrInvalidInvite)
}

func TestBindPartnerRejectsThirdUser(t *testing.T) {
	s := newTestService(t)
	alice := register(t, s, "alice")
	bob := register(t, s, "bob")
	carol := register(t, s, "carol")

	code, _, err := s.CreateInvite(alice)
	require.NoError(t, err)
	codeCarol, _, err := s.CreateInvite(carol)
	require.NoError(t, err)

	_, err = s.BindPartner(bob, code)
	require.NoError(t, err)

	// alice is paired now, her stale principal must not be able to bind again
	_, err = s.BindPartner(alice, codeCarol)
	assert.ErrorIs(t, err, ErrAlreadyPaired)

	c, err := s.PrincipalFor(carol.ID())
	require.NoError(t, err)
	assert.Nil(t, c.Partner)

	a, err := s.PrincipalFor(alice.ID())
	require.NoError(t, err)
	_, _, err = s.CreateInvite(a)
	assert.ErrorIs(t, err, ErrAlreadyPaired)
}

func TestBindPartnerUnknownCode(t *testing.T) {
	s := newTestService(t)
	bob := register(t, s, "bob")

	_, err := s.BindPartner(bob, "NOPE1234")
	assert.ErrorIs(t, err, ErrInvalidInvite)
}

func TestUnbindClearsBothSides(t *testing.T) {
	s := newTestService(t)
	alice := register(t, s, "alice")
	bob := register(t, s, "bob")

	_, err := s.Unbind(alice)
	assert.ErrorIs(t, err, ErrNotPaired)

	code, _, err := s.CreateInvite(alice)
	require.NoError(t, err)
	_, err = s.BindPartner(bob, code)
	require.NoError(t, err)

	unbound, err := s.Unbind(bob)
	require.NoError(t, err)
	assert.Nil(t, unbound.Partner)

	a, err := s.PrincipalFor(alice.ID())
	require.NoError(t, err)
	b, err := s.PrincipalFor(bob.ID())
	require.NoError(t, err)
	assert.Nil(t, a.Partner)
	assert.Nil(t, b.Partner)
	assert.False(t, a.User.HasPartner())
	assert.False(t, b.User.HasPartner())
}

func TestTelegramLinking(t *testing.T) {
	s := newTestService(t)
	alice := register(t, s, "alice")
	bob := register(t, s, "bob")

	_, err := s.LinkTelegramChat("BADCODE1", 42)
	assert.ErrorIs(t, err, ErrInvalidLinkCode)

	code, _, err := s.CreateTelegramLink(alice)
	require.NoError(t, err)

	user, err := s.LinkTelegramChat(code, 42)
	require.NoError(t, err)
	assert.Equal(t, int64(42), user.TelegramChatID)

	p, err := s.PrincipalForChat(42)
	require.NoError(t, err)
	assert.Equal(t, alice.ID(), p.ID())

	// the same chat moves to bob
	code, _, err = s.CreateTelegramLink(bob)
	require.NoError(t, err)
	_, err = s.LinkTelegramChat(code, 42)
	require.NoError(t, err)

	p, err = s.PrincipalForChat(42)
	require.NoError(t, err)
	assert.Equal(t, bob.ID(), p.ID())

	linked, err := s.LinkedUsers()
	require.NoError(t, err)
	require.Len(t, linked, 1)
	assert.Equal(t, bob.ID(), linked[0].ID)

	_, err = s.PrincipalForChat(7)
	assert.ErrorIs(t, err, ErrUserNotFound)
}

func TestPrincipalContext(t *testing.T) {
	p := Principal{User: models.User{ID: 3, Username: "alice"}}
	ctx := WithPrincipal(context.Background(), p)

	got, ok := PrincipalFrom(ctx)
	require.True(t, ok)
	assert.Equal(t, int64(3), got.ID())

	_, ok = PrincipalFrom(context.Background())
	assert.False(t, ok)
}

func TestCoupleKeyIsOrderIndependent(t *testing.T) {
	a := Principal{User: models.User{ID: 7}, Partner: &models.User{ID: 3}}
	b := Principal{User: models.User{ID: 3}, Partner: &models.User{ID: 7}}
	assert.Equal(t, "3-7", a.CoupleKey())
	assert.Equal(t, a.CoupleKey(), b.CoupleKey())
	assert.Equal(t, "3", Principal{User: models.User{ID: 3}}.CoupleKey())
}
