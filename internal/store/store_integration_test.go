//go:build integration
// +build integration

package store

import (
	"context"
	"testing"

	"github.com/rubenv/pgtest"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

// openPostgresForTest starts a throwaway postgres and wraps it in a Store.
func openPostgresForTest(t *testing.T) *Store {
	t.Helper()
	pg, err := pgtest.Start()
	require.NoError(t, err)
	t.Cleanup(func() { require.NoError(t, pg.Stop()) })

	s, err := New(context.Background(), pg.DB, "postgres", WithBcryptCost(bcrypt.MinCost))
	require.NoError(t, err)
	return s
}

func TestPostgres_UsersAndContacts_Integration(t *testing.T) {
	ctx := context.Background()
	s := openPostgresForTest(t)

	_, err := s.CreateUser(ctx, "alice", "s3cret")
	require.NoError(t, err)
	_, err = s.CreateUser(ctx, "alice", "again")
	assert.ErrorIs(t, err, ErrUserExists)

	u, err := s.Authenticate(ctx, "alice", "s3cret")
	require.NoError(t, err)
	assert.Equal(t, "alice", u.Username)
	_, err = s.Authenticate(ctx, "alice", "wrong")
	assert.ErrorIs(t, err, ErrInvalidCredentials)

	c, err := s.AddContact(ctx, "Maria Santos", "0917 111 2222", "maria@example.com")
	require.NoError(t, err)
	list, err := s.ListContacts(ctx, "SANTOS")
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, c.ID, list[0].ID)

	require.NoError(t, s.DeleteContact(ctx, c.ID))
	_, err = s.GetContact(ctx, c.ID)
	assert.ErrorIs(t, err, ErrContactNotFound)
}
