package memory

import (
	"context"
	"testing"

	"github.com/cyp0633/caldora/server/auth"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

func TestStore_Authenticate(t *testing.T) {
	s := New()
	require.NoError(t, s.AddUser("alice", "wonderland", "", "Alice"))
	require.NoError(t, s.AddUser("bob", "builder", "robert", ""))

	ctx := context.Background()

	p, err := s.Authenticate(ctx, auth.Credentials{Username: "alice", Password: "wonderland"})
	require.NoError(t, err)
	assert.Equal(t, &auth.Principal{PrincipalID: "alice", PrincipalName: "Alice"}, p)

	p, err = s.Authenticate(ctx, auth.Credentials{Username: "bob", Password: "builder", PrincipalID: "robert"})
	require.NoError(t, err)
	assert.Equal(t, &auth.Principal{PrincipalID: "robert", PrincipalName: "bob"}, p)

	tests := []struct {
		name  string
		creds auth.Credentials
	}{
		{"unknown user", auth.Credentials{Username: "carol", Password: "x"}},
		{"wrong password", auth.Credentials{Username: "alice", Password: "nope"}},
		{"foreign principal", auth.Credentials{Username: "alice", Password: "wonderland", PrincipalID: "robert"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p, err := s.Authenticate(ctx, tt.creds)
			assert.ErrorIs(t, err, auth.ErrInvalidCredentials)
			assert.Nil(t, p)
		})
	}
}

func TestStore_AddUserErrors(t *testing.T) {
	s := New()
	require.NoError(t, s.AddUser("alice", "pw", "", ""))

	assert.Error(t, s.AddUser("alice", "other", "", ""))
	assert.Error(t, s.AddUser("", "pw", "", ""))
	assert.Error(t, s.AddUserHash("bob", []byte("not-a-hash"), "", ""))
}

func TestStore_ParseUsers(t *testing.T) {
	hash, err := bcrypt.GenerateFromPassword([]byte("pw"), bcrypt.MinCost)
	require.NoError(t, err)

	s := New()
	require.NoError(t, s.ParseUsers("alice:"+string(hash)+":Alice Liddell, bob:"+string(hash)))

	p, err := s.Authenticate(context.Background(), auth.Credentials{Username: "alice", Password: "pw"})
	require.NoError(t, err)
	assert.Equal(t, "Alice Liddell", p.PrincipalName)

	p, err = s.Authenticate(context.Background(), auth.Credentials{Username: "bob", Password: "pw"})
	require.NoError(t, err)
	assert.Equal(t, "bob", p.PrincipalName)

	assert.Error(t, New().ParseUsers("broken"))
}
