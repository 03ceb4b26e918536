package models

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCreateUser(t *testing.T) {
	u, err := CreateUser("Marie Dupont", "marie@example.fr", "secret123", ROLE_COMPANY)
	require.NoError(t, err)

	assert.Equal(t, ROLE_COMPANY, u.Role)
	assert.True(t, u.IsCompany())
	assert.Equal(t, STATUS_INACTIVE, u.Status, "accounts start inactive until activation")
	assert.NotEqual(t, "secret123", u.Password)
	assert.True(t, u.CheckPassword("secret123"))
	assert.False(t, u.CheckPassword("wrong"))
}

func TestCreateUserDefaultsToCandidate(t *testing.T) {
	u, err := CreateUser("Jean Martin", "jean@example.fr", "secret123", "")
	require.NoError(t, err)
	assert.Equal(t, ROLE_CANDIDATE, u.Role)
	assert.False(t, u.IsCompany())
}

func TestCreateUserValidation(t *testing.T) {
	_, err := CreateUser("Jo", "jo@example.fr", "secret123", ROLE_CANDIDATE)
	assert.Error(t, err, "name too short")

	_, err = CreateUser("Jean Martin", "not-an-email", "secret123", ROLE_CANDIDATE)
	assert.Error(t, err)

	_, err = CreateUser("Jean Martin", "jean@example.fr", "secret123", "superuser")
	assert.Error(t, err, "unknown role")
}

func TestGenerateActivationToken(t *testing.T) {
	u := &User{}
	require.NoError(t, u.GenerateActivationToken())

	assert.Len(t, u.ActivationToken, 32)
	require.NotNil(t, u.ActivationSentAt)

	first := u.ActivationToken
	require.NoError(t, u.GenerateActivationToken())
	assert.NotEqual(t, first, u.ActivationToken)
}

func TestGenerateAPIKey(t *testing.T) {
	u := &User{}
	raw, err := u.GenerateAPIKey()
	require.NoError(t, err)

	assert.True(t, strings.HasPrefix(raw, "novrh_"))
	assert.Equal(t, HashAPIKey(raw), u.APIKeyHash)

	// Rotation invalidates the previous key.
	second, err := u.GenerateAPIKey()
	require.NoError(t, err)
	assert.NotEqual(t, raw, second)
	assert.NotEqual(t, HashAPIKey(raw), u.APIKeyHash)
}

func TestSetPassword(t *testing.T) {
	u := &User{}
	require.NoError(t, u.SetPassword("nouveau-mdp"))
	assert.True(t, u.CheckPassword("nouveau-mdp"))
}
