package jwttoken

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	dErrors "visita/pkg/domain-errors"
)

func TestGenerateAndValidate(t *testing.T) {
	svc := NewJWTService("test-key", "visita", "visita-admin")
	actorID := uuid.New()

	token, err := svc.GenerateAccessToken(actorID, "parish_secretary", "parish-001", time.Minute)
	require.NoError(t, err)
	require.NotEmpty(t, token)

	claims, err := svc.ValidateToken(token)
	require.NoError(t, err)
	assert.Equal(t, actorID.String(), claims.ActorID)
	assert.Equal(t, "parish_secretary", claims.Role)
	assert.Equal(t, "parish-001", claims.ParishID)
}

func TestValidateExpiredToken(t *testing.T) {
	svc := NewJWTService("test-key", "visita", "visita-admin")

	token, err := svc.GenerateAccessToken(uuid.New(), "chancery_reviewer", "", -time.Minute)
	require.NoError(t, err)

	_, err = svc.ValidateToken(token)
	require.Error(t, err)
	assert.True(t, dErrors.HasCode(err, dErrors.CodeUnauthorized))
}

func TestValidateTokenSignedWithDifferentKey(t *testing.T) {
	issuer := NewJWTService("key-a", "visita", "visita-admin")
	verifier := NewJWTService("key-b", "visita", "visita-admin")

	token, err := issuer.GenerateAccessToken(uuid.New(), "parish_secretary", "parish-001", time.Minute)
	require.NoError(t, err)

	_, err = verifier.ValidateToken(token)
	require.Error(t, err)
	assert.True(t, dErrors.HasCode(err, dErrors.CodeUnauthorized))
}
