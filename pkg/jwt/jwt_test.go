package jwt_test

import (
	"testing"

	"github.com/jhoicas/inventario-core/pkg/jwt"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGenerateParse_RoundTrip(t *testing.T) {
	tok, err := jwt.Generate("s3cr3t", "u-1", "t-1", jwt.RoleBodeguero, "inventario-core", 5)
	require.NoError(t, err)

	claims, err := jwt.Parse("s3cr3t", tok)
	require.NoError(t, err)
	assert.Equal(t, "u-1", claims.UserID)
	assert.Equal(t, "t-1", claims.TenantID)
	assert.Equal(t, jwt.RoleBodeguero, claims.Role)
}

func TestParse_FirmaIncorrecta(t *testing.T) {
	tok, err := jwt.Generate("s3cr3t", "u-1", "t-1", jwt.RoleAdmin, "x", 5)
	require.NoError(t, err)
	_, err = jwt.Parse("otro", tok)
	assert.Error(t, err)
}

func TestParse_SinTenant(t *testing.T) {
	tok, err := jwt.Generate("s3cr3t", "u-1", "", jwt.RoleAdmin, "x", 5)
	require.NoError(t, err)
	_, err = jwt.Parse("s3cr3t", tok)
	assert.Error(t, err)
}

func TestGenerate_SecretVacio(t *testing.T) {
	_, err := jwt.Generate("", "u", "t", jwt.RoleAdmin, "x", 5)
	assert.Error(t, err)
}
