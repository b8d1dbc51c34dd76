package common

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGetSubjectFromClaims(t *testing.T) {
	sub, err := GetSubjectFromClaims(map[string]interface{}{"sub": "admin"})
	require.NoError(t, err)
	assert.Equal(t, "admin", sub)

	_, err = GetSubjectFromClaims(map[string]interface{}{})
	assert.Error(t, err)

	_, err = GetSubjectFromClaims(map[string]interface{}{"sub": 12})
	assert.Error(t, err)
}

func TestGetRolesFromClaims(t *testing.T) {
	tests := []struct {
		name   string
		claims map[string]interface{}
		want   []string
	}{
		{"missing", map[string]interface{}{}, nil},
		{"single", map[string]interface{}{"role": "admin"}, []string{"admin"}},
		{"space separated", map[string]interface{}{"role": "admin auditor"}, []string{"admin", "auditor"}},
		{"string slice", map[string]interface{}{"role": []string{"a", "b"}}, []string{"a", "b"}},
		{"decoded json array", map[string]interface{}{"role": []interface{}{"a", 3, "", "b"}}, []string{"a", "b"}},
		{"wrong type", map[string]interface{}{"role": 1}, nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, GetRolesFromClaims(tt.claims))
		})
	}
}

func TestHasRole(t *testing.T) {
	claims := map[string]interface{}{"role": []interface{}{"reader", "IdentityAdminAdministrator"}}
	assert.True(t, HasRole(claims, "IdentityAdminAdministrator"))
	assert.False(t, HasRole(claims, "writer"))
}
