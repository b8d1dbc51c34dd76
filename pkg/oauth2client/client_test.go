package oauth2client

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseClientType(t *testing.T) {
	tests := []struct {
		in      string
		want    ClientType
		wantErr bool
	}{
		{"", ClientTypeEmpty, false},
		{"web", ClientTypeWeb, false},
		{"SPA", ClientTypeSpa, false},
		{"4", ClientTypeMachine, false},
		{"Device", ClientTypeDevice, false},
		{"robot", ClientTypeEmpty, true},
	}
	for _, tt := range tests {
		got, err := ParseClientType(tt.in)
		if tt.wantErr {
			assert.Error(t, err, tt.in)
			continue
		}
		require.NoError(t, err, tt.in)
		assert.Equal(t, tt.want, got, tt.in)
	}
}

func TestApplyClientTypeDefaults_KeepsExistingGrantTypes(t *testing.T) {
	client := &Client{ClientType: ClientTypeWeb, AllowedGrantTypes: []string{GrantTypeRefreshToken, GrantTypeCode}}
	require.NoError(t, ApplyClientTypeDefaults(client))
	assert.Equal(t, []string{GrantTypeRefreshToken, GrantTypeCode}, client.AllowedGrantTypes)

	client = &Client{ClientType: ClientType(42)}
	assert.Error(t, ApplyClientTypeDefaults(client))
}

func TestDisplayName(t *testing.T) {
	assert.Equal(t, "app (My App)", DisplayName("app", "My App"))
	assert.Equal(t, "app", DisplayName("app", ""))
}
