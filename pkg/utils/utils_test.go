package utils

import (
	"fmt"
	"testing"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
)

func TestContainsPattern(t *testing.T) {
	assert.Equal(t, "%app%", ContainsPattern("app"))
	assert.Equal(t, `%50\%\_off%`, ContainsPattern("50%_off"))
	assert.Equal(t, "%%", ContainsPattern(""))
}

func TestContainsFold(t *testing.T) {
	assert.True(t, ContainsFold("MyClient", "client"))
	assert.True(t, ContainsFold("anything", ""))
	assert.False(t, ContainsFold("MyClient", "server"))
}

func TestIsUniqueViolation(t *testing.T) {
	err := fmt.Errorf("insert: %w", &pgconn.PgError{Code: "23505", ConstraintName: "clients_client_id_key"})

	assert.True(t, IsUniqueViolation(err, ""))
	assert.True(t, IsUniqueViolation(err, "clients_client_id_key"))
	assert.False(t, IsUniqueViolation(err, "api_scopes_name_key"))
	assert.False(t, IsUniqueViolation(fmt.Errorf("boom"), ""))
	assert.False(t, IsUniqueViolation(&pgconn.PgError{Code: "23503"}, ""))
}

func TestNullString(t *testing.T) {
	assert.Nil(t, NullString(""))
	assert.Equal(t, "x", StringValue(NullString("x")))
	assert.Equal(t, "", StringValue(nil))
}
