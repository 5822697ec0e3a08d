package repository

import (
	"strings"
	"testing"
)

func TestGetUserByEmailIsCaseInsensitive(t *testing.T) {
	query := strings.ToLower(getUserByEmailQuery)

	if !strings.Contains(query, "lower(email) = lower($1)") {
		t.Fatal("email lookup should be case-insensitive")
	}
}

func TestUserQueriesSelectRoleAndActiveFlag(t *testing.T) {
	for _, query := range []string{getUserByEmailQuery, getUserByIDQuery} {
		lowered := strings.ToLower(query)
		for _, column := range []string{"role", "is_active"} {
			if !strings.Contains(lowered, column) {
				t.Fatalf("user query missing %s column:\n%s", column, query)
			}
		}
	}
}
