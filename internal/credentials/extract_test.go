package credentials

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestIsValidUsername(t *testing.T) {
	t.Parallel()

	tests := []struct {
		in   string
		want bool
	}{
		{"alice", true},
		{"a", false},
		{"ab", true},
		{"12345", false},
		{"svc-01", true},
		{"SSH", false},
		{"default", false},
		{"Ubuntu", false},
		{"ssh_user", false},
		{"mysql_backup", false},
		{"sshuser", true},
		{"abcdefghijklmnopqrstuvwxyz", false},
		{"abcdefghijklmnopqrstuvwxy", true},
		{"1.2.3", false},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, IsValidUsername(tt.in), "input %q", tt.in)
	}
}

func TestExtractUsernames(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		in   string
		want []string
	}{
		{"empty", "", nil},
		{"plain", "alice", []string{"alice"}},
		{"compound", "alice@default@10.0.0.5:ssh:alice", []string{"alice"}},
		{"compound two users", "alice@gateway.corp:ssh:carol", []string{"alice", "carol"}},
		{"short at-domain also tokenizes", "bob@example.com", []string{"bob", "example.com"}},
		{"long at-domain skips tokens", "operator@datacenter-east.example.com", []string{"operator"}},
		{"domain backslash", `CORP\admin`, []string{"CORP", "admin"}},
		{"only keywords", "ssh default", nil},
		{"long text without structure", "root deploy shared-account for the build farm", []string{"root", "deploy", "shared-account", "for", "the", "build", "farm"}},
	}
	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.want, ExtractUsernames(tt.in))
		})
	}
}

func TestExtractStrategiesAreIndependent(t *testing.T) {
	assert.Equal(t, []string{"alice"}, extractAtDomain("alice@default@10.0.0.5:ssh:alice"))
	assert.Equal(t, []string{"alice", "alice"}, extractCompound("alice@default@10.0.0.5:ssh:alice"))
	assert.Nil(t, extractCompound("alice@example.com"))
	assert.Equal(t, []string{"a", "b.c", "d-e"}, extractTokens("a b.c/d-e"))
}
