package credentials

import (
	"regexp"
	"strings"

	"github.com/Vansh-Raja/mremote-sync/internal/tree"
)

// Rule replaces an account name, its password, or both, wherever the
// original name appears in a connection's username.
type Rule struct {
	OriginalUsername string `json:"originalUsername" yaml:"originalUsername"`
	NewUsername      string `json:"newUsername,omitempty" yaml:"newUsername,omitempty"`
	NewPassword      string `json:"newPassword,omitempty" yaml:"newPassword,omitempty"`
	Enabled          bool   `json:"enabled" yaml:"enabled"`
}

// active reports whether r can change anything.
func (r Rule) active() bool {
	return r.Enabled && r.OriginalUsername != "" && (r.NewUsername != "" || r.NewPassword != "")
}

// Stats reports what Apply did.
type Stats struct {
	Visited          int
	UsernamesChanged int
	PasswordsChanged int
}

// Substitution is a compiled rule set.
type Substitution struct {
	usernames map[string]string
	passwords map[string]string
	// keys holds rule originals in rule order for the substring strategy.
	keys    []string
	pattern map[string]*regexp.Regexp
}

// NewSubstitution compiles rules. Disabled or empty rules are ignored; for
// duplicate originals the first rule wins.
func NewSubstitution(rules []Rule) *Substitution {
	s := &Substitution{
		usernames: make(map[string]string),
		passwords: make(map[string]string),
		pattern:   make(map[string]*regexp.Regexp),
	}
	for _, r := range rules {
		if !r.active() {
			continue
		}
		key := r.OriginalUsername
		if _, dup := s.pattern[key]; dup {
			continue
		}
		if r.NewUsername != "" {
			s.usernames[key] = r.NewUsername
		}
		if r.NewPassword != "" {
			s.passwords[key] = r.NewPassword
		}
		s.keys = append(s.keys, key)
		s.pattern[key] = boundaryPattern(key)
	}
	return s
}

// boundaryPattern matches key as a whole token. \b only applies on the
// sides where key starts or ends with a word character.
func boundaryPattern(key string) *regexp.Regexp {
	expr := regexp.QuoteMeta(key)
	if isWordByte(key[0]) {
		expr = `\b` + expr
	}
	if isWordByte(key[len(key)-1]) {
		expr += `\b`
	}
	return regexp.MustCompile(expr)
}

func isWordByte(b byte) bool {
	return b == '_' || ('0' <= b && b <= '9') || ('a' <= b && b <= 'z') || ('A' <= b && b <= 'Z')
}

// Empty reports whether no rule survived compilation.
func (s *Substitution) Empty() bool {
	return len(s.keys) == 0
}

// Match returns the rule original that applies to value, trying exact
// equality, then extracted names, then whole-token containment.
func (s *Substitution) Match(value string) (string, bool) {
	if value == "" {
		return "", false
	}
	for _, strategy := range []func(string) (string, bool){s.matchExact, s.matchExtracted, s.matchContained} {
		if key, ok := strategy(value); ok {
			return key, true
		}
	}
	return "", false
}

func (s *Substitution) matchExact(value string) (string, bool) {
	_, ok := s.pattern[value]
	return value, ok
}

func (s *Substitution) matchExtracted(value string) (string, bool) {
	for _, candidate := range ExtractUsernames(value) {
		if _, ok := s.pattern[candidate]; ok {
			return candidate, true
		}
	}
	return "", false
}

// matchContained only accepts keys that occur as whole tokens, so that a
// match always has something to rewrite.
func (s *Substitution) matchContained(value string) (string, bool) {
	for _, key := range s.keys {
		if strings.Contains(value, key) && s.pattern[key].MatchString(value) {
			return key, true
		}
	}
	return "", false
}

// rewrite returns the new username and password for one credential pair.
func (s *Substitution) rewrite(user, password string) (string, string, bool) {
	key, ok := s.Match(user)
	if !ok {
		return user, password, false
	}
	// Both lookups key off the original value.
	if p, ok := s.passwords[key]; ok {
		password = p
	}
	if u, ok := s.usernames[key]; ok {
		if user == key {
			user = u
		} else {
			user = s.pattern[key].ReplaceAllLiteralString(user, u)
		}
	}
	return user, password, true
}

// Apply returns a copy of nodes with rules applied to every SSH and RDP
// connection. nodes is left untouched.
func Apply(nodes []*tree.Node, rules []Rule) []*tree.Node {
	out, _ := ApplyWithStats(nodes, rules)
	return out
}

// ApplyWithStats is Apply with a change report.
func ApplyWithStats(nodes []*tree.Node, rules []Rule) ([]*tree.Node, Stats) {
	return NewSubstitution(rules).Apply(nodes)
}

// Apply runs the compiled rules over a deep copy of nodes.
func (s *Substitution) Apply(nodes []*tree.Node) ([]*tree.Node, Stats) {
	out := tree.CloneAll(nodes)
	var stats Stats
	if s.Empty() {
		return out, stats
	}
	tree.Walk(out, func(n, _ *tree.Node) bool {
		if n.IsFolder() {
			return true
		}
		stats.Visited++
		switch {
		case n.Data.SSH != nil:
			s.applyTo(&n.Data.SSH.User, &n.Data.SSH.Password, &stats)
		case n.Data.RDP != nil:
			s.applyTo(&n.Data.RDP.Username, &n.Data.RDP.Password, &stats)
		}
		return true
	})
	return out, stats
}

func (s *Substitution) applyTo(user, password *string, stats *Stats) {
	u, p, ok := s.rewrite(*user, *password)
	if !ok {
		return
	}
	if u != *user {
		stats.UsernamesChanged++
	}
	if p != *password {
		stats.PasswordsChanged++
	}
	*user, *password = u, p
}
