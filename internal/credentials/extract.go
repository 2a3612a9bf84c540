package credentials

import (
	"regexp"
	"strings"
	"unicode"
	"unicode/utf8"
)

// stopwords are protocol, service and OS names that show up inside
// compound credential strings but never name a person or account.
var stopwords = []string{
	"ssh", "rdp", "tcp", "http", "https", "ftp", "sftp", "ldap", "kerberos", "ntlm",
	"ssl", "tls", "tacacs", "radius", "app", "vmware", "docker", "kubernetes", "jenkins",
	"mysql", "postgres", "nginx", "apache", "default", "host", "protocol", "system",
	"service", "daemon", "nobody", "guest", "windows", "linux", "unix", "macos",
	"ubuntu", "centos", "redhat",
}

var stopset = func() map[string]struct{} {
	m := make(map[string]struct{}, len(stopwords))
	for _, w := range stopwords {
		m[w] = struct{}{}
	}
	return m
}()

var (
	keywordPrefix   = regexp.MustCompile(`(?i)^(` + strings.Join(stopwords, "|") + `)_`)
	atDomainPattern = regexp.MustCompile(`([A-Za-z0-9._-]+)@[A-Za-z0-9.-]+`)
	compoundPattern = regexp.MustCompile(`([A-Za-z0-9._-]+)@[^:\s]+:[^:\s]+:([A-Za-z0-9._-]+)`)
	tokenPattern    = regexp.MustCompile(`[a-zA-Z0-9._-]+`)
)

// shortInput is the length below which generic tokenization always runs.
const shortInput = 20

// IsValidUsername reports whether s looks like an account name.
func IsValidUsername(s string) bool {
	n := utf8.RuneCountInString(s)
	if n < 2 || n > 25 {
		return false
	}
	hasLetter, allDigits := false, true
	for _, r := range s {
		if unicode.IsLetter(r) {
			hasLetter = true
		}
		if !unicode.IsDigit(r) {
			allDigits = false
		}
	}
	if !hasLetter || allDigits {
		return false
	}
	if _, stop := stopset[strings.ToLower(s)]; stop {
		return false
	}
	return !keywordPrefix.MatchString(s)
}

// ExtractUsernames pulls candidate account names out of a raw username
// attribute. Strategies run in priority order: user@domain, compound
// user@a:b:user, then plain tokens when the first two found nothing or the
// input is short. Results are deduplicated in first-seen order.
func ExtractUsernames(raw string) []string {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil
	}

	var out []string
	seen := make(map[string]struct{})
	add := func(candidates []string) {
		for _, c := range candidates {
			if !IsValidUsername(c) {
				continue
			}
			if _, dup := seen[c]; dup {
				continue
			}
			seen[c] = struct{}{}
			out = append(out, c)
		}
	}

	add(extractAtDomain(raw))
	add(extractCompound(raw))
	if len(out) == 0 || len(raw) < shortInput {
		add(extractTokens(raw))
	}
	return out
}

func extractAtDomain(raw string) []string {
	var out []string
	for _, m := range atDomainPattern.FindAllStringSubmatch(raw, -1) {
		out = append(out, m[1])
	}
	return out
}

func extractCompound(raw string) []string {
	var out []string
	for _, m := range compoundPattern.FindAllStringSubmatch(raw, -1) {
		out = append(out, m[1], m[2])
	}
	return out
}

func extractTokens(raw string) []string {
	return tokenPattern.FindAllString(raw, -1)
}
