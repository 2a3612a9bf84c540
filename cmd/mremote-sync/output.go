package main

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/Vansh-Raja/mremote-sync/internal/credentials"
)

const (
	formatText = "text"
	formatJSON = "json"
	formatYAML = "yaml"
)

func validateFormat(format string) error {
	switch format {
	case formatText, formatJSON, formatYAML:
		return nil
	default:
		return fmt.Errorf("unknown output format %q (want text, json or yaml)", format)
	}
}

// writeOutput encodes v as json or yaml, or writes text for the text format.
func writeOutput(w io.Writer, format string, v any, text string) error {
	switch format {
	case formatJSON:
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(v)
	case formatYAML:
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(v); err != nil {
			return err
		}
		return enc.Close()
	default:
		_, err := io.WriteString(w, text)
		return err
	}
}

// parseRule reads "old=new", "old=new:password" or "old=:password".
func parseRule(s string) (credentials.Rule, error) {
	original, rest, ok := strings.Cut(s, "=")
	original = strings.TrimSpace(original)
	if !ok || original == "" {
		return credentials.Rule{}, fmt.Errorf("invalid rule %q: want old=new[:password]", s)
	}
	newUser, password, _ := strings.Cut(rest, ":")
	r := credentials.Rule{
		OriginalUsername: original,
		NewUsername:      strings.TrimSpace(newUser),
		NewPassword:      password,
		Enabled:          true,
	}
	if r.NewUsername == "" && r.NewPassword == "" {
		return credentials.Rule{}, fmt.Errorf("invalid rule %q: nothing to replace", s)
	}
	return r, nil
}

func parseRules(values []string) ([]credentials.Rule, error) {
	rules := make([]credentials.Rule, 0, len(values))
	for _, v := range values {
		r, err := parseRule(v)
		if err != nil {
			return nil, err
		}
		rules = append(rules, r)
	}
	return rules, nil
}
