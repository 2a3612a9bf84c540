package credentials

import (
	"sort"

	"github.com/Vansh-Raja/mremote-sync/internal/mremote"
)

// MaxTopUsers bounds the analyzer report.
const MaxTopUsers = 10

// UserFrequency is one account name found across an export.
type UserFrequency struct {
	Username        string   `json:"username" yaml:"username"`
	Count           int      `json:"count" yaml:"count"`
	ConnectionNames []string `json:"connectionNames" yaml:"connectionNames"`
	// RawContexts are the distinct original attribute values the name was
	// extracted from.
	RawContexts []string `json:"rawContexts" yaml:"rawContexts"`
}

// Analyze counts account names over every connection-like element of doc.
// The result is sorted by descending count, ties in first-seen order, and
// holds at most MaxTopUsers entries.
func Analyze(doc *mremote.Document) []UserFrequency {
	if doc == nil {
		return nil
	}

	var entries []*UserFrequency
	index := make(map[string]*UserFrequency)

	for _, el := range doc.NodeElements() {
		if !el.IsConnectionLike() {
			continue
		}
		raw := el.Lookup(mremote.FieldUsername)
		if raw == "" {
			continue
		}
		name := el.Lookup(mremote.FieldName)
		if name == "" {
			name = el.Lookup(mremote.FieldHostname)
		}
		for _, user := range ExtractUsernames(raw) {
			e, ok := index[user]
			if !ok {
				e = &UserFrequency{Username: user}
				index[user] = e
				entries = append(entries, e)
			}
			e.Count++
			e.ConnectionNames = append(e.ConnectionNames, name)
			if !contains(e.RawContexts, raw) {
				e.RawContexts = append(e.RawContexts, raw)
			}
		}
	}

	sort.SliceStable(entries, func(i, j int) bool {
		return entries[i].Count > entries[j].Count
	})
	if len(entries) > MaxTopUsers {
		entries = entries[:MaxTopUsers]
	}

	out := make([]UserFrequency, 0, len(entries))
	for _, e := range entries {
		out = append(out, *e)
	}
	return out
}

// AnalyzeXML parses xmlText and runs Analyze over it.
func AnalyzeXML(xmlText []byte) ([]UserFrequency, error) {
	doc, err := mremote.ParseDocument(xmlText)
	if err != nil {
		return nil, err
	}
	return Analyze(doc), nil
}

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}
