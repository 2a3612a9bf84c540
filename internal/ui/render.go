package ui

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"

	"github.com/Vansh-Raja/mremote-sync/internal/credentials"
	"github.com/Vansh-Raja/mremote-sync/internal/importer"
	"github.com/Vansh-Raja/mremote-sync/internal/snapshot"
	"github.com/Vansh-Raja/mremote-sync/internal/tree"
	"github.com/Vansh-Raja/mremote-sync/internal/watch"
)

const maxContextWidth = 48

// RenderTree draws nodes as an indented tree.
func (s *Styles) RenderTree(nodes []*tree.Node) string {
	if len(nodes) == 0 {
		return s.Subtitle.Render("(empty tree)") + "\n"
	}
	var b strings.Builder
	s.renderBranch(&b, nodes, "")
	return b.String()
}

func (s *Styles) renderBranch(b *strings.Builder, nodes []*tree.Node, prefix string) {
	for i, n := range nodes {
		last := i == len(nodes)-1
		connector, indent := "├── ", "│   "
		if last {
			connector, indent = "└── ", "    "
		}
		b.WriteString(s.Branch.Render(prefix + connector))
		b.WriteString(s.renderNode(n))
		b.WriteString("\n")
		if n.IsFolder() {
			s.renderBranch(b, n.Children, prefix+indent)
		}
	}
}

func (s *Styles) renderNode(n *tree.Node) string {
	if n.IsFolder() {
		return s.Folder.Render(n.Label + "/")
	}
	return s.Connection.Render(n.Label) + " " + s.Protocol.Render("["+Endpoint(n)+"]")
}

// Endpoint formats a connection as "proto user@host:port".
func Endpoint(n *tree.Node) string {
	var proto, user, host string
	var port int
	switch {
	case n.Data.SSH != nil:
		proto, user, host, port = "ssh", n.Data.SSH.User, n.Data.SSH.Host, n.Data.SSH.Port
	case n.Data.RDP != nil:
		proto, user, host, port = "rdp", n.Data.RDP.Username, n.Data.RDP.Server, n.Data.RDP.Port
	default:
		return string(n.Data.Type)
	}
	addr := host + ":" + strconv.Itoa(port)
	if user != "" {
		addr = user + "@" + addr
	}
	return proto + " " + addr
}

// RenderUsers lists the most frequent usernames of an export.
func (s *Styles) RenderUsers(users []credentials.UserFrequency) string {
	var b strings.Builder
	b.WriteString(s.ListHeader.Render("USERNAMES"))
	b.WriteString("\n\n")
	if len(users) == 0 {
		b.WriteString(s.Subtitle.Render("No usernames found"))
		b.WriteString("\n")
		return b.String()
	}
	for i, u := range users {
		fmt.Fprintf(&b, "%2d. %s %s\n", i+1, s.DetailValue.Render(u.Username), s.Subtitle.Render(plural(u.Count, "connection")))
		for _, name := range u.ConnectionNames {
			b.WriteString("      " + s.Connection.Render(name) + "\n")
		}
		if len(u.RawContexts) > 0 {
			ctx := truncateString(strings.Join(u.RawContexts, ", "), maxContextWidth)
			b.WriteString("      " + s.Subtitle.Render("seen as: "+ctx) + "\n")
		}
	}
	return b.String()
}

// RenderSummary renders the outcome of an import.
func (s *Styles) RenderSummary(sum importer.Summary) string {
	var b strings.Builder
	b.WriteString(s.Success.Render(sum.Message()))
	b.WriteString("\n")
	if sum.UsernamesChanged > 0 || sum.PasswordsChanged > 0 {
		b.WriteString(s.renderDetailRow("Usernames", strconv.Itoa(sum.UsernamesChanged)))
		b.WriteString(s.renderDetailRow("Passwords", strconv.Itoa(sum.PasswordsChanged)))
	}
	return b.String()
}

// StatusFunc looks up the live status of a source.
type StatusFunc func(id string) (watch.Status, bool)

// RenderSources lists linked sources with their last check outcome.
func (s *Styles) RenderSources(sources []*watch.LinkedSource, status StatusFunc, now time.Time) string {
	var b strings.Builder
	b.WriteString(s.ListHeader.Render("LINKED SOURCES"))
	b.WriteString("\n\n")
	if len(sources) == 0 {
		b.WriteString(s.Subtitle.Render("No linked sources"))
		b.WriteString("\n")
		return b.String()
	}
	for _, src := range sources {
		var rows strings.Builder
		rows.WriteString(s.Title.Render(src.FileName) + "\n")
		rows.WriteString(s.renderDetailRow("ID", src.ID))
		if src.URLBased() {
			rows.WriteString(s.renderDetailRow("URL", src.SourceURL))
			if src.DownloadPattern != "" {
				rows.WriteString(s.renderDetailRow("Pattern", src.DownloadPattern))
			}
		}
		if src.FilePath != "" {
			rows.WriteString(s.renderDetailRow("Path", src.FilePath))
		}
		rows.WriteString(s.renderDetailRow("Interval", src.Interval().String()))
		rows.WriteString(s.renderDetailRow("Linked", formatTimeAgo(src.LinkedAt, now)))
		if !src.LastCheckedAt.IsZero() {
			rows.WriteString(s.renderDetailRow("Last check", formatTimeAgo(src.LastCheckedAt, now)))
		}
		if hash := shortHash(src.FileHash); hash != "" {
			rows.WriteString(s.renderDetailRow("Hash", hash))
		}
		if status != nil {
			if st, ok := status(src.ID); ok {
				rows.WriteString(s.renderDetailRow("Status", s.renderState(st)))
			}
		}
		b.WriteString(s.Panel.Render(strings.TrimRight(rows.String(), "\n")))
		b.WriteString("\n")
	}
	return b.String()
}

func (s *Styles) renderState(st watch.Status) string {
	outcome := st.LastOutcome
	if outcome == watch.StateIdle {
		outcome = st.State
	}
	switch outcome {
	case watch.StateCheckFailed:
		msg := outcome.String()
		if st.LastError != nil {
			msg += ": " + st.LastError.Error()
		}
		return s.StatusError.Render(msg)
	case watch.StateChangedNotified:
		return s.StatusWarning.Render(outcome.String())
	default:
		return s.StatusReady.Render(outcome.String())
	}
}

// RenderHistory lists tree snapshots, newest first.
func (s *Styles) RenderHistory(entries []snapshot.Entry, now time.Time) string {
	var b strings.Builder
	b.WriteString(s.ListHeader.Render("HISTORY"))
	b.WriteString("\n\n")
	for _, e := range entries {
		fmt.Fprintf(&b, "%s  %s  %s\n",
			s.Info.Render(shortHash(e.Hash)),
			e.Message,
			s.Subtitle.Render(formatTimeAgo(e.When, now)))
	}
	return b.String()
}

// renderDetailRow renders a single detail row
func (s *Styles) renderDetailRow(label, value string) string {
	return lipgloss.JoinHorizontal(
		lipgloss.Top,
		s.DetailLabel.Render(label),
		s.DetailValue.Render(value),
	) + "\n"
}

func shortHash(h string) string {
	if len(h) > 8 {
		return h[:8]
	}
	return h
}

func plural(n int, noun string) string {
	if n == 1 {
		return "1 " + noun
	}
	return fmt.Sprintf("%d %ss", n, noun)
}

func truncateString(s string, width int) string {
	if width <= 0 {
		return ""
	}
	if lipgloss.Width(s) <= width {
		return s
	}
	r := []rune(s)
	if len(r) <= 1 {
		return ""
	}
	out := string(r)
	for lipgloss.Width(out) > width-1 && len(r) > 0 {
		r = r[:len(r)-1]
		out = string(r)
	}
	return out + "…"
}

// formatTimeAgo formats the time since t as a human-readable string
func formatTimeAgo(t, now time.Time) string {
	if t.IsZero() {
		return "never"
	}
	duration := now.Sub(t)

	switch {
	case duration < time.Minute:
		return "Just now"
	case duration < time.Hour:
		return plural(int(duration.Minutes()), "minute") + " ago"
	case duration < 24*time.Hour:
		return plural(int(duration.Hours()), "hour") + " ago"
	case duration < 7*24*time.Hour:
		return plural(int(duration.Hours()/24), "day") + " ago"
	case duration < 30*24*time.Hour:
		return plural(int(duration.Hours()/24/7), "week") + " ago"
	default:
		return plural(int(duration.Hours()/24/30), "month") + " ago"
	}
}
