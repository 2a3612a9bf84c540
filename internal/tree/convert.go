package tree

import (
	"context"
	"fmt"
	"strings"

	"github.com/Vansh-Raja/mremote-sync/internal/mremote"
)

const (
	defaultResolution = "1024x768"
	defaultColors     = "32"
)

// Converter turns intermediate mRemoteNG records into application nodes.
type Converter struct {
	ids IDGenerator
}

// NewConverter returns a Converter that keys nodes with ids.
func NewConverter(ids IDGenerator) *Converter {
	if ids == nil {
		ids = NewSequenceGenerator("")
	}
	return &Converter{ids: ids}
}

// Convert maps one connection onto an SSH or RDP node. Protocols other than
// SSH and RDP become SSH nodes labeled with the original protocol.
func (c *Converter) Convert(conn *mremote.Connection) *Node {
	switch classifyProtocol(conn.Protocol) {
	case classRDP:
		return c.rdpNode(conn)
	case classSSH:
		return c.sshNode(conn, conn.Name, conn.Description, PortOrDefault(conn.Port, "SSH", 22))
	default:
		proto := strings.TrimSpace(conn.Protocol)
		label := fmt.Sprintf("%s (%s)", conn.Name, proto)
		note := fmt.Sprintf("Imported from mRemoteNG as %s, converted to SSH.", proto)
		desc := note
		if conn.Description != "" {
			desc = conn.Description + "\n" + note
		}
		return c.sshNode(conn, label, desc, PortOrDefault(conn.Port, conn.Protocol, 22))
	}
}

func (c *Converter) sshNode(conn *mremote.Connection, label, description string, port int) *Node {
	return &Node{
		Key:   c.ids.NewKey(),
		Label: label,
		Data: Payload{
			Type: PayloadSSH,
			SSH: &SSHData{
				Host:         conn.Hostname,
				User:         conn.Username,
				Password:     conn.Password,
				Port:         port,
				RemoteFolder: "~",
				PrivateKey:   conn.PrivateKey,
				SSHOptions:   conn.SSHOptions,
				Description:  description,
			},
		},
	}
}

func (c *Converter) rdpNode(conn *mremote.Connection) *Node {
	return &Node{
		Key:   c.ids.NewKey(),
		Label: conn.Name,
		Data: Payload{
			Type: PayloadRDP,
			RDP: &RDPData{
				Server:             conn.Hostname,
				Username:           conn.Username,
				Password:           conn.Password,
				Port:               PortOrDefault(conn.Port, "RDP", 3389),
				Domain:             conn.Domain,
				Resolution:         orDefault(conn.Resolution, defaultResolution),
				Colors:             orDefault(conn.Colors, defaultColors),
				RedirectDrives:     isTrue(conn.RedirectDiskDrives),
				RedirectPrinters:   isTrue(conn.RedirectPrinters),
				RedirectPorts:      isTrue(conn.RedirectPorts),
				RedirectSmartCards: isTrue(conn.RedirectSmartCards),
				RedirectAudio:      false,
				AutoResize:         true,
				Wallpaper:          true,
				Description:        conn.Description,
			},
		},
	}
}

// ConvertTree converts a whole intermediate tree. Folders become droppable
// folder nodes. ctx is checked between top-level subtrees so very large
// imports can be abandoned.
func (c *Converter) ConvertTree(ctx context.Context, roots []*mremote.Node) ([]*Node, error) {
	out := make([]*Node, 0, len(roots))
	for _, r := range roots {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		out = append(out, c.convertNode(r))
	}
	return out, nil
}

func (c *Converter) convertNode(n *mremote.Node) *Node {
	if n.Kind == mremote.KindConnection {
		return c.Convert(n.Connection)
	}
	children := make([]*Node, 0, len(n.Children))
	for _, child := range n.Children {
		children = append(children, c.convertNode(child))
	}
	return NewFolder(c.ids.NewKey(), n.Name, children)
}

// isTrue accepts "true" in any case; mRemoteNG itself writes "True".
func isTrue(s string) bool {
	return strings.EqualFold(strings.TrimSpace(s), "true")
}

func orDefault(s, def string) string {
	if strings.TrimSpace(s) == "" {
		return def
	}
	return s
}
