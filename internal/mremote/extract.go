package mremote

import (
	"strconv"
	"strings"
)

// Kind tells folders from connections in the intermediate tree.
type Kind int

const (
	KindFolder Kind = iota
	KindConnection
)

func (k Kind) String() string {
	switch k {
	case KindFolder:
		return "folder"
	case KindConnection:
		return "connection"
	default:
		return "unknown"
	}
}

// Connection is a connection record as read from the export, before any
// protocol-specific defaults are applied. Port is 0 when the source omits it.
type Connection struct {
	ID          string
	ParentID    string
	Name        string
	Protocol    string
	Hostname    string
	Port        int
	Username    string
	Password    string
	Domain      string
	Description string
	Resolution  string
	Colors      string

	// Redirect flags keep the raw attribute text; the converter decides
	// what counts as enabled.
	RedirectDiskDrives string
	RedirectPrinters   string
	RedirectPorts      string
	RedirectSmartCards string

	SSHOptions string
	PrivateKey string
}

// Node is one entry of the intermediate tree.
type Node struct {
	Kind       Kind
	Name       string
	Children   []*Node
	Connection *Connection
}

// Tree is the result of Extract.
type Tree struct {
	Roots []*Node

	// DetachedRoots counts top-level nodes that declare a ParentId the
	// extractor does not resolve. They are kept as independent roots.
	DetachedRoots int

	Document *Document
}

// Extract parses an mRemoteNG export into an intermediate folder/connection tree.
//
// Both the nested <Node> dialect and the flatter <Connection> dialect are
// accepted. Hierarchy is taken from XML nesting only: a node whose parent is
// expressed purely through ParentId is treated as an independent root.
func Extract(xmlText []byte) (*Tree, error) {
	doc, err := ParseDocument(xmlText)
	if err != nil {
		return nil, err
	}

	nodes := doc.NodeElements()
	if len(nodes) == 0 {
		return nil, ErrUnsupportedFormat
	}

	t := &Tree{Document: doc}
	for _, el := range nodes {
		if el.Parent.IsNode() {
			continue
		}
		if !IsRoot(el) {
			t.DetachedRoots++
		}
		if n := buildNode(el); n != nil {
			t.Roots = append(t.Roots, n)
		}
	}
	return t, nil
}

// IsRoot reports whether el starts a tree of its own: its parent element is
// not node-typed and it carries no parent pointer.
func IsRoot(el *Element) bool {
	return el.IsNode() && !el.Parent.IsNode() && !el.hasParentPointer()
}

func buildNode(el *Element) *Node {
	// A connection attribute beats child count.
	if el.IsConnectionLike() {
		c := connectionFrom(el)
		return &Node{Kind: KindConnection, Name: c.Name, Connection: c}
	}
	if el.IsContainerLike() {
		folder := &Node{Kind: KindFolder, Name: el.Lookup(FieldName)}
		for _, child := range el.ChildNodes() {
			if n := buildNode(child); n != nil {
				folder.Children = append(folder.Children, n)
			}
		}
		return folder
	}
	return nil
}

func connectionFrom(el *Element) *Connection {
	c := &Connection{
		ID:                 el.Lookup(FieldID),
		ParentID:           el.Lookup(FieldParent),
		Name:               el.Lookup(FieldName),
		Protocol:           strings.TrimSpace(el.Lookup(FieldProtocol)),
		Hostname:           strings.TrimSpace(el.Lookup(FieldHostname)),
		Port:               parsePort(el.Lookup(FieldPort)),
		Username:           el.Lookup(FieldUsername),
		Password:           el.Lookup(FieldPassword),
		Domain:             el.Lookup(FieldDomain),
		Description:        el.Lookup(FieldDescription),
		Resolution:         el.Lookup(FieldResolution),
		Colors:             el.Lookup(FieldColors),
		RedirectDiskDrives: el.Lookup(FieldRedirectDiskDrives),
		RedirectPrinters:   el.Lookup(FieldRedirectPrinters),
		RedirectPorts:      el.Lookup(FieldRedirectPorts),
		RedirectSmartCards: el.Lookup(FieldRedirectSmartCards),
		SSHOptions:         el.Lookup(FieldSSHOptions),
		PrivateKey:         el.Lookup(FieldPrivateKey),
	}
	if c.Name == "" {
		c.Name = c.Hostname
	}
	return c
}

func parsePort(s string) int {
	p, err := strconv.Atoi(strings.TrimSpace(s))
	if err != nil || p <= 0 || p > 65535 {
		return 0
	}
	return p
}

// Connections returns every connection of the tree in document order.
func (t *Tree) Connections() []*Connection {
	var out []*Connection
	var visit func([]*Node)
	visit = func(nodes []*Node) {
		for _, n := range nodes {
			if n.Kind == KindConnection {
				out = append(out, n.Connection)
				continue
			}
			visit(n.Children)
		}
	}
	visit(t.Roots)
	return out
}

// ConnectionCount returns the number of connection leaves.
func (t *Tree) ConnectionCount() int {
	return len(t.Connections())
}

// FolderCount returns the number of folders at any depth.
func (t *Tree) FolderCount() int {
	count := 0
	var visit func([]*Node)
	visit = func(nodes []*Node) {
		for _, n := range nodes {
			if n.Kind == KindFolder {
				count++
				visit(n.Children)
			}
		}
	}
	visit(t.Roots)
	return count
}
