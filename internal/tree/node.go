package tree

// PayloadType identifies what a node carries.
type PayloadType string

const (
	PayloadFolder PayloadType = "folder"
	PayloadSSH    PayloadType = "ssh"
	PayloadRDP    PayloadType = "rdp"
)

// Node is an entry of the application tree. Droppable is true iff the node
// is a folder.
type Node struct {
	Key       string  `json:"key" yaml:"key"`
	Label     string  `json:"label" yaml:"label"`
	Droppable bool    `json:"droppable" yaml:"droppable"`
	Data      Payload `json:"data" yaml:"data"`
	Children  []*Node `json:"children,omitempty" yaml:"children,omitempty"`
}

// Payload is either a folder marker or exactly one protocol payload.
type Payload struct {
	Type PayloadType `json:"type" yaml:"type"`
	SSH  *SSHData    `json:"ssh,omitempty" yaml:"ssh,omitempty"`
	RDP  *RDPData    `json:"rdp,omitempty" yaml:"rdp,omitempty"`
}

// SSHData is the payload consumed by the SSH/SFTP session layer.
type SSHData struct {
	Host         string `json:"host" yaml:"host"`
	User         string `json:"user" yaml:"user"`
	Password     string `json:"password,omitempty" yaml:"password,omitempty"`
	Port         int    `json:"port" yaml:"port"`
	RemoteFolder string `json:"remoteFolder" yaml:"remoteFolder"`
	PrivateKey   string `json:"privateKey,omitempty" yaml:"privateKey,omitempty"`
	SSHOptions   string `json:"sshOptions,omitempty" yaml:"sshOptions,omitempty"`
	Description  string `json:"description,omitempty" yaml:"description,omitempty"`
}

// RDPData is the payload consumed by the RDP session layer.
type RDPData struct {
	Server             string `json:"server" yaml:"server"`
	Username           string `json:"username" yaml:"username"`
	Password           string `json:"password,omitempty" yaml:"password,omitempty"`
	Port               int    `json:"port" yaml:"port"`
	Domain             string `json:"domain,omitempty" yaml:"domain,omitempty"`
	Resolution         string `json:"resolution" yaml:"resolution"`
	Colors             string `json:"colors" yaml:"colors"`
	RedirectDrives     bool   `json:"redirectDrives" yaml:"redirectDrives"`
	RedirectPrinters   bool   `json:"redirectPrinters" yaml:"redirectPrinters"`
	RedirectPorts      bool   `json:"redirectPorts" yaml:"redirectPorts"`
	RedirectSmartCards bool   `json:"redirectSmartCards" yaml:"redirectSmartCards"`
	RedirectAudio      bool   `json:"redirectAudio" yaml:"redirectAudio"`
	AutoResize         bool   `json:"autoResize" yaml:"autoResize"`
	Wallpaper          bool   `json:"wallpaper" yaml:"wallpaper"`
	Description        string `json:"description,omitempty" yaml:"description,omitempty"`
}

// NewFolder returns a droppable folder node.
func NewFolder(key, label string, children []*Node) *Node {
	return &Node{
		Key:       key,
		Label:     label,
		Droppable: true,
		Data:      Payload{Type: PayloadFolder},
		Children:  children,
	}
}

// IsFolder reports whether n is a folder.
func (n *Node) IsFolder() bool {
	return n != nil && n.Droppable
}

// Clone returns a deep copy of n.
func (n *Node) Clone() *Node {
	if n == nil {
		return nil
	}
	c := *n
	if n.Data.SSH != nil {
		ssh := *n.Data.SSH
		c.Data.SSH = &ssh
	}
	if n.Data.RDP != nil {
		rdp := *n.Data.RDP
		c.Data.RDP = &rdp
	}
	c.Children = CloneAll(n.Children)
	return &c
}

// CloneAll deep-copies a list of nodes.
func CloneAll(nodes []*Node) []*Node {
	if nodes == nil {
		return nil
	}
	out := make([]*Node, 0, len(nodes))
	for _, n := range nodes {
		out = append(out, n.Clone())
	}
	return out
}

// Walk visits every node depth-first, parents before children. parent is nil
// for top-level nodes. Returning false skips the node's children.
func Walk(nodes []*Node, fn func(n, parent *Node) bool) {
	var visit func([]*Node, *Node)
	visit = func(list []*Node, parent *Node) {
		for _, n := range list {
			if fn(n, parent) {
				visit(n.Children, n)
			}
		}
	}
	visit(nodes, nil)
}

// Find returns the node with the given key, or nil.
func Find(nodes []*Node, key string) *Node {
	var found *Node
	Walk(nodes, func(n, _ *Node) bool {
		if found != nil {
			return false
		}
		if n.Key == key {
			found = n
			return false
		}
		return true
	})
	return found
}

// Count returns the number of folders and connections at any depth.
func Count(nodes []*Node) (folders, connections int) {
	Walk(nodes, func(n, _ *Node) bool {
		if n.IsFolder() {
			folders++
		} else {
			connections++
		}
		return true
	})
	return folders, connections
}

// Flatten returns the connection nodes of a tree in depth-first order.
func Flatten(nodes []*Node) []*Node {
	var out []*Node
	Walk(nodes, func(n, _ *Node) bool {
		if !n.IsFolder() {
			out = append(out, n)
		}
		return true
	})
	return out
}
