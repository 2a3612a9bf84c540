package importer

import (
	"fmt"
	"time"

	"github.com/Vansh-Raja/mremote-sync/internal/credentials"
	"github.com/Vansh-Raja/mremote-sync/internal/tree"
)

// SourceMRemoteNG tags results produced from mRemoteNG exports.
const SourceMRemoteNG = "mremoteng"

// Result is the outcome of parsing one export.
type Result struct {
	Success   bool                        `json:"success" yaml:"success"`
	Structure *Structure                  `json:"structure,omitempty" yaml:"structure,omitempty"`
	TopUsers  []credentials.UserFrequency `json:"topUsers,omitempty" yaml:"topUsers,omitempty"`
	Metadata  *Metadata                   `json:"metadata,omitempty" yaml:"metadata,omitempty"`
	Error     string                      `json:"error,omitempty" yaml:"error,omitempty"`

	// DetachedRoots counts top-level nodes whose ParentId was not resolved.
	DetachedRoots int `json:"detachedRoots,omitempty" yaml:"detachedRoots,omitempty"`
}

// Structure is the converted tree plus a flat view of its connections.
type Structure struct {
	Nodes           []*tree.Node `json:"nodes" yaml:"nodes"`
	FlatConnections []*tree.Node `json:"flatConnections" yaml:"flatConnections"`
	ConnectionCount int          `json:"connectionCount" yaml:"connectionCount"`
	FolderCount     int          `json:"folderCount" yaml:"folderCount"`
}

// Metadata identifies where a result came from.
type Metadata struct {
	Source       string    `json:"source" yaml:"source"`
	ImportDate   time.Time `json:"importDate" yaml:"importDate"`
	OriginalFile string    `json:"originalFile,omitempty" yaml:"originalFile,omitempty"`
	ContentHash  string    `json:"contentHash" yaml:"contentHash"`
}

// Failure wraps err in an unsuccessful result.
func Failure(err error) *Result {
	msg := "import failed"
	if err != nil {
		msg = err.Error()
	}
	return &Result{Success: false, Error: msg}
}

// Summary describes what Apply added to the tree.
type Summary struct {
	Folders          int    `json:"folders" yaml:"folders"`
	Connections      int    `json:"connections" yaml:"connections"`
	Replaced         int    `json:"replaced" yaml:"replaced"`
	TargetKey        string `json:"targetKey,omitempty" yaml:"targetKey,omitempty"`
	TargetResolved   bool   `json:"targetResolved" yaml:"targetResolved"`
	UsernamesChanged int    `json:"usernamesChanged" yaml:"usernamesChanged"`
	PasswordsChanged int    `json:"passwordsChanged" yaml:"passwordsChanged"`
}

// Message is the one-line report shown after an import.
func (s Summary) Message() string {
	msg := fmt.Sprintf("Imported %s and %s", plural(s.Connections, "connection"), plural(s.Folders, "folder"))
	if s.Replaced > 0 {
		msg += fmt.Sprintf(", replaced %s", plural(s.Replaced, "existing entry"))
	}
	if !s.TargetResolved {
		msg += " (target folder not found, added at top level)"
	}
	return msg
}

func plural(n int, noun string) string {
	if n == 1 {
		return "1 " + noun
	}
	switch noun {
	case "existing entry":
		return fmt.Sprintf("%d existing entries", n)
	default:
		return fmt.Sprintf("%d %ss", n, noun)
	}
}
