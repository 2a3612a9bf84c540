package tree

import (
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
)

// IDGenerator hands out node keys. Implementations must never return the
// same key twice.
type IDGenerator interface {
	NewKey() string
}

// SequenceGenerator builds keys from a millisecond timestamp, a monotonic
// counter and a random suffix. The counter keeps keys distinct within one
// millisecond; the suffix keeps them distinct across generators and runs.
type SequenceGenerator struct {
	prefix string
	now    func() time.Time

	mu      sync.Mutex
	counter uint64
}

// NewSequenceGenerator returns a generator whose keys start with prefix
// ("node" when empty).
func NewSequenceGenerator(prefix string) *SequenceGenerator {
	if prefix == "" {
		prefix = "node"
	}
	return &SequenceGenerator{prefix: prefix, now: time.Now}
}

func (g *SequenceGenerator) NewKey() string {
	g.mu.Lock()
	g.counter++
	n := g.counter
	g.mu.Unlock()

	suffix := strings.ReplaceAll(uuid.NewString(), "-", "")[:8]
	return fmt.Sprintf("%s-%d-%d-%s", g.prefix, g.now().UnixMilli(), n, suffix)
}
