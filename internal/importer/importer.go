package importer

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/rs/zerolog"

	"github.com/Vansh-Raja/mremote-sync/internal/credentials"
	"github.com/Vansh-Raja/mremote-sync/internal/mremote"
	"github.com/Vansh-Raja/mremote-sync/internal/tree"
)

// ErrNoResult is returned by Apply for a nil or failed result.
var ErrNoResult = errors.New("no successful import result to apply")

// Importer runs the extract, convert and analyze steps and applies results
// to an existing tree.
type Importer struct {
	ids tree.IDGenerator
	log zerolog.Logger
	now func() time.Time
}

// Option configures an Importer.
type Option func(*Importer)

// WithIDGenerator sets the key source for converted nodes. Each Importer
// owns its generator.
func WithIDGenerator(ids tree.IDGenerator) Option {
	return func(i *Importer) { i.ids = ids }
}

// WithLogger sets the logger.
func WithLogger(log zerolog.Logger) Option {
	return func(i *Importer) { i.log = log }
}

// WithClock overrides time.Now for import dates.
func WithClock(now func() time.Time) Option {
	return func(i *Importer) { i.now = now }
}

// New returns an Importer.
func New(opts ...Option) *Importer {
	i := &Importer{log: zerolog.Nop(), now: time.Now}
	for _, opt := range opts {
		opt(i)
	}
	if i.ids == nil {
		i.ids = tree.NewSequenceGenerator("")
	}
	i.log = i.log.With().Str("component", "importer").Logger()
	return i
}

// Parse converts an mRemoteNG export. On error the returned result is a
// Failure carrying the same message.
func (i *Importer) Parse(ctx context.Context, xmlText []byte, originalFile string) (*Result, error) {
	extracted, err := mremote.Extract(xmlText)
	if err != nil {
		i.log.Debug().Err(err).Str("file", originalFile).Msg("extract failed")
		return Failure(err), err
	}

	nodes, err := tree.NewConverter(i.ids).ConvertTree(ctx, extracted.Roots)
	if err != nil {
		return Failure(err), err
	}

	folders, connections := tree.Count(nodes)
	sum := sha256.Sum256(xmlText)
	res := &Result{
		Success: true,
		Structure: &Structure{
			Nodes:           nodes,
			FlatConnections: tree.Flatten(nodes),
			ConnectionCount: connections,
			FolderCount:     folders,
		},
		TopUsers: credentials.Analyze(extracted.Document),
		Metadata: &Metadata{
			Source:       SourceMRemoteNG,
			ImportDate:   i.now().UTC(),
			OriginalFile: originalFile,
			ContentHash:  hex.EncodeToString(sum[:]),
		},
		DetachedRoots: extracted.DetachedRoots,
	}
	if res.DetachedRoots > 0 {
		i.log.Warn().Int("count", res.DetachedRoots).Str("file", originalFile).Msg("top-level nodes reference a parent by id only; kept as roots")
	}
	i.log.Debug().Int("connections", connections).Int("folders", folders).Str("file", originalFile).Msg("parsed export")
	return res, nil
}

// ParseFile reads path and parses it.
func (i *Importer) ParseFile(ctx context.Context, path string) (*Result, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		err = fmt.Errorf("failed to read %s: %w", path, err)
		return Failure(err), err
	}
	return i.Parse(ctx, data, filepath.Base(path))
}

// ApplyOptions control how a result lands in an existing tree.
type ApplyOptions struct {
	TargetFolderKey string             `json:"targetFolderKey,omitempty" yaml:"targetFolderKey,omitempty"`
	Overwrite       bool               `json:"overwrite" yaml:"overwrite"`
	WrapInContainer bool               `json:"wrapInContainer" yaml:"wrapInContainer"`
	ContainerLabel  string             `json:"containerLabel,omitempty" yaml:"containerLabel,omitempty"`
	Flatten         bool               `json:"flatten" yaml:"flatten"`
	Rules           []credentials.Rule `json:"rules,omitempty" yaml:"rules,omitempty"`
}

// Apply substitutes credentials in the result's nodes and merges them into
// existing. Neither existing nor res is modified.
func (i *Importer) Apply(existing []*tree.Node, res *Result, opts ApplyOptions) ([]*tree.Node, Summary, error) {
	if res == nil || !res.Success || res.Structure == nil {
		return nil, Summary{}, ErrNoResult
	}

	incoming := res.Structure.Nodes
	if opts.Flatten {
		incoming = res.Structure.FlatConnections
	}

	incoming, subStats := credentials.ApplyWithStats(incoming, opts.Rules)

	merged, stats := tree.NewMerger(i.ids).Merge(existing, incoming, opts.TargetFolderKey, tree.MergeOptions{
		Overwrite:       opts.Overwrite,
		WrapInContainer: opts.WrapInContainer,
		ContainerLabel:  opts.ContainerLabel,
	})
	if !stats.TargetResolved {
		i.log.Info().Str("target", opts.TargetFolderKey).Msg("target folder not found, merging at top level")
	}

	folders, connections := tree.Count(incoming)
	if opts.WrapInContainer {
		folders++
	}
	return merged, Summary{
		Folders:          folders,
		Connections:      connections,
		Replaced:         stats.Replaced,
		TargetKey:        stats.TargetKey,
		TargetResolved:   stats.TargetResolved,
		UsernamesChanged: subStats.UsernamesChanged,
		PasswordsChanged: subStats.PasswordsChanged,
	}, nil
}
