package watch

import (
	"errors"
	"time"

	"github.com/Vansh-Raja/mremote-sync/internal/importer"
)

const (
	MinInterval     = 5 * time.Second
	DefaultInterval = 30 * time.Second
)

// LinkedSource is an external export watched for content changes: either
// a local file or the latest browser download matching a pattern.
type LinkedSource struct {
	ID              string    `json:"id" yaml:"id"`
	FileName        string    `json:"fileName" yaml:"fileName"`
	FilePath        string    `json:"filePath,omitempty" yaml:"filePath,omitempty"`
	SourceURL       string    `json:"sourceUrl,omitempty" yaml:"sourceUrl,omitempty"`
	DownloadPattern string    `json:"downloadPattern,omitempty" yaml:"downloadPattern,omitempty"`
	LinkedAt        time.Time `json:"linkedAt" yaml:"linkedAt"`

	// FileHash is the content hash last imported. LastNotifiedHash is the
	// last hash a change event was emitted for.
	FileHash         string    `json:"fileHash,omitempty" yaml:"fileHash,omitempty"`
	LastNotifiedHash string    `json:"lastNotifiedHash,omitempty" yaml:"lastNotifiedHash,omitempty"`
	LastCheckedAt    time.Time `json:"lastCheckedAt,omitempty" yaml:"lastCheckedAt,omitempty"`

	IntervalMs   int64                 `json:"intervalMs,omitempty" yaml:"intervalMs,omitempty"`
	MergeOptions importer.ApplyOptions `json:"mergeOptions" yaml:"mergeOptions"`
}

// StableID is the file path, or the file name when there is none.
func (s *LinkedSource) StableID() string {
	if s.FilePath != "" {
		return s.FilePath
	}
	return s.FileName
}

// URLBased reports whether content is discovered among downloads.
func (s *LinkedSource) URLBased() bool {
	return s.SourceURL != ""
}

// Interval is the check interval, defaulted and clamped to MinInterval.
func (s *LinkedSource) Interval() time.Duration {
	return clampInterval(s.IntervalMs, MinInterval)
}

// SetInterval stores d in milliseconds.
func (s *LinkedSource) SetInterval(d time.Duration) {
	s.IntervalMs = d.Milliseconds()
}

func (s *LinkedSource) clone() *LinkedSource {
	c := *s
	c.MergeOptions.Rules = append(c.MergeOptions.Rules[:0:0], s.MergeOptions.Rules...)
	return &c
}

func clampInterval(ms int64, floor time.Duration) time.Duration {
	d := time.Duration(ms) * time.Millisecond
	if d <= 0 {
		d = DefaultInterval
	}
	if d < floor {
		d = floor
	}
	return d
}

func (s *LinkedSource) validate() error {
	if s.FilePath == "" && s.SourceURL == "" {
		return errors.New("linked source needs a file path or a source URL")
	}
	if s.StableID() == "" {
		return errors.New("linked source needs a file name")
	}
	return nil
}
