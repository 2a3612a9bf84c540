package watch

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"path/filepath"
	"runtime"
	"strings"
	"time"
)

var (
	// ErrHashUnavailable means the content could not be hashed this time.
	ErrHashUnavailable = errors.New("file hash unavailable")

	// ErrNoDownload means no matching download exists yet.
	ErrNoDownload = errors.New("no matching download found")
)

// FileInfo is the metadata the watcher needs about a path.
type FileInfo struct {
	Size    int64
	ModTime time.Time
	IsDir   bool
}

// Download is a file found in the downloads directory.
type Download struct {
	Path     string
	FileName string
	ModTime  time.Time
	Size     int64
}

// FileSystem is everything the watcher needs from the host.
type FileSystem interface {
	ReadFile(ctx context.Context, path string) ([]byte, error)
	FileHash(ctx context.Context, path string) (string, error)
	FileInfo(ctx context.Context, path string) (FileInfo, error)
	// FindLatestXMLDownload returns the newest .xml download modified at or
	// after since whose name matches pattern (any name when empty).
	FindLatestXMLDownload(ctx context.Context, since time.Time, pattern string) (*Download, error)
	// OpenExternal launches url in the user's browser.
	OpenExternal(ctx context.Context, url string) error
}

// OSFileSystem is FileSystem backed by the local disk.
type OSFileSystem struct {
	DownloadsDir string
}

// DefaultDownloadsDir returns ~/Downloads.
func DefaultDownloadsDir() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to get home directory: %w", err)
	}
	return filepath.Join(home, "Downloads"), nil
}

func (OSFileSystem) ReadFile(ctx context.Context, path string) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return os.ReadFile(path)
}

// FileHash returns the hex sha256 of the file. Read failures other than a
// missing file are reported as ErrHashUnavailable.
func (OSFileSystem) FileHash(ctx context.Context, path string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	f, err := os.Open(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return "", err
		}
		return "", fmt.Errorf("%w: %v", ErrHashUnavailable, err)
	}
	defer f.Close()

	h := sha256.New()
	if _, err := io.Copy(h, f); err != nil {
		return "", fmt.Errorf("%w: %v", ErrHashUnavailable, err)
	}
	return hex.EncodeToString(h.Sum(nil)), nil
}

func (OSFileSystem) FileInfo(ctx context.Context, path string) (FileInfo, error) {
	if err := ctx.Err(); err != nil {
		return FileInfo{}, err
	}
	st, err := os.Stat(path)
	if err != nil {
		return FileInfo{}, err
	}
	return FileInfo{Size: st.Size(), ModTime: st.ModTime(), IsDir: st.IsDir()}, nil
}

func (fs OSFileSystem) FindLatestXMLDownload(ctx context.Context, since time.Time, pattern string) (*Download, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	dir := fs.DownloadsDir
	if dir == "" {
		d, err := DefaultDownloadsDir()
		if err != nil {
			return nil, err
		}
		dir = d
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("failed to read downloads directory: %w", err)
	}

	var best *Download
	for _, e := range entries {
		if !e.Type().IsRegular() {
			continue
		}
		name := e.Name()
		if !strings.EqualFold(filepath.Ext(name), ".xml") {
			continue
		}
		if pattern != "" {
			ok, err := filepath.Match(pattern, name)
			if err != nil {
				return nil, fmt.Errorf("invalid download pattern %q: %w", pattern, err)
			}
			if !ok {
				continue
			}
		}
		info, err := e.Info()
		if err != nil {
			continue
		}
		if info.ModTime().Before(since) {
			continue
		}
		if best == nil || info.ModTime().After(best.ModTime) {
			best = &Download{
				Path:     filepath.Join(dir, name),
				FileName: name,
				ModTime:  info.ModTime(),
				Size:     info.Size(),
			}
		}
	}
	if best == nil {
		return nil, ErrNoDownload
	}
	return best, nil
}

func (OSFileSystem) OpenExternal(ctx context.Context, url string) error {
	var args []string
	switch runtime.GOOS {
	case "darwin":
		args = []string{"open", url}
	case "windows":
		args = []string{"rundll32", "url.dll,FileProtocolHandler", url}
	default:
		args = []string{"xdg-open", url}
	}
	cmd := exec.CommandContext(ctx, args[0], args[1:]...)
	if err := cmd.Start(); err != nil {
		return fmt.Errorf("failed to open %s: %w", url, err)
	}
	go func() { _ = cmd.Wait() }()
	return nil
}
