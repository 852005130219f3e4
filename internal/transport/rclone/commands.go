package rclone

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/kailas-cloud/gphotosync/internal/domain/media"
)

// Remotes names the source and destination rclone remotes.
type Remotes struct {
	Source     string
	Dest       string
	SourcePath string
}

// TransferOptions are the flags passed to every copy.
type TransferOptions struct {
	Checkers        int
	Transfers       int
	Timeout         time.Duration
	LowLevelRetries int
	Retries         int
	BWLimit         string
}

// SourceRoot returns "<source>:<path>".
func (r Remotes) SourceRoot() string {
	return r.Source + ":" + strings.Trim(r.SourcePath, "/")
}

// SourceFile returns the remote path of a listed file.
func (r Remotes) SourceFile(rel string) string {
	root := r.SourceRoot()
	if strings.HasSuffix(root, ":") {
		return root + rel
	}
	return root + "/" + rel
}

// AlbumDest returns the destination directory for album.
func (r Remotes) AlbumDest(album string) string {
	return fmt.Sprintf("%s:album/%s/", r.Dest, album)
}

// ListArgs returns the arguments of the recursive listing.
func ListArgs(r Remotes) []string {
	return []string{"lsjson", r.SourceRoot(), "--recursive", "--files-only"}
}

// CopyArgs returns the arguments that copy one file into an album.
func CopyArgs(r Remotes, rel, album string, o TransferOptions) []string {
	args := []string{
		"copy", r.SourceFile(rel), r.AlbumDest(album),
		"--checkers", strconv.Itoa(o.Checkers),
		"--transfers", strconv.Itoa(o.Transfers),
		"--timeout", fmt.Sprintf("%ds", int(o.Timeout.Seconds())),
		"--low-level-retries", strconv.Itoa(o.LowLevelRetries),
		"--retries", strconv.Itoa(o.Retries),
	}
	if o.BWLimit != "" {
		args = append(args, "--bwlimit", o.BWLimit)
	}
	return append(args, "--quiet")
}

type listEntry struct {
	Path  string `json:"Path"`
	Size  int64  `json:"Size"`
	IsDir bool   `json:"IsDir"`
}

// ParseListing decodes lsjson output, dropping directories, empty files and ignored extensions.
func ParseListing(data []byte, c media.Classifier) ([]media.File, error) {
	var entries []listEntry
	if err := json.Unmarshal(data, &entries); err != nil {
		return nil, fmt.Errorf("decode lsjson: %w", err)
	}
	files := make([]media.File, 0, len(entries))
	for _, e := range entries {
		if e.IsDir || e.Size <= 0 || c.Kind(e.Path) == media.KindIgnored {
			continue
		}
		files = append(files, media.File{Path: e.Path, Size: e.Size})
	}
	return files, nil
}

// Commands binds remotes, transfer flags and the file classifier into ready-made argument lists.
type Commands struct {
	remotes    Remotes
	opts       TransferOptions
	classifier media.Classifier
}

// NewCommands creates Commands.
func NewCommands(r Remotes, o TransferOptions, c media.Classifier) *Commands {
	return &Commands{remotes: r, opts: o, classifier: c}
}

// ListArgs returns the listing arguments.
func (c *Commands) ListArgs() []string { return ListArgs(c.remotes) }

// CopyArgs returns the upload arguments for rel into album.
func (c *Commands) CopyArgs(rel, album string) []string {
	return CopyArgs(c.remotes, rel, album, c.opts)
}

// ParseListing decodes listing output.
func (c *Commands) ParseListing(data []byte) ([]media.File, error) {
	return ParseListing(data, c.classifier)
}

// Kind classifies a listed path.
func (c *Commands) Kind(path string) media.Kind { return c.classifier.Kind(path) }
