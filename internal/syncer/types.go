// Package syncer drives the two sequential phases of a sync run against
// the metadata store: the update phase replaces the stored metadata with
// the remote source's full feed, and the download phase materializes
// missing files into every view's directory layout. The remote protocol
// itself lives behind two narrow interfaces; this package performs no
// network I/O of its own.
package syncer

import (
	"context"
	"io"

	"github.com/BebopxD/studip-client/internal/store"
)

// MetadataSource is the remote collaborator producing one sync cycle's
// full-replace metadata feed: every known semester, course, and file.
type MetadataSource interface {
	FetchMetadata(ctx context.Context) (*store.ReplaceSet, error)
}

// FileFetcher is the remote collaborator streaming a single file's bytes.
type FileFetcher interface {
	FetchFile(ctx context.Context, fileID string) (io.ReadCloser, error)
}

// DownloadReport summarizes one download phase.
type DownloadReport struct {
	Downloaded  int
	UpToDate    int
	Copyrighted int // skipped because the copyright policy excludes them
	Errors      []DownloadError
}

// DownloadError records one failed materialization. Failures of single
// files do not abort the phase.
type DownloadError struct {
	FileID string
	View   string
	Path   string
	Err    error
}

func (e DownloadError) Error() string {
	return "download " + e.FileID + " into " + e.Path + ": " + e.Err.Error()
}

func (e DownloadError) Unwrap() error { return e.Err }
