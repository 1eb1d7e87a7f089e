// Package store implements the local metadata cache for studip-client:
// a schema-versioned SQLite database holding semesters, courses, folders,
// files, views, and per-view checkout state. It owns schema migration,
// sync-mode filtering, lazy folder resolution, and the version counter
// that invalidates view checkouts when file metadata changes.
package store

import (
	"fmt"
	"time"
)

// SyncMode is the per-course download policy, stored as an integer ordinal.
type SyncMode int

// Sync modes as stored in the courses.sync column.
const (
	SyncNone     SyncMode = 0 // course is ignored entirely
	SyncMetadata SyncMode = 1 // file metadata is tracked, bytes are not fetched
	SyncFull     SyncMode = 2 // metadata and file bytes
)

func (m SyncMode) String() string {
	switch m {
	case SyncNone:
		return "none"
	case SyncMetadata:
		return "metadata"
	case SyncFull:
		return "full"
	default:
		return fmt.Sprintf("SyncMode(%d)", int(m))
	}
}

// SyncModeSet is a filter over sync modes for list queries.
type SyncModeSet uint8

// Modes builds a set from individual modes.
func Modes(modes ...SyncMode) SyncModeSet {
	var s SyncModeSet
	for _, m := range modes {
		s |= 1 << uint(m)
	}

	return s
}

// AllModes selects every course regardless of sync policy.
var AllModes = Modes(SyncNone, SyncMetadata, SyncFull)

// Has reports whether the set contains the given mode.
func (s SyncModeSet) Has(m SyncMode) bool {
	return s&(1<<uint(m)) != 0
}

// slice returns the contained modes in ordinal order, for IN clauses.
func (s SyncModeSet) slice() []SyncMode {
	var out []SyncMode

	for _, m := range []SyncMode{SyncNone, SyncMetadata, SyncFull} {
		if s.Has(m) {
			out = append(out, m)
		}
	}

	return out
}

// EscapeMode controls how filesystem-unsafe characters in rendered path
// segments are handled. Ordinals are persisted in views.esc_mode.
type EscapeMode int

const (
	// EscapeSimilar replaces unsafe characters with visually similar safe ones.
	EscapeSimilar EscapeMode = 0
	// EscapeVerbatim passes segments through, replacing only path separators.
	EscapeVerbatim EscapeMode = 1
	// EscapeReject drops unsafe characters from the output entirely.
	EscapeReject EscapeMode = 2
)

// Charset restricts the character repertoire of rendered path segments.
// Ordinals are persisted in views.charset.
type Charset int

const (
	// CharsetUnicode allows the full Unicode repertoire.
	CharsetUnicode Charset = 0
	// CharsetASCII transliterates to plain ASCII.
	CharsetASCII Charset = 1
	// CharsetIdentifier restricts output to [A-Za-z0-9_].
	CharsetIdentifier Charset = 2
)

// Semester is a term reported by the remote source. Semesters are only
// written by bulk replace during a metadata update.
type Semester struct {
	ID    string
	Name  string
	Order int // display/sort rank
}

// Complete reports whether every required field is populated.
func (s Semester) Complete() bool {
	return s.ID != "" && s.Name != ""
}

// Course is a remote course together with its local sync policy.
// Abbrev and TypeAbbrev are user overrides; when empty, the deterministic
// abbreviation of Name/Type applies (see the pathgen package).
type Course struct {
	ID         string
	Semester   string // semester ID on write, semester name on full list reads
	Number     string
	Name       string
	Abbrev     string
	Type       string
	TypeAbbrev string
	Sync       SyncMode
}

// Complete reports whether every required field is populated.
func (c Course) Complete() bool {
	return c.ID != "" && c.Semester != "" && c.Name != "" && c.Type != ""
}

// File is a remote file's metadata row. Path is the logical folder path
// relative to the course root; it is resolved to a folder row on write.
// Version counts metadata-affecting updates and is never decremented.
type File struct {
	ID          string
	Course      string
	Path        []string
	Name        string
	Extension   string
	Author      string
	Description string
	RemoteDate  time.Time
	Copyrighted bool
	LocalDate   *time.Time // nil until the file has been downloaded once
	Version     int64

	// Denormalized course fields, populated on full list reads.
	CourseSemester   string
	CourseName       string
	CourseAbbrev     string
	CourseType       string
	CourseTypeAbbrev string
}

// Complete reports whether every required field is populated.
func (f File) Complete() bool {
	return f.ID != "" && f.Course != "" && f.Name != "" && !f.RemoteDate.IsZero()
}

// FolderParent identifies where a folder hangs: at the root of a course or
// under another folder. Exactly one alternative is set, mirroring the
// CHECK constraint on the folders table.
type FolderParent struct {
	course string
	folder int64
}

// RootOf returns the parent marker for a course root folder.
func RootOf(courseID string) FolderParent {
	return FolderParent{course: courseID}
}

// ChildOf returns the parent marker for a folder nested under another.
func ChildOf(folderID int64) FolderParent {
	return FolderParent{folder: folderID}
}

// IsRoot reports whether this is a course root marker.
func (p FolderParent) IsRoot() bool { return p.course != "" }

// Course returns the owning course ID for a root marker, or "".
func (p FolderParent) Course() string { return p.course }

// Folder returns the parent folder ID for a nested marker, or 0.
func (p FolderParent) Folder() int64 { return p.folder }

// Folder is a node in a course's directory tree. Root folders have an
// empty name; they contribute no path segment.
type Folder struct {
	ID     int64
	Name   string
	Parent FolderParent
}

// Complete reports whether the folder can be surfaced to consumers.
func (f Folder) Complete() bool {
	return f.ID != 0 && (f.Parent.IsRoot() || f.Name != "")
}

// DefaultFormat is the path template of the default view.
const DefaultFormat = "{course}/{type}/{short-path}/{name}{ext}"

// View is a named projection of the file set onto a directory layout.
type View struct {
	ID      int64
	Name    string
	Format  string
	Base    string // optional root directory override
	Escape  EscapeMode
	Charset Charset
}

// Complete reports whether every required field is populated.
func (v View) Complete() bool {
	return v.ID != 0 && v.Name != "" && v.Format != ""
}
