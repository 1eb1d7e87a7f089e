package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/BebopxD/studip-client/internal/store"
)

// The update and download drivers consume already-parsed metadata records
// and already-fetched byte streams. The session module that logs in and
// scrapes Stud.IP produces these; for offline use the same documents can
// come from files: a JSON metadata feed and a directory of fetched files
// keyed by file id.

// feedDocument is the wire format of one sync cycle's full metadata feed.
type feedDocument struct {
	Semesters []feedSemester `json:"semesters"`
	Courses   []feedCourse   `json:"courses"`
	Files     []feedFile     `json:"files"`
}

type feedSemester struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Order int    `json:"order"`
}

type feedCourse struct {
	ID       string `json:"id"`
	Semester string `json:"semester"`
	Number   string `json:"number,omitempty"`
	Name     string `json:"name"`
	Type     string `json:"type,omitempty"`
}

type feedFile struct {
	ID          string    `json:"id"`
	Course      string    `json:"course"`
	Path        []string  `json:"path,omitempty"`
	Name        string    `json:"name"`
	Extension   string    `json:"extension,omitempty"`
	Author      string    `json:"author,omitempty"`
	Description string    `json:"description,omitempty"`
	RemoteDate  time.Time `json:"remote_date"`
	Copyrighted bool      `json:"copyrighted,omitempty"`
}

// feedSource adapts a JSON feed file to the syncer's metadata source.
type feedSource struct {
	path string
}

func (f feedSource) FetchMetadata(_ context.Context) (*store.ReplaceSet, error) {
	raw, err := os.ReadFile(f.path)
	if err != nil {
		return nil, fmt.Errorf("read metadata feed: %w", err)
	}

	var doc feedDocument
	if err := json.Unmarshal(raw, &doc); err != nil {
		return nil, fmt.Errorf("parse metadata feed %s: %w", f.path, err)
	}

	set := &store.ReplaceSet{}

	for _, s := range doc.Semesters {
		set.Semesters = append(set.Semesters, store.Semester{ID: s.ID, Name: s.Name, Order: s.Order})
	}

	for _, c := range doc.Courses {
		set.Courses = append(set.Courses, store.Course{
			ID: c.ID, Semester: c.Semester, Number: c.Number, Name: c.Name, Type: c.Type,
		})
	}

	for _, fl := range doc.Files {
		set.Files = append(set.Files, store.File{
			ID: fl.ID, Course: fl.Course, Path: fl.Path, Name: fl.Name,
			Extension: fl.Extension, Author: fl.Author, Description: fl.Description,
			RemoteDate: fl.RemoteDate, Copyrighted: fl.Copyrighted,
		})
	}

	return set, nil
}

// dirFetcher adapts a directory of already-fetched files, named by file
// id, to the syncer's byte-stream fetcher.
type dirFetcher struct {
	dir string
}

func (d dirFetcher) FetchFile(_ context.Context, fileID string) (io.ReadCloser, error) {
	f, err := os.Open(filepath.Join(d.dir, fileID))
	if err != nil {
		return nil, fmt.Errorf("open fetched file %s: %w", fileID, err)
	}

	return f, nil
}
