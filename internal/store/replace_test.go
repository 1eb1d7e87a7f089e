package store

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testReplaceSet() ReplaceSet {
	return ReplaceSet{
		Semesters: []Semester{
			{ID: "sem1", Name: "WS 2025/26", Order: 1},
		},
		Courses: []Course{
			{ID: "c1", Semester: "sem1", Name: "Analysis", Type: "Vorlesung"},
			{ID: "c2", Semester: "sem1", Name: "Compilerbau", Type: "Seminar"},
		},
		Files: []File{
			makeTestFile("f1", "c1", "skript", "Woche 1"),
			makeTestFile("f2", "c2", "paper"),
		},
		DefaultSync: SyncFull,
	}
}

func TestReplaceMetadata(t *testing.T) {
	t.Run("first sync populates everything", func(t *testing.T) {
		s := newTestStore(t)
		ctx := context.Background()

		stats, err := s.ReplaceMetadata(ctx, testReplaceSet())
		require.NoError(t, err)
		assert.Equal(t, 2, stats.CoursesAdded)
		assert.Equal(t, 2, stats.FilesAdded)
		assert.Zero(t, stats.CoursesRemoved)

		course, err := s.GetCourse(ctx, "c1")
		require.NoError(t, err)
		assert.Equal(t, SyncFull, course.Sync)

		file, err := s.GetFile(ctx, "f1")
		require.NoError(t, err)
		assert.Equal(t, []string{"Woche 1"}, file.Path)
	})

	t.Run("unchanged files keep version and checkouts", func(t *testing.T) {
		s := newTestStore(t)
		ctx := context.Background()

		_, err := s.ReplaceMetadata(ctx, testReplaceSet())
		require.NoError(t, err)

		view, err := s.GetViewByName(ctx, DefaultViewName)
		require.NoError(t, err)
		require.NoError(t, s.RecordCheckout(ctx, view.ID, "f1"))

		stats, err := s.ReplaceMetadata(ctx, testReplaceSet())
		require.NoError(t, err)
		assert.Equal(t, 2, stats.FilesUnchanged)
		assert.Zero(t, stats.FilesUpdated)

		file, err := s.GetFile(ctx, "f1")
		require.NoError(t, err)
		assert.Zero(t, file.Version)

		needed, err := s.NeedsCheckout(ctx, view.ID, "f1")
		require.NoError(t, err)
		assert.False(t, needed)
	})

	t.Run("folder names with slashes survive replay unchanged", func(t *testing.T) {
		s := newTestStore(t)
		ctx := context.Background()

		set := testReplaceSet()
		set.Files[0].Path = []string{"Analysis 1/2", "Woche 1"}

		_, err := s.ReplaceMetadata(ctx, set)
		require.NoError(t, err)

		file, err := s.GetFile(ctx, "f1")
		require.NoError(t, err)
		assert.Equal(t, []string{"Analysis 1/2", "Woche 1"}, file.Path)

		stats, err := s.ReplaceMetadata(ctx, set)
		require.NoError(t, err)
		assert.Equal(t, 2, stats.FilesUnchanged)
		assert.Zero(t, stats.FilesUpdated)

		file, err = s.GetFile(ctx, "f1")
		require.NoError(t, err)
		assert.Zero(t, file.Version)
	})

	t.Run("changed files are updated with a version bump", func(t *testing.T) {
		s := newTestStore(t)
		ctx := context.Background()

		_, err := s.ReplaceMetadata(ctx, testReplaceSet())
		require.NoError(t, err)

		set := testReplaceSet()
		set.Files[0].RemoteDate = set.Files[0].RemoteDate.Add(time.Hour)

		stats, err := s.ReplaceMetadata(ctx, set)
		require.NoError(t, err)
		assert.Equal(t, 1, stats.FilesUpdated)
		assert.Equal(t, 1, stats.FilesUnchanged)

		file, err := s.GetFile(ctx, "f1")
		require.NoError(t, err)
		assert.Equal(t, int64(1), file.Version)
	})

	t.Run("known courses keep local policy and overrides", func(t *testing.T) {
		s := newTestStore(t)
		ctx := context.Background()

		_, err := s.ReplaceMetadata(ctx, testReplaceSet())
		require.NoError(t, err)

		require.NoError(t, s.UpsertCourse(ctx, Course{
			ID: "c1", Semester: "sem1", Name: "Analysis", Type: "Vorlesung",
			Abbrev: "Ana", Sync: SyncMetadata,
		}))

		set := testReplaceSet()
		set.Courses[0].Name = "Analysis I"

		stats, err := s.ReplaceMetadata(ctx, set)
		require.NoError(t, err)
		assert.Equal(t, 2, stats.CoursesUpdated)

		course, err := s.GetCourse(ctx, "c1")
		require.NoError(t, err)
		assert.Equal(t, "Analysis I", course.Name)
		assert.Equal(t, SyncMetadata, course.Sync)
		assert.Equal(t, "Ana", course.Abbrev)
	})

	t.Run("unreported courses are retired with their files", func(t *testing.T) {
		s := newTestStore(t)
		ctx := context.Background()

		_, err := s.ReplaceMetadata(ctx, testReplaceSet())
		require.NoError(t, err)

		set := testReplaceSet()
		set.Courses = set.Courses[:1]
		set.Files = set.Files[:1]

		stats, err := s.ReplaceMetadata(ctx, set)
		require.NoError(t, err)
		assert.Equal(t, 1, stats.CoursesRemoved)

		_, err = s.GetCourse(ctx, "c2")
		assert.ErrorIs(t, err, ErrNotFound)

		_, err = s.GetFile(ctx, "f2")
		assert.ErrorIs(t, err, ErrNotFound)
	})

	t.Run("files of ignored courses are skipped", func(t *testing.T) {
		s := newTestStore(t)
		ctx := context.Background()

		set := testReplaceSet()
		set.DefaultSync = SyncNone

		stats, err := s.ReplaceMetadata(ctx, set)
		require.NoError(t, err)
		assert.Zero(t, stats.FilesAdded)

		ids, err := s.ListFileIDs(ctx, AllModes)
		require.NoError(t, err)
		assert.Empty(t, ids)
	})

	t.Run("a feed without sync seeds falls back to the default", func(t *testing.T) {
		s := newTestStore(t)
		ctx := context.Background()

		set := testReplaceSet()
		set.DefaultSync = SyncMetadata

		_, err := s.ReplaceMetadata(ctx, set)
		require.NoError(t, err)

		for _, id := range []string{"c1", "c2"} {
			course, err := s.GetCourse(ctx, id)
			require.NoError(t, err)
			assert.Equal(t, SyncMetadata, course.Sync)
		}
	})

	t.Run("per-course feed mode overrides the default", func(t *testing.T) {
		s := newTestStore(t)
		ctx := context.Background()

		set := testReplaceSet()
		set.DefaultSync = SyncNone
		set.Courses[0].Sync = SyncFull

		_, err := s.ReplaceMetadata(ctx, set)
		require.NoError(t, err)

		course, err := s.GetCourse(ctx, "c1")
		require.NoError(t, err)
		assert.Equal(t, SyncFull, course.Sync)

		ids, err := s.ListFileIDs(ctx, Modes(SyncFull))
		require.NoError(t, err)
		assert.Equal(t, []string{"f1"}, ids)
	})
}

func TestFileMetadataEqual(t *testing.T) {
	base := makeTestFile("f1", "c1", "skript", "Woche 1")

	t.Run("equal to itself", func(t *testing.T) {
		assert.True(t, fileMetadataEqual(base, base))
	})

	t.Run("local-only fields do not count", func(t *testing.T) {
		stored := base
		now := time.Now()
		stored.LocalDate = &now
		stored.Version = 7
		assert.True(t, fileMetadataEqual(stored, base))
	})

	t.Run("metadata fields count", func(t *testing.T) {
		changed := base
		changed.RemoteDate = base.RemoteDate.Add(time.Minute)
		assert.False(t, fileMetadataEqual(base, changed))

		changed = base
		changed.Path = []string{"Woche 2"}
		assert.False(t, fileMetadataEqual(base, changed))

		changed = base
		changed.Copyrighted = true
		assert.False(t, fileMetadataEqual(base, changed))
	})
}
