package store

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInsertFile(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	seedCourse(t, s, "c1", SyncFull)

	t.Run("insert and read back the projection", func(t *testing.T) {
		f := makeTestFile("f1", "c1", "skript", "Vorlesung", "Woche 1")
		f.Description = "Foliensatz"
		require.NoError(t, s.InsertFile(ctx, f))

		got, err := s.GetFile(ctx, "f1")
		require.NoError(t, err)
		assert.Equal(t, "skript", got.Name)
		assert.Equal(t, "pdf", got.Extension)
		assert.Equal(t, []string{"Vorlesung", "Woche 1"}, got.Path)
		assert.Equal(t, "Foliensatz", got.Description)
		assert.True(t, got.RemoteDate.Equal(f.RemoteDate))
		assert.Nil(t, got.LocalDate)
		assert.Zero(t, got.Version)

		// Denormalized course fields come along.
		assert.Equal(t, "c1", got.Course)
		assert.Equal(t, "WS 2025/26", got.CourseSemester)
		assert.Equal(t, "Einführung in die Informatik", got.CourseName)
		assert.Equal(t, "Vorlesung", got.CourseType)
	})

	t.Run("folder names containing slashes round-trip intact", func(t *testing.T) {
		require.NoError(t, s.InsertFile(ctx, makeTestFile("f3", "c1", "klausur", "Analysis 1/2")))

		got, err := s.GetFile(ctx, "f3")
		require.NoError(t, err)
		assert.Equal(t, []string{"Analysis 1/2"}, got.Path)
	})

	t.Run("file at the course root has an empty path", func(t *testing.T) {
		require.NoError(t, s.InsertFile(ctx, makeTestFile("f2", "c1", "syllabus")))

		got, err := s.GetFile(ctx, "f2")
		require.NoError(t, err)
		assert.Empty(t, got.Path)
	})
}

func TestUpdateFile(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	seedCourse(t, s, "c1", SyncFull)
	require.NoError(t, s.InsertFile(ctx, makeTestFile("f1", "c1", "skript", "Woche 1")))

	view, err := s.GetViewByName(ctx, DefaultViewName)
	require.NoError(t, err)

	t.Run("bumps the version by exactly one", func(t *testing.T) {
		f := makeTestFile("f1", "c1", "skript-v2", "Woche 1")
		require.NoError(t, s.UpdateFile(ctx, f))

		got, err := s.GetFile(ctx, "f1")
		require.NoError(t, err)
		assert.Equal(t, "skript-v2", got.Name)
		assert.Equal(t, int64(1), got.Version)

		require.NoError(t, s.UpdateFile(ctx, f))
		got, err = s.GetFile(ctx, "f1")
		require.NoError(t, err)
		assert.Equal(t, int64(2), got.Version)
	})

	t.Run("clears checkouts of the file", func(t *testing.T) {
		require.NoError(t, s.RecordCheckout(ctx, view.ID, "f1"))

		needed, err := s.NeedsCheckout(ctx, view.ID, "f1")
		require.NoError(t, err)
		require.False(t, needed)

		require.NoError(t, s.UpdateFile(ctx, makeTestFile("f1", "c1", "skript-v3", "Woche 1")))

		needed, err = s.NeedsCheckout(ctx, view.ID, "f1")
		require.NoError(t, err)
		assert.True(t, needed)
	})

	t.Run("moves the file when the path changes", func(t *testing.T) {
		require.NoError(t, s.UpdateFile(ctx, makeTestFile("f1", "c1", "skript-v3", "Woche 2")))

		got, err := s.GetFile(ctx, "f1")
		require.NoError(t, err)
		assert.Equal(t, []string{"Woche 2"}, got.Path)
	})

	t.Run("unknown file", func(t *testing.T) {
		err := s.UpdateFile(ctx, makeTestFile("missing", "c1", "x"))
		assert.ErrorIs(t, err, ErrNotFound)
	})
}

func TestUpsertFile(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	seedCourse(t, s, "c1", SyncFull)

	f := makeTestFile("f1", "c1", "notes")

	require.NoError(t, s.UpsertFile(ctx, f))
	got, err := s.GetFile(ctx, "f1")
	require.NoError(t, err)
	assert.Zero(t, got.Version)

	require.NoError(t, s.UpsertFile(ctx, f))
	got, err = s.GetFile(ctx, "f1")
	require.NoError(t, err)
	assert.Equal(t, int64(1), got.Version)
}

func TestSetLocalDate(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	seedCourse(t, s, "c1", SyncFull)
	require.NoError(t, s.InsertFile(ctx, makeTestFile("f1", "c1", "notes")))

	view, err := s.GetViewByName(ctx, DefaultViewName)
	require.NoError(t, err)
	require.NoError(t, s.RecordCheckout(ctx, view.ID, "f1"))

	t.Run("records the download time without side effects", func(t *testing.T) {
		when := time.Date(2025, 11, 2, 9, 30, 0, 0, time.UTC)
		require.NoError(t, s.SetLocalDate(ctx, "f1", when))

		got, err := s.GetFile(ctx, "f1")
		require.NoError(t, err)
		require.NotNil(t, got.LocalDate)
		assert.True(t, got.LocalDate.Equal(when))

		// A local-date write is not a metadata change.
		assert.Zero(t, got.Version)

		needed, err := s.NeedsCheckout(ctx, view.ID, "f1")
		require.NoError(t, err)
		assert.False(t, needed)
	})

	t.Run("unknown file", func(t *testing.T) {
		err := s.SetLocalDate(ctx, "missing", time.Now())
		assert.ErrorIs(t, err, ErrNotFound)
	})
}

func TestListFiles(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, s.ReplaceSemesters(ctx, []Semester{
		{ID: "sem1", Name: "WS 2025/26", Order: 1},
	}))
	for _, c := range []Course{
		{ID: "full", Semester: "sem1", Name: "Analysis", Type: "Vorlesung", Sync: SyncFull},
		{ID: "meta", Semester: "sem1", Name: "Compilerbau", Type: "Seminar", Sync: SyncMetadata},
		{ID: "none", Semester: "sem1", Name: "Betriebssysteme", Type: "Übung", Sync: SyncNone},
	} {
		require.NoError(t, s.UpsertCourse(ctx, c))
	}

	require.NoError(t, s.InsertFile(ctx, makeTestFile("f1", "full", "a")))
	require.NoError(t, s.InsertFile(ctx, makeTestFile("f2", "meta", "b")))
	require.NoError(t, s.InsertFile(ctx, makeTestFile("f3", "none", "c")))
	require.NoError(t, s.InsertFile(ctx, makeTestFile("f4", "full", "d")))

	t.Run("filters by course sync mode", func(t *testing.T) {
		ids, err := s.ListFileIDs(ctx, Modes(SyncFull))
		require.NoError(t, err)
		assert.Equal(t, []string{"f1", "f4"}, ids)

		ids, err = s.ListFileIDs(ctx, Modes(SyncFull, SyncMetadata))
		require.NoError(t, err)
		assert.Equal(t, []string{"f1", "f2", "f4"}, ids)
	})

	t.Run("insertion order is stable", func(t *testing.T) {
		files, err := s.ListFiles(ctx, AllModes)
		require.NoError(t, err)
		require.Len(t, files, 4)
		assert.Equal(t, "f1", files[0].ID)
		assert.Equal(t, "f4", files[3].ID)
	})
}
