package store

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestResolveFolder(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	seedCourse(t, s, "c1", SyncFull)

	t.Run("empty path resolves the course root", func(t *testing.T) {
		root, err := s.ResolveFolder(ctx, "c1", nil)
		require.NoError(t, err)
		assert.NotZero(t, root)

		folder, err := s.GetFolder(ctx, root)
		require.NoError(t, err)
		assert.True(t, folder.Parent.IsRoot())
		assert.Equal(t, "c1", folder.Parent.Course())
		assert.Empty(t, folder.Name)
	})

	t.Run("resolution is idempotent", func(t *testing.T) {
		first, err := s.ResolveFolder(ctx, "c1", []string{"Vorlesung", "Woche 1"})
		require.NoError(t, err)

		second, err := s.ResolveFolder(ctx, "c1", []string{"Vorlesung", "Woche 1"})
		require.NoError(t, err)
		assert.Equal(t, first, second)
	})

	t.Run("siblings get distinct folders", func(t *testing.T) {
		a, err := s.ResolveFolder(ctx, "c1", []string{"Vorlesung", "Woche 1"})
		require.NoError(t, err)

		b, err := s.ResolveFolder(ctx, "c1", []string{"Vorlesung", "Woche 2"})
		require.NoError(t, err)
		assert.NotEqual(t, a, b)

		// Both hang off the same parent.
		fa, err := s.GetFolder(ctx, a)
		require.NoError(t, err)
		fb, err := s.GetFolder(ctx, b)
		require.NoError(t, err)
		assert.Equal(t, fa.Parent.Folder(), fb.Parent.Folder())
	})

	t.Run("same path under another course is a different tree", func(t *testing.T) {
		require.NoError(t, s.UpsertCourse(ctx, Course{
			ID: "c2", Semester: "sem1", Name: "Analysis", Type: "Vorlesung", Sync: SyncFull,
		}))

		a, err := s.ResolveFolder(ctx, "c1", []string{"Material"})
		require.NoError(t, err)

		b, err := s.ResolveFolder(ctx, "c2", []string{"Material"})
		require.NoError(t, err)
		assert.NotEqual(t, a, b)
	})

	t.Run("unknown course fails the foreign key", func(t *testing.T) {
		_, err := s.ResolveFolder(ctx, "missing", []string{"x"})
		assert.Error(t, err)
	})
}

func TestGetFolder(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	seedCourse(t, s, "c1", SyncFull)

	t.Run("nested folder carries its name and parent", func(t *testing.T) {
		id, err := s.ResolveFolder(ctx, "c1", []string{"Skripte"})
		require.NoError(t, err)

		folder, err := s.GetFolder(ctx, id)
		require.NoError(t, err)
		assert.Equal(t, "Skripte", folder.Name)
		assert.False(t, folder.Parent.IsRoot())
		assert.NotZero(t, folder.Parent.Folder())
		assert.True(t, folder.Complete())
	})

	t.Run("not found", func(t *testing.T) {
		_, err := s.GetFolder(ctx, 9999)
		assert.ErrorIs(t, err, ErrNotFound)
	})
}
