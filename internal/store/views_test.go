package store

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCreateView(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	t.Run("create and read back", func(t *testing.T) {
		id, err := s.CreateView(ctx, View{
			Name:    "flat",
			Format:  "{course}/{name}{ext}",
			Base:    "/mnt/archive",
			Escape:  EscapeReject,
			Charset: CharsetASCII,
		})
		require.NoError(t, err)

		got, err := s.GetView(ctx, id)
		require.NoError(t, err)
		assert.Equal(t, "flat", got.Name)
		assert.Equal(t, "{course}/{name}{ext}", got.Format)
		assert.Equal(t, "/mnt/archive", got.Base)
		assert.Equal(t, EscapeReject, got.Escape)
		assert.Equal(t, CharsetASCII, got.Charset)
	})

	t.Run("duplicate name is rejected", func(t *testing.T) {
		_, err := s.CreateView(ctx, View{Name: "flat", Format: "{name}"})
		assert.Error(t, err)
	})
}

func TestRemoveView(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	seedCourse(t, s, "c1", SyncFull)
	require.NoError(t, s.InsertFile(ctx, makeTestFile("f1", "c1", "notes")))

	t.Run("removes the view and its checkouts", func(t *testing.T) {
		id, err := s.CreateView(ctx, View{Name: "flat", Format: "{name}"})
		require.NoError(t, err)
		require.NoError(t, s.RecordCheckout(ctx, id, "f1"))

		require.NoError(t, s.RemoveView(ctx, id))

		_, err = s.GetView(ctx, id)
		assert.ErrorIs(t, err, ErrNotFound)

		checkouts, err := s.Checkouts(ctx, id)
		require.NoError(t, err)
		assert.Empty(t, checkouts)
	})

	t.Run("the default view cannot be removed", func(t *testing.T) {
		view, err := s.GetViewByName(ctx, DefaultViewName)
		require.NoError(t, err)

		require.NoError(t, s.RemoveView(ctx, view.ID))

		_, err = s.GetViewByName(ctx, DefaultViewName)
		assert.NoError(t, err)
	})

	t.Run("removing a missing id is a no-op", func(t *testing.T) {
		assert.NoError(t, s.RemoveView(ctx, 9999))
	})
}

func TestCheckouts(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	seedCourse(t, s, "c1", SyncFull)
	require.NoError(t, s.InsertFile(ctx, makeTestFile("f1", "c1", "a")))
	require.NoError(t, s.InsertFile(ctx, makeTestFile("f2", "c1", "b")))

	view, err := s.GetViewByName(ctx, DefaultViewName)
	require.NoError(t, err)

	t.Run("needs checkout until recorded", func(t *testing.T) {
		needed, err := s.NeedsCheckout(ctx, view.ID, "f1")
		require.NoError(t, err)
		assert.True(t, needed)

		require.NoError(t, s.RecordCheckout(ctx, view.ID, "f1"))

		needed, err = s.NeedsCheckout(ctx, view.ID, "f1")
		require.NoError(t, err)
		assert.False(t, needed)
	})

	t.Run("recording twice is a no-op", func(t *testing.T) {
		require.NoError(t, s.RecordCheckout(ctx, view.ID, "f1"))

		checkouts, err := s.Checkouts(ctx, view.ID)
		require.NoError(t, err)
		assert.Equal(t, []string{"f1"}, checkouts)
	})

	t.Run("checkouts are per view", func(t *testing.T) {
		other, err := s.CreateView(ctx, View{Name: "flat", Format: "{name}"})
		require.NoError(t, err)

		needed, err := s.NeedsCheckout(ctx, other, "f1")
		require.NoError(t, err)
		assert.True(t, needed)
	})

	t.Run("reset drops every checkout of the view", func(t *testing.T) {
		require.NoError(t, s.RecordCheckout(ctx, view.ID, "f2"))
		require.NoError(t, s.ResetCheckouts(ctx, view.ID))

		checkouts, err := s.Checkouts(ctx, view.ID)
		require.NoError(t, err)
		assert.Empty(t, checkouts)
	})
}
