package store

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestReplaceSemesters(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	t.Run("insert and list in rank order", func(t *testing.T) {
		require.NoError(t, s.ReplaceSemesters(ctx, []Semester{
			{ID: "ss25", Name: "SS 2025", Order: 2},
			{ID: "ws24", Name: "WS 2024/25", Order: 1},
		}))

		got, err := s.ListSemesters(ctx)
		require.NoError(t, err)
		require.Len(t, got, 2)
		assert.Equal(t, "WS 2024/25", got[0].Name)
		assert.Equal(t, "SS 2025", got[1].Name)
	})

	t.Run("replay updates in place", func(t *testing.T) {
		require.NoError(t, s.ReplaceSemesters(ctx, []Semester{
			{ID: "ss25", Name: "Sommersemester 2025", Order: 2},
		}))

		got, err := s.ListSemesters(ctx)
		require.NoError(t, err)
		require.Len(t, got, 2)
		assert.Equal(t, "Sommersemester 2025", got[1].Name)
	})
}
