package pathgen

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestAbbreviateCourseName(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"word initials", "Einführung in die Informatik", "EidI"},
		{"numeric words kept whole", "Analysis 2", "A2"},
		{"single word unchanged", "Algorithmen", "Algorithmen"},
		{"empty", "", ""},
		{"extra whitespace", "  Lineare   Algebra ", "LA"},
		{"mixed numerals", "Mathematik für Informatiker 1", "MfI1"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, AbbreviateCourseName(tt.in))
		})
	}
}

func TestAbbreviateCourseType(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"known type", "Vorlesung", "V"},
		{"known type with umlaut", "Übung", "Ü"},
		{"combined type", "Vorlesung + Übung", "VÜ"},
		{"unknown type falls back to initial", "Blockkurs", "B"},
		{"lowercase initial is uppercased", "praktische Übung", "P"},
		{"empty", "", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, AbbreviateCourseType(tt.in))
		})
	}
}
