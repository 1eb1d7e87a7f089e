// Package pathgen renders a file's projected on-disk path for a view:
// it expands the view's path template, abbreviates course names and types,
// and applies the view's escaping and character-set policies to every
// substituted segment. Rendering is a pure function of (view, file).
package pathgen

import (
	"strings"
	"unicode"
)

// courseTypeAbbrevs maps well-known course types to their conventional
// short forms. Unknown types fall back to their initial letter.
var courseTypeAbbrevs = map[string]string{
	"Vorlesung":           "V",
	"Übung":               "Ü",
	"Vorlesung + Übung":   "VÜ",
	"Seminar":             "S",
	"Proseminar":          "PS",
	"Hauptseminar":        "HS",
	"Praktikum":           "P",
	"Tutorium":            "T",
	"Kolloquium":          "K",
	"Arbeitsgemeinschaft": "AG",
}

// AbbreviateCourseName derives a short tag from a course name: the initial
// of every word, with purely numeric words kept whole. A single-word name
// is returned unchanged.
//
//	"Einführung in die Informatik"  -> "EidI"
//	"Analysis 2"                    -> "A2"
//	"Algorithmen"                   -> "Algorithmen"
func AbbreviateCourseName(name string) string {
	words := strings.Fields(name)
	if len(words) <= 1 {
		return name
	}

	var b strings.Builder

	for _, w := range words {
		if isNumeric(w) {
			b.WriteString(w)
			continue
		}

		for _, r := range w {
			b.WriteRune(r)
			break
		}
	}

	return b.String()
}

// AbbreviateCourseType maps a course type to its short form.
func AbbreviateCourseType(courseType string) string {
	if abbrev, ok := courseTypeAbbrevs[courseType]; ok {
		return abbrev
	}

	for _, r := range courseType {
		return string(unicode.ToUpper(r))
	}

	return ""
}

// abbreviateSegment shortens one folder name for the {short-path}
// placeholder using the course-name rule.
func abbreviateSegment(name string) string {
	return AbbreviateCourseName(name)
}

func isNumeric(s string) bool {
	for _, r := range s {
		if !unicode.IsDigit(r) {
			return false
		}
	}

	return s != ""
}
