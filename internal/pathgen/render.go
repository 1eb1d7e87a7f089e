package pathgen

import (
	"strings"

	"github.com/BebopxD/studip-client/internal/store"
)

// Render expands a view's path template for a file and returns the
// resulting relative path. Placeholders are written {name}; unknown or
// empty placeholders expand to the empty string, never to an error. The
// view's escaping and charset policies apply to every substituted segment
// independently, never to literal template characters.
//
// Supported placeholders:
//
//	{semester}     semester name of the owning course
//	{course}       course abbreviation (override or derived from the name)
//	{course-name}  full course name
//	{type}         course type abbreviation (override or derived)
//	{type-name}    full course type
//	{path}         the file's folder path, verbatim
//	{short-path}   the folder path with each segment abbreviated
//	{name}         file name
//	{ext}          file extension including the leading dot, or ""
//	{author}       file author
//	{description}  file description
//
// The result is a pure function of (view, file): rendering twice yields
// identical output.
func Render(v store.View, f store.File) string {
	var b strings.Builder

	format := v.Format
	for len(format) > 0 {
		open := strings.IndexByte(format, '{')
		if open < 0 {
			b.WriteString(format)
			break
		}

		end := strings.IndexByte(format[open:], '}')
		if end < 0 {
			b.WriteString(format)
			break
		}

		b.WriteString(format[:open])

		key := format[open+1 : open+end]
		writeSegments(&b, expand(key, f), v)

		format = format[open+end+1:]
	}

	return collapseSeparators(b.String())
}

// RenderInto joins a rendered path onto the view's base directory, falling
// back to the given root when the view has no base override.
func RenderInto(root string, v store.View, f store.File) string {
	base := v.Base
	if base == "" {
		base = root
	}

	rendered := Render(v, f)
	if base == "" {
		return rendered
	}

	return strings.TrimRight(base, "/") + "/" + rendered
}

// expand resolves a placeholder to its path segments. Single-valued
// placeholders yield one segment; path placeholders yield one segment per
// folder level.
func expand(key string, f store.File) []string {
	switch key {
	case "semester":
		return []string{f.CourseSemester}
	case "course":
		return []string{courseAbbrev(f)}
	case "course-name":
		return []string{f.CourseName}
	case "type":
		return []string{typeAbbrev(f)}
	case "type-name":
		return []string{f.CourseType}
	case "path":
		return f.Path
	case "short-path":
		return shortPath(f.Path)
	case "name":
		return []string{f.Name}
	case "ext":
		if f.Extension == "" {
			return nil
		}

		return []string{"." + f.Extension}
	case "author":
		return []string{f.Author}
	case "description":
		return []string{f.Description}
	default:
		return nil
	}
}

func courseAbbrev(f store.File) string {
	if f.CourseAbbrev != "" {
		return f.CourseAbbrev
	}

	return AbbreviateCourseName(f.CourseName)
}

func typeAbbrev(f store.File) string {
	if f.CourseTypeAbbrev != "" {
		return f.CourseTypeAbbrev
	}

	return AbbreviateCourseType(f.CourseType)
}

func shortPath(path []string) []string {
	out := make([]string, len(path))
	for i, seg := range path {
		out[i] = abbreviateSegment(seg)
	}

	return out
}

// writeSegments escapes each expanded segment and writes them joined by
// the path separator.
func writeSegments(b *strings.Builder, segments []string, v store.View) {
	for i, seg := range segments {
		if i > 0 {
			b.WriteByte('/')
		}

		b.WriteString(EscapeSegment(seg, v.Escape, v.Charset))
	}
}

// collapseSeparators removes empty path elements left by placeholders that
// expanded to nothing, e.g. "course/type//name" for a file at the course
// root, and trims leading and trailing separators.
func collapseSeparators(p string) string {
	for strings.Contains(p, "//") {
		p = strings.ReplaceAll(p, "//", "/")
	}

	return strings.Trim(p, "/")
}
