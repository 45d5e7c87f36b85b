package loki

import (
	"fmt"
	"strings"
)

// LogQL builders for the query shapes the retriever needs. Queries are built
// here rather than at call sites so escaping stays in one place.

// escapeString escapes a literal for use inside a double-quoted LogQL string.
func escapeString(s string) string {
	s = strings.ReplaceAll(s, `\`, `\\`)
	s = strings.ReplaceAll(s, `"`, `\"`)
	return s
}

// FileQuery selects all streams for one log file.
func FileQuery(filename string) string {
	return fmt.Sprintf(`{filename=%q}`, filename)
}

// FileLevelQuery selects streams for one log file at a given detected level.
func FileLevelQuery(filename, level string) string {
	return fmt.Sprintf("{filename=%q} | detected_level = `%s`", filename, level)
}

// TextSearchQuery selects lines containing text, within one file when
// filename is non-empty, otherwise across every job. The backend requires at
// least one non-empty matcher, hence the job wildcard.
func TextSearchQuery(text, filename string) string {
	filter := fmt.Sprintf(`|= "%s"`, escapeString(text))
	if filename != "" {
		return FileQuery(filename) + " " + filter
	}
	return `{job=~".+"} ` + filter
}
