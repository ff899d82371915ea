// Package topic extracts classification metadata from free-text meeting
// topics. Teachers schedule lessons with a lightweight key:value micro-syntax
// in the meeting title, e.g.
//
//	{cohort: ["25","26"], module: "basic_programming", type: "lecture", lesson: "lesson26", topic: "Hello, World!!!"}
//
// The format is typed by hand, so malformed input is an expected case rather
// than an error: anything that does not carry the required keys is reported
// as unparsed and routed to manual triage by the caller.
package topic

import "strings"

// Metadata is the classification extracted from a meeting topic.
type Metadata struct {
	// CohortIDs holds the cohorts the recording belongs to, in declaration
	// order with exact repeats removed. Always non-empty for a parsed topic.
	CohortIDs    []string
	Module       string
	LessonType   string
	LessonID     string // optional; empty means the lesson is keyed by date
	DisplayTopic string // optional free-text title
}

// Parse extracts metadata from a meeting topic. ok is false when the text
// does not carry non-empty cohort, module and type values; the caller keeps
// the raw text in that case. Parse never fails on malformed input.
func Parse(text string) (Metadata, bool) {
	s := strings.TrimSpace(text)
	if strings.HasPrefix(s, "{") && strings.HasSuffix(s, "}") {
		s = s[1 : len(s)-1]
	}

	var meta Metadata
	for _, pair := range splitTop(s, ',') {
		key, value, found := strings.Cut(pair, ":")
		if !found {
			continue
		}
		value = strings.TrimSpace(value)
		switch strings.ToLower(strings.TrimSpace(key)) {
		case "cohort":
			meta.CohortIDs = parseCohorts(value)
		case "module":
			meta.Module = unquote(value)
		case "type":
			meta.LessonType = unquote(value)
		case "lesson":
			meta.LessonID = unquote(value)
		case "topic":
			meta.DisplayTopic = unquote(value)
		}
	}

	if len(meta.CohortIDs) == 0 || meta.Module == "" || meta.LessonType == "" {
		return Metadata{}, false
	}
	return meta, true
}

// parseCohorts accepts either a bracketed list of quoted values or a single
// bare value (treated as a one-element list). Declaration order is preserved;
// exact repeats are dropped.
func parseCohorts(value string) []string {
	var raw []string
	if strings.HasPrefix(value, "[") && strings.HasSuffix(value, "]") {
		raw = splitTop(value[1:len(value)-1], ',')
	} else {
		raw = []string{value}
	}

	seen := make(map[string]struct{}, len(raw))
	var ids []string
	for _, r := range raw {
		id := unquote(r)
		if id == "" {
			continue
		}
		if _, dup := seen[id]; dup {
			continue
		}
		seen[id] = struct{}{}
		ids = append(ids, id)
	}
	return ids
}

// splitTop splits s on sep at nesting depth zero: separators inside brackets
// or quotes belong to the value and are kept.
func splitTop(s string, sep rune) []string {
	var parts []string
	var b strings.Builder
	depth := 0
	var quote rune
	for _, r := range s {
		switch {
		case quote != 0:
			if r == quote {
				quote = 0
			}
			b.WriteRune(r)
		case r == '"' || r == '\'':
			quote = r
			b.WriteRune(r)
		case r == '[':
			depth++
			b.WriteRune(r)
		case r == ']':
			if depth > 0 {
				depth--
			}
			b.WriteRune(r)
		case r == sep && depth == 0:
			parts = append(parts, b.String())
			b.Reset()
		default:
			b.WriteRune(r)
		}
	}
	parts = append(parts, b.String())
	return parts
}

func unquote(s string) string {
	s = strings.TrimSpace(s)
	if len(s) >= 2 {
		if (s[0] == '"' && s[len(s)-1] == '"') || (s[0] == '\'' && s[len(s)-1] == '\'') {
			s = s[1 : len(s)-1]
		}
	}
	return strings.TrimSpace(s)
}
