package archive

import (
	"regexp"
	"sort"
	"strconv"
	"strings"

	"go.uber.org/zap"
)

// GroupKey identifies one logical lesson recording within the archive
// hierarchy. LessonKey is a lesson id or, when the lesson was keyed by date,
// a calendar date.
type GroupKey struct {
	Cohort     string `json:"cohort"`
	Module     string `json:"module"`
	LessonType string `json:"lesson_type"`
	LessonKey  string `json:"lesson_key"`
}

var partSuffixRe = regexp.MustCompile(`_part(\d+)(\.[^.]*)?$`)

// Grouper reconstructs logical lesson recordings from flat storage paths.
// Grouping is purely structural; file contents are never inspected.
type Grouper struct {
	logger *zap.Logger
}

// NewGrouper creates a grouper.
func NewGrouper(logger *zap.Logger) *Grouper {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Grouper{logger: logger}
}

// Group maps each path to the group encoded in its first four path segments
// and orders the group's paths by the _partN suffix of the file name (absent
// suffix means part 0). Duplicate part indices and index gaps are anomalies:
// they are logged, and the ordering falls back to a stable sort so no path is
// dropped.
func (g *Grouper) Group(paths []string) map[GroupKey][]string {
	type entry struct {
		path string
		part int
	}
	groups := make(map[GroupKey][]entry)
	for _, p := range paths {
		segments := strings.Split(p, "/")
		if len(segments) < 5 {
			g.logger.Warn("storage path too short to group", zap.String("path", p))
			continue
		}
		key := GroupKey{
			Cohort:     segments[0],
			Module:     segments[1],
			LessonType: segments[2],
			LessonKey:  segments[3],
		}
		part := 0
		if m := partSuffixRe.FindStringSubmatch(segments[len(segments)-1]); m != nil {
			part, _ = strconv.Atoi(m[1])
		}
		groups[key] = append(groups[key], entry{path: p, part: part})
	}

	out := make(map[GroupKey][]string, len(groups))
	for key, entries := range groups {
		sort.SliceStable(entries, func(i, j int) bool { return entries[i].part < entries[j].part })

		seen := make(map[int]struct{}, len(entries))
		maxPart := 0
		ordered := make([]string, 0, len(entries))
		for _, e := range entries {
			if _, dup := seen[e.part]; dup {
				g.logger.Warn("duplicate part index in recording group",
					zap.Int("part", e.part),
					zap.String("cohort", key.Cohort),
					zap.String("lesson_key", key.LessonKey),
				)
			}
			seen[e.part] = struct{}{}
			if e.part > maxPart {
				maxPart = e.part
			}
			ordered = append(ordered, e.path)
		}
		if maxPart >= len(seen) {
			g.logger.Warn("gap in recording part indices",
				zap.Int("max_part", maxPart),
				zap.Int("distinct_parts", len(seen)),
				zap.String("cohort", key.Cohort),
				zap.String("lesson_key", key.LessonKey),
			)
		}
		out[key] = ordered
	}
	return out
}
