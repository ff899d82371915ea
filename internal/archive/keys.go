package archive

import (
	"fmt"
	"strings"
	"time"
)

// ManualReviewFolder is the triage prefix for recordings whose topic could
// not be classified.
const ManualReviewFolder = "to_process_manually"

const (
	dateLayout      = "2006-01-02"
	timestampLayout = "20060102T150405"
)

// KeyBuilder computes deterministic storage addresses for archive units.
// All date and timestamp tokens use the single configured location so the
// directory date and the file-name timestamp never disagree.
type KeyBuilder struct {
	loc *time.Location
}

// NewKeyBuilder creates a key builder. A nil location means UTC.
func NewKeyBuilder(loc *time.Location) *KeyBuilder {
	if loc == nil {
		loc = time.UTC
	}
	return &KeyBuilder{loc: loc}
}

// LessonPrefix returns the canonical prefix for a classified recording:
// cohort_{cohort}/{module}/{type}/{lesson}/ with the meeting's calendar date
// standing in for an absent lesson id. Exactly one trailing slash.
func (b *KeyBuilder) LessonPrefix(cohortID, module, lessonType, lessonID string, startedAt time.Time) string {
	lessonKey := lessonID
	if lessonKey == "" {
		lessonKey = startedAt.In(b.loc).Format(dateLayout)
	}
	return fmt.Sprintf("cohort_%s/%s/%s/%s/", cohortID, module, lessonType, lessonKey)
}

// ManualReviewKey returns the triage directory and file-name prefix for an
// unclassified recording. The directory is keyed by date and lowercased host
// email; the file name carries a sortable timestamp, the numeric meeting id
// and the sanitized raw topic, with trailing sanitization underscores
// trimmed.
func (b *KeyBuilder) ManualReviewKey(startedAt time.Time, hostEmail string, meetingID int64, rawTopic string) (dir, filePrefix string) {
	t := startedAt.In(b.loc)
	dir = fmt.Sprintf("%s/%s/%s/", ManualReviewFolder, t.Format(dateLayout), strings.ToLower(hostEmail))
	filePrefix = fmt.Sprintf("%s_%d_%s", t.Format(timestampLayout), meetingID, Sanitize(rawTopic))
	filePrefix = strings.TrimRight(filePrefix, "_")
	return dir, filePrefix
}

// FileBase returns the base object name for files of a classified unit:
// {timestamp}_{meetingID}.
func (b *KeyBuilder) FileBase(startedAt time.Time, meetingID int64) string {
	return fmt.Sprintf("%s_%d", startedAt.In(b.loc).Format(timestampLayout), meetingID)
}

// FileName composes the object name for one file of a unit. Multi-file
// recordings carry a _partN suffix so the grouper can restore ordering;
// single files stay unsuffixed.
func (b *KeyBuilder) FileName(base, ext string, position, total int) string {
	if ext != "" && !strings.HasPrefix(ext, ".") {
		ext = "." + ext
	}
	if total > 1 {
		return fmt.Sprintf("%s_part%d%s", base, position, ext)
	}
	return base + ext
}

// Sanitize replaces every character that is not an ASCII letter, digit or one
// of . _ * ' ( ) ! - with an underscore. Applied to free text embedded in
// keys, never to the template's own path separators.
func Sanitize(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	for _, r := range s {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9':
			b.WriteRune(r)
		case strings.ContainsRune("._*'()!-", r):
			b.WriteRune(r)
		default:
			b.WriteByte('_')
		}
	}
	return b.String()
}
