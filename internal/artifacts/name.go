package artifacts

import (
	"fmt"
	"regexp"
	"strings"
	"time"
)

// TimestampLayout is the fixed-width, sortable timestamp embedded in artifact names.
const TimestampLayout = "20060102150405"

// Extension is the artifact file suffix.
const Extension = ".json"

var unsafeChars = strings.NewReplacer(
	"<", "_", ">", "_", ":", "_", `"`, "_", "/", "_",
	`\`, "_", "|", "_", "?", "_", "*", "_", " ", "_",
)

var (
	timestampSuffix = regexp.MustCompile(`_(\d{14})\.json$`)
	timestampOnly   = regexp.MustCompile(`^\d{14}\.json$`)
)

// Sanitize maps filesystem-unsafe characters and spaces to underscores.
func Sanitize(subject string) string {
	return unsafeChars.Replace(subject)
}

// FileName builds "{sanitized_subject}_{endpoint}_{yyyyMMddHHmmss}.json".
// The timestamp is written in local time, the zone ParseTimestamp reads.
func FileName(subject, endpoint string, at time.Time) string {
	return fmt.Sprintf("%s_%s_%s%s", Sanitize(subject), endpoint, at.In(time.Local).Format(TimestampLayout), Extension)
}

// ParseTimestamp extracts the creation time from an artifact name.
// Names without a well-formed timestamp suffix return ok=false.
func ParseTimestamp(name string) (time.Time, bool) {
	m := timestampSuffix.FindStringSubmatch(name)
	if m == nil {
		return time.Time{}, false
	}
	ts, err := time.ParseInLocation(TimestampLayout, m[1], time.Local)
	if err != nil {
		return time.Time{}, false
	}
	return ts, true
}

// matches reports whether name is exactly
// "{sanitizedSubject}_{endpoint}_{yyyyMMddHHmmss}.json".
func matches(name, sanitizedSubject, endpoint string) bool {
	rest, ok := strings.CutPrefix(name, sanitizedSubject+"_"+endpoint+"_")
	return ok && timestampOnly.MatchString(rest)
}
