package domain

import (
	"time"
)

// ArchiveIDLayout formats archive identifiers so that plain string ordering
// matches creation order.
const ArchiveIDLayout = "2006-01-02_15:04:05"

// NewArchiveID returns the identifier for an archive created at t.
func NewArchiveID(t time.Time) string {
	return t.Format(ArchiveIDLayout)
}

// ArchiveTime parses an identifier in local time. Identifiers that do not
// parse report the zero Unix epoch and ok false.
func ArchiveTime(id string) (t time.Time, ok bool) {
	t, err := time.ParseInLocation(ArchiveIDLayout, id, time.Local)
	if err != nil {
		return time.Unix(0, 0), false
	}
	return t, true
}
