package tool

import (
	"time"

	"github.com/google/uuid"
)

func GenerateUUIDV7() string {
	return uuid.Must(uuid.NewV7()).String()
}

// MaxTime returns the later of a and b.
func MaxTime(a, b time.Time) time.Time {
	if a.After(b) {
		return a
	}
	return b
}

// TruncateMillis drops sub-millisecond precision so values round-trip
// through postgres timestamps unchanged.
func TruncateMillis(t time.Time) time.Time {
	return t.Truncate(time.Millisecond)
}
