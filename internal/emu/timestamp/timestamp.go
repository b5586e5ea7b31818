// Package timestamp formats the local-time stamps used for process creation,
// log entries, and termination records (spec.md §6).
package timestamp

import "time"

// Layout is the exact literal format: (MM/DD/YYYY HH:MM:SSAM/PM).
const Layout = "(01/02/2006 03:04:05PM)"

// Now formats the current local time.
func Now() string {
	return Format(time.Now())
}

// Format renders t in the emulator's canonical timestamp layout.
func Format(t time.Time) string {
	return t.Local().Format(Layout)
}
