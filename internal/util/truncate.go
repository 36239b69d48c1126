package util

import "fmt"

// DefaultLogMaxLen caps model output echoed into run logs (1KB).
// Full answers are always written to answers.json; the log copy is
// diagnostic only.
const DefaultLogMaxLen = 1024

// TruncateLog truncates long strings for log output.
func TruncateLog(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	return s[:maxLen] + fmt.Sprintf("... [truncated, %d bytes total]", len(s))
}

// TruncateBytes truncates a byte slice with DefaultLogMaxLen.
func TruncateBytes(b []byte) string {
	return TruncateLog(string(b), DefaultLogMaxLen)
}
