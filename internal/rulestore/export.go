package rulestore

import "bytes"

// DefaultExportCap bounds the formatted export served through the
// byte-stream surface. Content beyond the cap is truncated at a line
// boundary and flagged, never overflowed.
const DefaultExportCap = 64 * 1024

// Export serializes rules as one rule per line, newline terminated, no
// uid prefix. uid selects a single user's rules; SentinelUID exports the
// whole store in uid-ascending order. The boolean reports truncation.
func Export(s *Store, uid uint32, limit int) ([]byte, bool) {
	if limit <= 0 {
		limit = DefaultExportCap
	}

	var buf bytes.Buffer
	truncated := false

	appendLine := func(rule string) bool {
		if buf.Len()+len(rule)+1 > limit {
			truncated = true
			return false
		}
		buf.WriteString(rule)
		buf.WriteByte('\n')
		return true
	}

	if uid == SentinelUID {
		for _, rule := range s.All() {
			if !appendLine(rule) {
				break
			}
		}
	} else {
		for _, rule := range s.Rules(uid) {
			if !appendLine(rule) {
				break
			}
		}
	}

	return buf.Bytes(), truncated
}
