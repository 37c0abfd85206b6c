package logs

import "strings"

// SessionFilter returns a Match func that keeps entries belonging to the
// session whose ID starts with id. Console entries span several lines: the
// indented field lines follow the decision made for their header line.
func SessionFilter(id string) func(line string) bool {
	id = strings.ToLower(strings.TrimSpace(id))
	if len(id) > 8 {
		id = id[:8]
	}
	keep := false
	return func(line string) bool {
		if strings.HasPrefix(line, " ") {
			return keep
		}
		keep = id != "" && strings.Contains(strings.ToLower(line), id)
		return keep
	}
}
