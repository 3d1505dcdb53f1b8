package hub

import (
	"regexp"
)

var mentionPattern = regexp.MustCompile(`@([A-Za-z0-9_]+)`)

// parseMentions extracts the unique @username tokens from text content,
// preserving first-occurrence order.
func parseMentions(content string) []string {
	matches := mentionPattern.FindAllStringSubmatch(content, -1)
	if len(matches) == 0 {
		return nil
	}

	seen := make(map[string]struct{}, len(matches))
	names := make([]string, 0, len(matches))
	for _, m := range matches {
		name := m[1]
		if _, ok := seen[name]; ok {
			continue
		}
		seen[name] = struct{}{}
		names = append(names, name)
	}
	return names
}
