package strata

import "strings"

// flattenTree converts a nested map[string]any into a flat map keyed by
// dot-separated paths. Codecs decode into trees; the rest of the pipeline
// works on flat paths.
func flattenTree(nested map[string]any, prefix string) map[string]any {
	flat := make(map[string]any)
	for key, value := range nested {
		path := key
		if prefix != "" {
			path = prefix + "." + key
		}
		if subTree, isMap := value.(map[string]any); isMap {
			for subPath, subValue := range flattenTree(subTree, path) {
				flat[subPath] = subValue
			}
		} else {
			flat[path] = value
		}
	}
	return flat
}

// setTreeValue writes a value into a nested map at a dot-separated path,
// creating intermediate maps as needed. A non-map intermediate is replaced.
func setTreeValue(nested map[string]any, path string, value any) {
	segments := strings.Split(path, ".")
	current := nested
	for _, segment := range segments[:len(segments)-1] {
		next, exists := current[segment]
		if !exists {
			child := make(map[string]any)
			current[segment] = child
			current = child
			continue
		}
		if child, isMap := next.(map[string]any); isMap {
			current = child
		} else {
			child := make(map[string]any)
			current[segment] = child
			current = child
		}
	}
	current[segments[len(segments)-1]] = value
}

// isValidKeySegment reports whether a single path segment is a bare key
// acceptable to every supported format: ASCII letters, digits, underscores,
// and dashes, with no dots.
func isValidKeySegment(s string) bool {
	if len(s) == 0 {
		return false
	}
	for _, r := range s {
		isLetter := (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z')
		isDigit := r >= '0' && r <= '9'
		if !(isLetter || isDigit || r == '_' || r == '-') {
			return false
		}
	}
	return true
}

// splitPath returns the table part (everything before the last dot) and the
// leaf key of a dot-separated path. The table part is empty for root keys.
func splitPath(path string) (table, key string) {
	i := strings.LastIndexByte(path, '.')
	if i < 0 {
		return "", path
	}
	return path[:i], path[i+1:]
}
