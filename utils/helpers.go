package utils

import "strings"

// NormalizePagePath strips query strings and trailing slashes so the same
// page groups under one key in breakdowns. The root path stays "/".
func NormalizePagePath(path string) string {
	if path == "" {
		return "/"
	}
	if i := strings.IndexByte(path, '?'); i >= 0 {
		path = path[:i]
	}
	if !strings.HasPrefix(path, "/") && !strings.HasPrefix(path, "#") {
		path = "/" + path
	}
	for len(path) > 1 && strings.HasSuffix(path, "/") {
		path = strings.TrimSuffix(path, "/")
	}
	return path
}
