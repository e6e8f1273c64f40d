package utils

import (
	"fmt"
	"strings"
	"time"
)

// FormatSessionDuration renders a duration in seconds as "Xm Ys" for the
// dashboard. Negative inputs clamp to zero.
func FormatSessionDuration(seconds float64) string {
	if seconds < 0 {
		seconds = 0
	}
	total := int(seconds)
	return fmt.Sprintf("%dm %ds", total/60, total%60)
}

// TimeAgo renders the distance between now and t as a short relative string.
func TimeAgo(t, now time.Time) string {
	d := now.Sub(t)
	if d < 0 {
		d = 0
	}

	switch {
	case d < time.Minute:
		return "just now"
	case d < time.Hour:
		m := int(d.Minutes())
		if m == 1 {
			return "1 minute ago"
		}
		return fmt.Sprintf("%d minutes ago", m)
	case d < 24*time.Hour:
		h := int(d.Hours())
		if h == 1 {
			return "1 hour ago"
		}
		return fmt.Sprintf("%d hours ago", h)
	default:
		days := int(d.Hours() / 24)
		if days == 1 {
			return "1 day ago"
		}
		return fmt.Sprintf("%d days ago", days)
	}
}

// TitleizeKey converts a snake_case or lower-case value key into a display
// label, e.g. "form_submission" -> "Form Submission".
func TitleizeKey(key string) string {
	if key == "" {
		return key
	}
	parts := strings.Split(strings.ReplaceAll(key, "_", " "), " ")
	for i, p := range parts {
		if p == "" {
			continue
		}
		parts[i] = strings.ToUpper(p[:1]) + p[1:]
	}
	return strings.Join(parts, " ")
}
