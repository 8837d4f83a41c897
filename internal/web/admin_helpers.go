package web

import "time"

func formatTime(value *time.Time) string {
	if value == nil || value.IsZero() {
		return "-"
	}
	return value.Format("2006-01-02 15:04")
}

func isAdmin(role string) bool {
	return role == "admin"
}
