// ABOUTME: Shared utility functions for CLI commands
// ABOUTME: Consolidates formatting helpers used by duplicates, scan, and stats
package commands

import (
	"fmt"
	"time"

	"github.com/harper/facts-standalone/internal/models"
)

// truncate shortens a string to maxLen, adding "..." if truncated
func truncate(s string, maxLen int) string {
	runes := []rune(s)
	if len(runes) <= maxLen {
		return s
	}
	if maxLen <= 3 {
		return string(runes[:maxLen])
	}
	return string(runes[:maxLen-3]) + "..."
}

// formatTime formats a time for display
func formatTime(t time.Time) string {
	now := time.Now()
	diff := now.Sub(t)

	if diff < time.Minute {
		return "just now"
	} else if diff < time.Hour {
		mins := int(diff.Minutes())
		return fmt.Sprintf("%dm ago", mins)
	} else if diff < 24*time.Hour {
		hours := int(diff.Hours())
		return fmt.Sprintf("%dh ago", hours)
	} else if diff < 7*24*time.Hour {
		days := int(diff.Hours() / 24)
		return fmt.Sprintf("%dd ago", days)
	}
	return t.Format("2006-01-02")
}

// countDuplicates sums the mergeable duplicates across groups
func countDuplicates(groups []*models.DuplicateGroup) int {
	count := 0
	for _, g := range groups {
		count += len(g.Duplicates)
	}
	return count
}
