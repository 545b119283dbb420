// Package output provides formatters for CLI output.
package output

import (
	"fmt"
	"io"
	"strings"

	"github.com/maumercado/todo-client-go/pkg/client"
)

const (
	markDone = "[x]"
	markOpen = "[ ]"
)

// FormatTask writes one task line, followed by its description indented
// below when present.
// Format: "{ID:>4}  [x] {TITLE}\n"
func FormatTask(w io.Writer, task client.Task) {
	mark := markOpen
	if task.Completed {
		mark = markDone
	}
	fmt.Fprintf(w, "%4d  %s %s\n", task.ID, mark, normalizeTitle(task.Title))

	if desc := normalizeText(task.Description); desc != "" {
		fmt.Fprintf(w, "          %s\n", desc)
	}
}

// FormatTasks writes all tasks, or a placeholder line when there are none.
func FormatTasks(w io.Writer, tasks []client.Task) {
	if len(tasks) == 0 {
		fmt.Fprintln(w, "no tasks")
		return
	}
	for _, t := range tasks {
		FormatTask(w, t)
	}
}

// normalizeTitle normalizes a task title for display.
// - Empty or whitespace-only titles become "(untitled)"
// - Newlines are replaced with spaces
func normalizeTitle(title string) string {
	title = normalizeText(title)
	if title == "" {
		return "(untitled)"
	}
	return title
}

func normalizeText(s string) string {
	s = strings.ReplaceAll(s, "\r", " ")
	s = strings.ReplaceAll(s, "\n", " ")
	return strings.TrimSpace(s)
}
