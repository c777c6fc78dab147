package errors

import (
	"bufio"
	"fmt"
	"os"
	"strings"
)

// ExtractContext reads the rule document and returns the lines surrounding
// location, with the offending line marked.
func ExtractContext(location Location, contextLines int) string {
	if location.File == "" || !location.IsValid() {
		return ""
	}

	file, err := os.Open(location.File)
	if err != nil {
		return ""
	}
	defer file.Close()

	scanner := bufio.NewScanner(file)
	lines := make([]string, 0)
	for scanner.Scan() {
		lines = append(lines, scanner.Text())
	}
	if err := scanner.Err(); err != nil {
		return ""
	}

	return renderContext(lines, location, contextLines)
}

// ExtractContextFromBytes is ExtractContext for documents held in memory.
func ExtractContextFromBytes(data []byte, location Location, contextLines int) string {
	if !location.IsValid() || len(data) == 0 {
		return ""
	}
	return renderContext(strings.Split(string(data), "\n"), location, contextLines)
}

func renderContext(lines []string, location Location, contextLines int) string {
	errorLine := location.Line - 1
	if errorLine >= len(lines) {
		return ""
	}

	startLine := errorLine - contextLines
	endLine := errorLine + contextLines
	if startLine < 0 {
		startLine = 0
	}
	if endLine >= len(lines) {
		endLine = len(lines) - 1
	}

	var sb strings.Builder
	width := len(fmt.Sprintf("%d", endLine+1))

	for i := startLine; i <= endLine; i++ {
		prefix := "  "
		if i == errorLine {
			prefix = "->"
		}
		sb.WriteString(fmt.Sprintf("%s %*d | %s\n", prefix, width, i+1, lines[i]))

		if i == errorLine && location.Column > 0 {
			sb.WriteString(fmt.Sprintf("   %s | %s^\n", strings.Repeat(" ", width), strings.Repeat(" ", location.Column-1)))
		}
	}

	return sb.String()
}

// WithContext attaches source context to err from the document bytes.
func WithContext(err *Error, data []byte, contextLines int) *Error {
	if err.Location.IsValid() && err.Context == "" {
		if len(data) > 0 {
			err.Context = ExtractContextFromBytes(data, err.Location, contextLines)
		} else {
			err.Context = ExtractContext(err.Location, contextLines)
		}
	}
	return err
}
