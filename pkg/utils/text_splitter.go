package utils

import "strings"

// Window is one slice of a longer text together with its rune offset in that text.
type Window struct {
	Text   string
	Offset int
}

// SplitWindows splits text into windows of chunkSize runes, each starting
// chunkSize-overlap runes after the previous one so boundary passages appear twice.
// Windows holding only whitespace are dropped.
func SplitWindows(text string, chunkSize int, overlap int) []Window {
	if chunkSize <= 0 {
		return nil
	}

	runes := []rune(text)
	totalLen := len(runes)

	step := chunkSize - overlap
	if step <= 0 {
		step = chunkSize // fallback if overlap >= chunkSize
	}

	var windows []Window
	for i := 0; i < totalLen; i += step {
		end := i + chunkSize
		if end > totalLen {
			end = totalLen
		}

		// Rune slicing keeps Offset exact.
		chunk := string(runes[i:end])
		if strings.TrimSpace(chunk) != "" {
			windows = append(windows, Window{Text: chunk, Offset: i})
		}

		if end == totalLen {
			break
		}
	}

	return windows
}
