package llm

import "strings"

// ExtractJSON pulls a JSON object or array out of free-form model
// output. Models frequently wrap JSON in markdown code fences or
// surround it with prose; this strips the fences and slices from the
// first opening brace/bracket to the matching last closing one. Returns
// an empty string when no JSON payload is present.
func ExtractJSON(content string) string {
	cleaned := strings.TrimSpace(content)
	cleaned = strings.ReplaceAll(cleaned, "```json", "")
	cleaned = strings.ReplaceAll(cleaned, "```", "")

	objStart := strings.Index(cleaned, "{")
	arrStart := strings.Index(cleaned, "[")

	start := -1
	closer := byte('}')
	if objStart >= 0 && (arrStart < 0 || objStart < arrStart) {
		start = objStart
	} else if arrStart >= 0 {
		start = arrStart
		closer = ']'
	}
	if start < 0 {
		return ""
	}

	end := strings.LastIndexByte(cleaned, closer)
	if end <= start {
		return ""
	}

	return strings.TrimSpace(cleaned[start : end+1])
}
