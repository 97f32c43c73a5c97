package common

import "strings"

// StripCodeFences removes markdown code fences the model sometimes wraps
// around JSON output despite instructions not to.
func StripCodeFences(response string) string {
	response = strings.TrimSpace(response)
	response = strings.TrimPrefix(response, "```json")
	response = strings.TrimPrefix(response, "```")
	response = strings.TrimSuffix(response, "```")
	return strings.TrimSpace(response)
}
