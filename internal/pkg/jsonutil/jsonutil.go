// Package jsonutil extracts structured payloads from LLM text responses,
// which frequently arrive wrapped in markdown fences or surrounded by prose.
package jsonutil

import (
	"encoding/json"
	"strings"
)

// CleanResponse strips markdown code block markers and trims the text down
// to the first balanced JSON object found in it.
func CleanResponse(response string) string {
	response = strings.TrimSpace(response)

	if strings.HasPrefix(response, "```json") {
		response = strings.TrimPrefix(response, "```json")
	} else if strings.HasPrefix(response, "```") {
		response = strings.TrimPrefix(response, "```")
	}
	response = strings.TrimSuffix(response, "```")
	response = strings.TrimSpace(response)

	firstBrace := strings.Index(response, "{")
	if firstBrace == -1 {
		return response
	}

	// Find the matching closing brace by counting braces
	braceCount := 0
	lastValidBrace := -1
	for i := firstBrace; i < len(response); i++ {
		switch response[i] {
		case '{':
			braceCount++
		case '}':
			braceCount--
			if braceCount == 0 {
				lastValidBrace = i
			}
		}
		if lastValidBrace != -1 {
			break
		}
	}

	if lastValidBrace == -1 {
		lastBrace := strings.LastIndex(response, "}")
		if lastBrace == -1 || lastBrace <= firstBrace {
			return response
		}
		lastValidBrace = lastBrace
	}

	return response[firstBrace : lastValidBrace+1]
}

// DecodeObject cleans an LLM response and unmarshals the first JSON object
// into v. Returns false when no decodable object is present; never panics
// on malformed input.
func DecodeObject(response string, v any) bool {
	clean := CleanResponse(response)
	if !strings.HasPrefix(clean, "{") {
		return false
	}
	return json.Unmarshal([]byte(clean), v) == nil
}
