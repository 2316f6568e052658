package http

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	"github.com/crmarques/cement/entity"
)

const maxErrorSummaryLength = 512

func encodeRequestBody(body any) ([]byte, error) {
	if body == nil {
		return nil, nil
	}
	encoded, err := json.Marshal(body)
	if err != nil {
		return nil, validationError("failed to encode JSON request body", err)
	}
	return encoded, nil
}

// decodeJSON decodes with json.Number preserved and normalizes the result.
func decodeJSON(body []byte) (any, error) {
	if len(bytes.TrimSpace(body)) == 0 {
		return nil, nil
	}

	decoder := json.NewDecoder(bytes.NewReader(body))
	decoder.UseNumber()

	var value any
	if err := decoder.Decode(&value); err != nil {
		return nil, connectionError("response body is not valid JSON", err)
	}
	return entity.Normalize(value)
}

func decodeRecord(body []byte) (map[string]any, error) {
	value, err := decodeJSON(body)
	if err != nil {
		return nil, err
	}
	if value == nil {
		return map[string]any{}, nil
	}
	record, ok := value.(map[string]any)
	if !ok {
		return nil, connectionError(fmt.Sprintf("response body must be a JSON object, got %T", value), nil)
	}
	return record, nil
}

func classifyStatusError(statusCode int, body []byte) error {
	message := fmt.Sprintf("remote request failed with status %d: %s", statusCode, summarizeErrorBody(body))

	switch statusCode {
	case http.StatusUnauthorized, http.StatusForbidden:
		return authError(message, nil)
	case http.StatusNotFound:
		return notFoundError(message, nil)
	case http.StatusConflict:
		return conflictError(message, nil)
	}

	if statusCode >= 400 && statusCode < 500 {
		return validationError(message, nil)
	}
	return connectionError(message, nil)
}

// summarizeErrorBody prefers the error messages Foreman and Katello embed in
// their error documents and falls back to the truncated raw body.
func summarizeErrorBody(body []byte) string {
	if value, err := decodeJSON(body); err == nil {
		if document, ok := value.(map[string]any); ok {
			if messages := errorMessages(document); len(messages) > 0 {
				return strings.Join(messages, "; ")
			}
		}
	}

	trimmed := strings.TrimSpace(string(body))
	if trimmed == "" {
		return "<empty>"
	}
	if len(trimmed) > maxErrorSummaryLength {
		return trimmed[:maxErrorSummaryLength] + "..."
	}
	return trimmed
}

func errorMessages(document map[string]any) []string {
	if nested, ok := document["error"].(map[string]any); ok {
		if messages := stringList(nested["full_messages"]); len(messages) > 0 {
			return messages
		}
		if message, ok := nested["message"].(string); ok && message != "" {
			return []string{message}
		}
	}
	if message, ok := document["displayMessage"].(string); ok && message != "" {
		return []string{message}
	}
	return stringList(document["errors"])
}

func stringList(value any) []string {
	items, ok := value.([]any)
	if !ok {
		return nil
	}
	result := make([]string, 0, len(items))
	for _, item := range items {
		if text, ok := item.(string); ok && strings.TrimSpace(text) != "" {
			result = append(result, text)
		}
	}
	return result
}
