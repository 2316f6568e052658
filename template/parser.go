package template

import (
	"fmt"
	"os"
	"regexp"
	"strings"

	"go.yaml.in/yaml/v3"

	"github.com/crmarques/cement/faults"
)

// TemplateKey holds the full document text in every parsed metadata map.
const TemplateKey = "template"

// metadataPattern matches a leading <%# ... %> comment block.
var metadataPattern = regexp.MustCompile(`^.*\s*<%#([^%]*([^%]*%*[^>%])*%*)%>`)

// Parse extracts the metadata header of a template document. The result
// always carries the document text under TemplateKey; a document without a
// header yields only that key.
func Parse(text string) (map[string]any, error) {
	metadata := map[string]any{}

	match := metadataPattern.FindStringSubmatch(text)
	if match != nil && match[1] != "" {
		block := strings.TrimSuffix(match[1], "-")

		var decoded any
		if err := yaml.Unmarshal([]byte(block), &decoded); err != nil {
			return nil, faults.NewTypedError(faults.TemplateParseError, "error while parsing template", err)
		}
		switch typed := decoded.(type) {
		case nil:
		case map[string]any:
			metadata = typed
		default:
			return nil, faults.NewTypedError(
				faults.TemplateParseError,
				fmt.Sprintf("error while parsing template: metadata must be a mapping, got %T", decoded),
				nil,
			)
		}
	}

	metadata[TemplateKey] = text
	return metadata, nil
}

// ParseFile reads path and parses its content with Parse.
func ParseFile(path string) (map[string]any, error) {
	content, err := os.ReadFile(path)
	if err != nil {
		return nil, faults.NewTypedError(
			faults.TemplateParseError,
			fmt.Sprintf("error while reading template file %q", path),
			err,
		)
	}
	return Parse(string(content))
}
