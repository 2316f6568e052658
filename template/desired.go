package template

import (
	"fmt"
	"strings"

	"github.com/crmarques/cement/entity"
	"github.com/crmarques/cement/faults"
)

// Provisioning describes a provisioning template built from parsed
// metadata. Named references still need resolving against the server.
type Provisioning struct {
	Fields        entity.Fields
	Kind          string
	OSes          []string
	Locations     []string
	Organizations []string
}

var scalarKeys = map[string]string{
	"name":          "name",
	"description":   "description",
	"snippet":       "snippet",
	"locked":        "locked",
	"audit_comment": "audit_comment",
	TemplateKey:     "template",
}

// Desired maps parsed template metadata onto provisioning template fields.
// Unknown metadata keys such as model or require are ignored.
func Desired(metadata map[string]any) (Provisioning, error) {
	result := Provisioning{Fields: entity.Fields{}}
	for key, field := range scalarKeys {
		if value, ok := metadata[key]; ok {
			result.Fields[field] = value
		}
	}

	name, _ := result.Fields["name"].(string)
	if strings.TrimSpace(name) == "" {
		return Provisioning{}, faults.NewTypedError(faults.ValidationError, "template metadata does not declare a name", nil)
	}

	if value, ok := metadata["kind"]; ok {
		kind, ok := value.(string)
		if !ok {
			return Provisioning{}, invalidKey("kind", value)
		}
		result.Kind = strings.TrimSpace(kind)
		if result.Kind == "snippet" {
			result.Fields["snippet"] = true
			result.Kind = ""
		}
	}

	var err error
	if result.OSes, err = stringList(metadata, "oses"); err != nil {
		return Provisioning{}, err
	}
	if result.Locations, err = stringList(metadata, "locations"); err != nil {
		return Provisioning{}, err
	}
	if result.Organizations, err = stringList(metadata, "organizations"); err != nil {
		return Provisioning{}, err
	}
	return result, nil
}

func stringList(metadata map[string]any, key string) ([]string, error) {
	value, ok := metadata[key]
	if !ok || value == nil {
		return nil, nil
	}
	switch typed := value.(type) {
	case string:
		return []string{typed}, nil
	case []any:
		items := make([]string, 0, len(typed))
		for _, item := range typed {
			text, ok := item.(string)
			if !ok {
				return nil, invalidKey(key, value)
			}
			items = append(items, text)
		}
		return items, nil
	default:
		return nil, invalidKey(key, value)
	}
}

func invalidKey(key string, value any) error {
	return faults.NewTypedError(
		faults.ValidationError,
		fmt.Sprintf("template metadata %q has unsupported value %v", key, value),
		nil,
	)
}
