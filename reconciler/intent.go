package reconciler

import (
	"fmt"
	"strings"

	"github.com/crmarques/cement/faults"
)

// Intent is the desired lifecycle state of an entity.
type Intent string

const (
	// IntentPresent creates a missing entity and never modifies an existing one.
	IntentPresent Intent = "present"
	// IntentLatest creates a missing entity and reconciles the fields of an
	// existing one.
	IntentLatest Intent = "latest"
	// IntentAbsent deletes an existing entity.
	IntentAbsent Intent = "absent"
)

func ParseIntent(value string) (Intent, error) {
	switch intent := Intent(strings.ToLower(strings.TrimSpace(value))); intent {
	case IntentPresent, IntentLatest, IntentAbsent:
		return intent, nil
	default:
		return "", faults.NewTypedError(
			faults.ValidationError,
			fmt.Sprintf("invalid state %q: expected one of present, latest, absent", value),
			nil,
		)
	}
}

func (i Intent) String() string {
	return string(i)
}

// Action is the mutation chosen by the engine.
type Action string

const (
	ActionNone   Action = "none"
	ActionCreate Action = "create"
	ActionUpdate Action = "update"
	ActionDelete Action = "delete"
)
