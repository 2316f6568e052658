package common

import (
	"context"
	"fmt"
	"io"
	"sort"

	"github.com/spf13/cobra"

	"github.com/crmarques/cement/debugctx"
	"github.com/crmarques/cement/entity"
	"github.com/crmarques/cement/reconciler"
)

// Converge looks the current entity up and reconciles it towards target.
// --check runs the engine in dry-run mode.
func Converge(ctx context.Context, session Session, target Target, flags EnsureFlags) (reconciler.Outcome, error) {
	intent, err := reconciler.ParseIntent(flags.State)
	if err != nil {
		return reconciler.Outcome{}, err
	}
	if session.Engine == nil {
		return reconciler.Outcome{}, ValidationError("convergence engine is not configured", nil)
	}

	current, err := FindCurrent(ctx, session, target)
	if err != nil {
		return reconciler.Outcome{}, err
	}

	debugctx.Printf(ctx, "converge kind=%q state=%q exists=%t check=%t", target.Schema.Kind, intent, current != nil, flags.Check)
	return session.Engine.Reconcile(ctx, target.Schema.Kind, target.Desired, current, intent, flags.Check)
}

func WriteOutcome(command *cobra.Command, format string, outcome reconciler.Outcome) error {
	return WriteOutput(command, format, outcome, renderOutcome)
}

func renderOutcome(w io.Writer, outcome reconciler.Outcome) error {
	target := ""
	if outcome.Entity != nil {
		target = describeEntity(*outcome.Entity)
	}

	verb := string(outcome.Action)
	if outcome.DryRun && outcome.Changed {
		verb = "would " + verb
	}
	if _, err := fmt.Fprintf(w, "changed=%t action=%s %s\n", outcome.Changed, verb, target); err != nil {
		return err
	}

	changes := append([]reconciler.Change{}, outcome.Changes...)
	sort.Slice(changes, func(i, j int) bool { return changes[i].Field < changes[j].Field })
	for _, change := range changes {
		if _, err := fmt.Fprintf(w, "  %s: %s -> %s\n", change.Field, FormatValue(change.From), FormatValue(change.To)); err != nil {
			return err
		}
	}
	return nil
}

func describeEntity(item entity.Entity) string {
	name := item.Name()
	switch {
	case item.ID != 0 && name != "":
		return fmt.Sprintf("%s %q (id %d)", item.Kind, name, item.ID)
	case item.ID != 0:
		return fmt.Sprintf("%s id %d", item.Kind, item.ID)
	default:
		return fmt.Sprintf("%s %q", item.Kind, name)
	}
}

// FormatValue renders a field value for text output; references show as
// name#id.
func FormatValue(value entity.Value) string {
	switch typed := value.(type) {
	case nil:
		return "null"
	case entity.Ref:
		return formatRef(typed)
	case []entity.Ref:
		items := "["
		for idx, ref := range typed {
			if idx > 0 {
				items += ", "
			}
			items += formatRef(ref)
		}
		return items + "]"
	case string:
		return fmt.Sprintf("%q", typed)
	default:
		return fmt.Sprintf("%v", typed)
	}
}

func formatRef(ref entity.Ref) string {
	if ref.Name != "" {
		return fmt.Sprintf("%s#%d", ref.Name, ref.ID)
	}
	return fmt.Sprintf("#%d", ref.ID)
}
