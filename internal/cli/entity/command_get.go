package entity

import (
	"fmt"
	"io"
	"sort"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/crmarques/cement/entity"
	"github.com/crmarques/cement/internal/cli/common"
	"github.com/crmarques/cement/server"
)

func newGetCommand(deps common.CommandDependencies, globalFlags *common.GlobalFlags) *cobra.Command {
	var raw bool

	command := &cobra.Command{
		Use:   "get <kind> <id>",
		Short: "Read one entity by id",
		Args:  cobra.ExactArgs(2),
		RunE: func(command *cobra.Command, args []string) error {
			id, err := strconv.ParseInt(args[1], 10, 64)
			if err != nil || id <= 0 {
				return common.ValidationError("entity id must be a positive integer", err)
			}

			session, err := common.OpenSession(command, deps, globalFlags, false)
			if err != nil {
				return err
			}
			schema, err := session.Schemas.Schema(args[0])
			if err != nil {
				return err
			}

			if raw {
				reader, ok := session.Server.(server.RawReader)
				if !ok {
					return common.ValidationError("server does not support raw reads", nil)
				}
				record, err := reader.ReadRaw(command.Context(), schema, id)
				if err != nil {
					return err
				}
				return common.WriteOutput[map[string]any](command, globalFlags.Output, record, nil)
			}

			item, err := session.Server.Read(command.Context(), schema, id)
			if err != nil {
				return err
			}
			return common.WriteOutput(command, globalFlags.Output, item, renderEntity)
		},
	}

	command.Flags().BoolVar(&raw, "raw", false, "print the undecoded server record")
	return command
}

func renderEntity(w io.Writer, item entity.Entity) error {
	if _, err := fmt.Fprintf(w, "%s %d\n", item.Kind, item.ID); err != nil {
		return err
	}
	names := make([]string, 0, len(item.Fields))
	for name := range item.Fields {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		if _, err := fmt.Fprintf(w, "  %s: %s\n", name, common.FormatValue(item.Fields[name])); err != nil {
			return err
		}
	}
	return nil
}
