package ping

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/crmarques/cement/internal/cli/common"
	"github.com/crmarques/cement/server"
)

func NewCommand(deps common.CommandDependencies, globalFlags *common.GlobalFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "ping",
		Short: "Check connectivity, credentials and the server version",
		Args:  cobra.NoArgs,
		RunE: func(command *cobra.Command, _ []string) error {
			session, err := common.OpenSession(command, deps, globalFlags, false)
			if err != nil {
				return err
			}
			status, err := session.Server.Ping(command.Context())
			if err != nil {
				return err
			}
			return common.WriteOutput(command, globalFlags.Output, status, func(w io.Writer, value server.Status) error {
				result := value.Result
				if result == "" {
					result = "ok"
				}
				_, err := fmt.Fprintf(w, "%s: Foreman %s (%s)\n", session.Name, value.Version, result)
				return err
			})
		},
	}
}
