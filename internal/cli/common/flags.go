package common

import (
	"github.com/spf13/cobra"

	"github.com/crmarques/cement/debugctx"
)

type GlobalFlags struct {
	Context     string
	Debug       bool
	LogFormat   string
	NoStatus    bool
	NoColor     bool
	Output      string
	MetricsFile string
}

func BindGlobalFlags(command *cobra.Command, flags *GlobalFlags) {
	command.PersistentFlags().StringVarP(&flags.Context, "context", "c", "", "context name")
	command.PersistentFlags().BoolVarP(&flags.Debug, "debug", "d", false, "enable debug output")
	command.PersistentFlags().StringVar(&flags.LogFormat, "log-format", debugctx.FormatConsole, "log format: console|json")
	command.PersistentFlags().BoolVarP(&flags.NoStatus, "no-status", "n", false, "hide status output")
	command.PersistentFlags().BoolVar(&flags.NoColor, "no-color", false, "disable color output")
	command.PersistentFlags().StringVarP(&flags.Output, "output", "o", OutputAuto, "output format: auto|text|json|yaml")
	command.PersistentFlags().StringVar(&flags.MetricsFile, "metrics-file", "", "write Prometheus textfile metrics to this path on exit")
}

// EnsureFlags are shared by every command that converges an entity.
type EnsureFlags struct {
	State   string
	Check   bool
	Replace bool
}

func BindEnsureFlags(command *cobra.Command, flags *EnsureFlags) {
	command.Flags().StringVar(&flags.State, "state", "present", "desired state: present|latest|absent")
	command.Flags().BoolVar(&flags.Check, "check", false, "report what would change without mutating the server")
	command.Flags().BoolVar(&flags.Replace, "replace", false, "clear declared fields the desired state leaves out")
}
