package entity

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/crmarques/cement/entity"
	"github.com/crmarques/cement/internal/cli/common"
)

type kindSummary struct {
	Kind     string   `json:"kind" yaml:"kind"`
	Title    string   `json:"title" yaml:"title"`
	Endpoint string   `json:"endpoint" yaml:"endpoint"`
	ReadOnly bool     `json:"readOnly" yaml:"readOnly"`
	Fields   []string `json:"fields" yaml:"fields"`
}

func newKindsCommand(globalFlags *common.GlobalFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "kinds",
		Short: "List the entity kinds cement manages",
		Args:  cobra.NoArgs,
		RunE: func(command *cobra.Command, _ []string) error {
			registry := entity.DefaultRegistry()
			summaries := make([]kindSummary, 0)
			for _, kind := range registry.Kinds() {
				schema, err := registry.Schema(kind)
				if err != nil {
					return err
				}
				summaries = append(summaries, kindSummary{
					Kind:     schema.Kind,
					Title:    schema.DisplayName(),
					Endpoint: schema.Endpoint,
					ReadOnly: schema.ReadOnly(),
					Fields:   schema.FieldNames(),
				})
			}

			return common.WriteOutput(command, globalFlags.Output, summaries, func(w io.Writer, items []kindSummary) error {
				for _, item := range items {
					suffix := ""
					if item.ReadOnly {
						suffix = " (read-only)"
					}
					if _, err := fmt.Fprintf(w, "%-24s %s%s\n", item.Kind, item.Endpoint, suffix); err != nil {
						return err
					}
				}
				return nil
			})
		},
	}
}
