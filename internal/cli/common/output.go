package common

import (
	"encoding/json"
	"fmt"
	"io"
	"reflect"
	"strings"

	"github.com/spf13/cobra"

	"github.com/crmarques/cement/internal/cli/commandmeta"
	"github.com/crmarques/cement/yamlutil"
)

const (
	OutputAuto = "auto"
	OutputText = "text"
	OutputJSON = "json"
	OutputYAML = "yaml"
)

func ValidateOutputFormat(format string) error {
	switch format {
	case OutputAuto, OutputText, OutputJSON, OutputYAML:
		return nil
	default:
		return ValidationError("invalid output format: use auto, text, json, or yaml", nil)
	}
}

func ValidateOutputFormatForCommandPath(commandPath string, format string) error {
	switch strings.TrimSpace(format) {
	case "", OutputAuto, OutputText:
		return nil
	}
	if commandmeta.OutputPolicyForPath(commandPath) == commandmeta.OutputPolicyTextOnly {
		return ValidationError("command supports only text output; use --output text or --output auto", nil)
	}
	return nil
}

// WriteOutput renders value as text, JSON or YAML. Auto behaves like text
// when a text renderer is given and like YAML otherwise.
func WriteOutput[T any](command *cobra.Command, format string, value T, renderText func(io.Writer, T) error) error {
	if isNilOutputValue(value) {
		return nil
	}

	switch format {
	case OutputAuto, OutputText, "":
		if renderText != nil {
			return renderText(command.OutOrStdout(), value)
		}
		if format == OutputText {
			_, err := fmt.Fprintln(command.OutOrStdout(), value)
			return err
		}
		return writeYAML(command.OutOrStdout(), value)
	case OutputJSON:
		encoded, err := json.MarshalIndent(value, "", "  ")
		if err != nil {
			return err
		}
		_, err = fmt.Fprintln(command.OutOrStdout(), string(encoded))
		return err
	case OutputYAML:
		return writeYAML(command.OutOrStdout(), value)
	default:
		return ValidationError("invalid output format: use auto, text, json, or yaml", nil)
	}
}

func writeYAML(w io.Writer, value any) error {
	encoded, err := yamlutil.MarshalWithIndent(value, yamlutil.DefaultIndent)
	if err != nil {
		return err
	}
	_, err = w.Write(encoded)
	return err
}

func isNilOutputValue[T any](value T) bool {
	anyValue := any(value)
	if anyValue == nil {
		return true
	}

	reflected := reflect.ValueOf(anyValue)
	switch reflected.Kind() {
	case reflect.Chan, reflect.Func, reflect.Interface, reflect.Map, reflect.Pointer, reflect.Slice:
		return reflected.IsNil()
	default:
		return false
	}
}
