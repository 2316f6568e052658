package common

import (
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/crmarques/cement/entity"
	"github.com/crmarques/cement/yamlutil"
)

const (
	stdinFileIndicator = "-"
	maxInputBytes      = 4 << 20
)

// ReadFile returns the content of path, or of stdin for "-".
func ReadFile(command *cobra.Command, path string) ([]byte, error) {
	if strings.TrimSpace(path) == stdinFileIndicator {
		return readAllLimited(command.InOrStdin())
	}
	file, err := os.Open(path)
	if err != nil {
		return nil, ValidationError("failed to open input file", err)
	}
	defer file.Close()
	return readAllLimited(file)
}

// ReadDesiredFields decodes a YAML or JSON mapping of desired fields.
func ReadDesiredFields(command *cobra.Command, path string) (entity.Fields, error) {
	if strings.TrimSpace(path) == "" {
		return entity.Fields{}, nil
	}
	data, err := ReadFile(command, path)
	if err != nil {
		return nil, err
	}
	mapping, err := yamlutil.DecodeMapping(data)
	if err != nil {
		return nil, ValidationError("invalid desired state document", err)
	}
	return entity.Fields(mapping), nil
}

func readAllLimited(reader io.Reader) ([]byte, error) {
	data, err := io.ReadAll(io.LimitReader(reader, maxInputBytes+1))
	if err != nil {
		return nil, err
	}
	if len(data) > maxInputBytes {
		return nil, ValidationError("input exceeds the maximum supported size", nil)
	}
	return data, nil
}
