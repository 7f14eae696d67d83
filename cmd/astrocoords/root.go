package main

import (
	"encoding/json"
	"fmt"
	"io"
	"time"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"
)

// Output formats accepted by --output.
const (
	outputJSON = "json"
	outputYAML = "yaml"
)

// nowFunc is the clock used when no timestamp argument is given.
var nowFunc = time.Now

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "astrocoords",
		Short:         "Julian Date, sidereal time and angle conversions",
		Long:          "astrocoords computes Julian Dates and Greenwich Mean Sidereal Time for UTC instants and converts angles between degrees, radians and hours.",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	root.PersistentFlags().String("config", "", "config file (default astrocoords.yaml)")
	root.PersistentFlags().StringP("output", "o", outputJSON, "output format: json or yaml")

	root.AddCommand(
		newServeCmd(),
		newJDCmd(),
		newGMSTCmd(),
		newAngleCmd(),
	)
	return root
}

// render writes v to w in the format selected by --output.
func render(cmd *cobra.Command, v any) error {
	format, _ := cmd.Flags().GetString("output")
	return encode(cmd.OutOrStdout(), format, v)
}

func encode(w io.Writer, format string, v any) error {
	switch format {
	case outputJSON:
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(v)
	case outputYAML:
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(v); err != nil {
			return err
		}
		return enc.Close()
	default:
		return fmt.Errorf("unknown output format %q (want %s or %s)", format, outputJSON, outputYAML)
	}
}
