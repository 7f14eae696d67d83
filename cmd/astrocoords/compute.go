package main

import (
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/soniakeys/unit"
	"github.com/spf13/cobra"

	"github.com/star/astrocoords/internal/angle"
	"github.com/star/astrocoords/internal/report"
)

// parseInstant reads an optional RFC3339 argument, defaulting to now.
func parseInstant(args []string) (time.Time, error) {
	if len(args) == 0 {
		return nowFunc().UTC(), nil
	}
	t, err := time.Parse(time.RFC3339, args[0])
	if err != nil {
		return time.Time{}, fmt.Errorf("parsing time %q: %w", args[0], err)
	}
	return t, nil
}

func newJDCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "jd [RFC3339]",
		Short: "Print the Julian Date of an instant (default now)",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			t, err := parseInstant(args)
			if err != nil {
				return err
			}
			return render(cmd, report.NewJulianDate(t))
		},
	}
}

func newGMSTCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "gmst [RFC3339]",
		Short: "Print the Greenwich Mean Sidereal Time of an instant (default now)",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			t, err := parseInstant(args)
			if err != nil {
				return err
			}
			normalize, _ := cmd.Flags().GetBool("normalize")
			return render(cmd, report.NewGMST(t, normalize))
		},
	}
	cmd.Flags().Bool("normalize", false, "reduce the result to [0°, 360°)")
	return cmd
}

func newAngleCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "angle",
		Short: "Convert an angle between degrees, radians and hours",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := angleFromFlags(cmd)
			if err != nil {
				return err
			}
			normalize, _ := cmd.Flags().GetBool("normalize")
			return render(cmd, report.NewAngle(a, normalize))
		},
	}
	cmd.Flags().Float64("deg", 0, "angle in degrees")
	cmd.Flags().Float64("arc", 0, "angle in radians")
	cmd.Flags().Float64("hour", 0, "angle in hours (24h = 360°)")
	cmd.Flags().Bool("normalize", false, "reduce the result to [0°, 360°)")
	cmd.MarkFlagsMutuallyExclusive("deg", "arc", "hour")
	cmd.MarkFlagsOneRequired("deg", "arc", "hour")
	return cmd
}

func angleFromFlags(cmd *cobra.Command) (angle.Angle, error) {
	var (
		a angle.Angle
		v float64
	)
	switch {
	case cmd.Flags().Changed("deg"):
		v, _ = cmd.Flags().GetFloat64("deg")
		a = angle.FromDegree(v)
	case cmd.Flags().Changed("arc"):
		v, _ = cmd.Flags().GetFloat64("arc")
		a = angle.FromArc(v)
	case cmd.Flags().Changed("hour"):
		v, _ = cmd.Flags().GetFloat64("hour")
		a = angle.FromUnit(unit.HourAngleFromHour(v).Angle())
	default:
		return a, errors.New("one of --deg, --arc or --hour is required")
	}
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return a, fmt.Errorf("angle value must be finite, got %v", v)
	}
	return a, nil
}
