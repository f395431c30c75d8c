package commands

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/beetlebugorg/skymap/pkg/skymap"
)

func newVerticesCmd() *cobra.Command {
	var formatName string

	cmd := &cobra.Command{
		Use:   "vertices FILE TRACT",
		Short: "Print the vertices of one tract",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			tract, err := strconv.Atoi(args[1])
			if err != nil {
				return fmt.Errorf("invalid tract index %q: %w", args[1], err)
			}
			format, err := formatFor(args[0], formatName)
			if err != nil {
				return err
			}
			f, err := skymap.OpenFile(args[0], format)
			if err != nil {
				return err
			}
			defer f.Close()

			vs, err := f.Vertices(tract)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			if ro := f.RingOptimized(); ro != nil {
				tf, err := ro.Transform(tract)
				if err != nil {
					return err
				}
				fmt.Fprintf(out, "# tract %d: ring %d, rotation %.9g deg\n", tract, tf.Ring, tf.Rotation)
			} else {
				fmt.Fprintf(out, "# tract %d\n", tract)
			}
			for _, v := range vs {
				fmt.Fprintf(out, "%.12f %.12f\n", v.RA, v.Dec)
			}
			return nil
		},
	}
	cmd.Flags().StringVarP(&formatName, "format", "f", "", "File format (full-vertex or ring-optimized); inferred from .fv/.ro")
	return cmd
}
