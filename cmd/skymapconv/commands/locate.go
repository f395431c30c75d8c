package commands

import (
	"fmt"
	"strconv"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/beetlebugorg/skymap/pkg/skymap"
)

func newLocateCmd() *cobra.Command {
	var formatName string

	cmd := &cobra.Command{
		Use:   "locate FILE RA DEC",
		Short: "Find the tracts containing a sky position",
		Long: `Find the tracts whose boundary contains the position (RA, Dec), given in
decimal degrees. Neighbouring tracts overlap, so several may be printed.`,
		Args: cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			ra, err := strconv.ParseFloat(args[1], 64)
			if err != nil {
				return fmt.Errorf("invalid RA %q: %w", args[1], err)
			}
			dec, err := strconv.ParseFloat(args[2], 64)
			if err != nil {
				return fmt.Errorf("invalid Dec %q: %w", args[2], err)
			}
			if dec < -90 || dec > 90 {
				return fmt.Errorf("dec=%v outside [-90, 90]", dec)
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

			start := time.Now()
			idx, err := skymap.BuildTractIndex(f)
			if err != nil {
				return err
			}
			logrus.WithFields(logrus.Fields{
				"tracts":   f.TractCount(),
				"boxes":    idx.Size(),
				"duration": time.Since(start),
			}).Debug("built tract index")

			tracts := idx.Locate(ra, dec)
			if len(tracts) == 0 {
				return fmt.Errorf("no tract contains (%v, %v)", ra, dec)
			}
			for _, t := range tracts {
				fmt.Fprintln(cmd.OutOrStdout(), t)
			}
			return nil
		},
	}
	cmd.Flags().StringVarP(&formatName, "format", "f", "", "File format (full-vertex or ring-optimized); inferred from .fv/.ro")
	return cmd
}
