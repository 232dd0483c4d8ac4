package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/ZebulonRouseFrantzich/webdrivers/internal/service"
)

func newPinCmd(a *app) *cobra.Command {
	var unset bool

	cmd := &cobra.Command{
		Use:   "pin <driver> [version]",
		Short: "Pin a driver version in the local override file",
		Long: `Pin writes the driver's version property to the project-local TOML
override file (see --local). Use --unset to remove the pin.`,
		Example: `  webdrivers pin phantomjs 2.1.1
  webdrivers pin geckodriver "~0.34"
  webdrivers pin geckodriver --unset`,
		Args: cobra.RangeArgs(1, 2),
		RunE: func(cmd *cobra.Command, args []string) error {
			version := ""
			if len(args) == 2 {
				version = args[1]
			}
			if unset == (version != "") {
				return fmt.Errorf("give either a version or --unset")
			}

			svc := service.NewPinService(a.registry(), a.localPath)
			result, err := svc.Pin(cmd.Context(), args[0], version)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			if result.Version == "" {
				fmt.Fprintf(out, "Removed %s from %s\n", result.Property, result.Path)
			} else {
				fmt.Fprintf(out, "Pinned %s = %s in %s\n", result.Property, result.Version, result.Path)
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&unset, "unset", false, "remove the pinned version")
	return cmd
}
