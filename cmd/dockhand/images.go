package main

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"
)

var pullCmd = &cobra.Command{
	Use:   "pull IMAGE",
	Short: "Pull an image",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		factory, err := newFactory()
		if err != nil {
			return err
		}
		if err := factory.Images().Pull(cmd.Context(), args[0]); err != nil {
			return err
		}
		consoleFor(cmd).PrintSuccess("Pulled " + args[0])
		return nil
	},
}

var existsCmd = &cobra.Command{
	Use:   "exists IMAGE",
	Short: "Report whether an image is present locally",
	Long: `Exists prints true or false. Any failure to inspect the image, including a
malformed reference, counts as absent.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		factory, err := newFactory()
		if err != nil {
			return err
		}
		exists, err := factory.Images().Exists(cmd.Context(), args[0])
		if err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), strconv.FormatBool(exists))
		return nil
	},
}

var rmCmd = &cobra.Command{
	Use:     "rm IMAGE",
	Aliases: []string{"rmi"},
	Short:   "Remove a local image",
	Args:    cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		factory, err := newFactory()
		if err != nil {
			return err
		}
		if err := factory.Images().Remove(cmd.Context(), args[0]); err != nil {
			return err
		}
		consoleFor(cmd).PrintSuccess("Removed " + args[0])
		return nil
	},
}

var ensureCmd = &cobra.Command{
	Use:   "ensure IMAGE",
	Short: "Pull an image only if it is not present locally",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		factory, err := newFactory()
		if err != nil {
			return err
		}
		pulled, err := factory.Images().Ensure(cmd.Context(), args[0])
		if err != nil {
			return err
		}
		if pulled {
			consoleFor(cmd).PrintSuccess("Pulled " + args[0])
		} else {
			consoleFor(cmd).PrintInfo(args[0] + " already present")
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(pullCmd, existsCmd, rmCmd, ensureCmd)
}
