package cmd

import (
	"context"
	"log"

	"github.com/spf13/cobra"

	"github.com/metal-toolbox/powerctl/internal/app"
	"github.com/metal-toolbox/powerctl/internal/intersight"
	"github.com/metal-toolbox/powerctl/internal/power"
)

var (
	cfgFile  string
	logLevel string
)

var rootCmd = &cobra.Command{
	Use:   "powerctl",
	Short: "Set the power state of servers managed by Cisco Intersight",
	Run: func(cmd *cobra.Command, _ []string) {
		_ = cmd.Help()
	},
}

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		log.Fatal(err)
	}
}

// newController returns a power controller reaching the Intersight API with the configured credentials.
func newController(ctx context.Context, powerctl *app.App) (*power.Controller, error) {
	client, err := intersight.New(ctx, powerctl.IntersightClientOptions(), powerctl.Logger)
	if err != nil {
		return nil, err
	}

	pc := powerctl.Config.PowerControl

	return power.New(
		client,
		powerctl.Logger,
		power.Options{
			BaseURL:      powerctl.Config.Intersight.BaseURL,
			Organization: pc.Organization,
			StrictMatch:  pc.StrictMatch,
			DryRun:       pc.DryRun,
		},
	), nil
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "configuration file (default is $HOME/.powerctl.yml)")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "set logging level - info, debug, trace (default is the configured log_level)")
}
