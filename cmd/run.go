package cmd

import (
	"context"
	"os"

	"github.com/equinix-labs/otel-init-go/otelinit"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/metal-toolbox/powerctl/internal/app"
	"github.com/metal-toolbox/powerctl/internal/metrics"
	"github.com/metal-toolbox/powerctl/internal/model"
	"github.com/metal-toolbox/powerctl/internal/runner"
	"github.com/metal-toolbox/powerctl/internal/version"
)

var cmdRun = &cobra.Command{
	Use:   "run",
	Short: "Apply the power state to the configured target servers",
	Run: func(cmd *cobra.Command, _ []string) {
		if err := runPowerControl(cmd.Context(), cmd); err != nil {
			os.Exit(1)
		}
	},
}

// run command flags, these override the power_control configuration parameters when set.
type runFlags struct {
	state             string
	targetsFile       string
	organization      string
	haltOnLookupError bool
	strictMatch       bool
	dryRun            bool
	enableMetrics     bool
}

var (
	runFlagSet = &runFlags{}
)

func runPowerControl(ctx context.Context, cmd *cobra.Command) error {
	powerctl, termCh, err := app.New(model.AppKindRun, cfgFile, logLevel)
	if err != nil {
		logrus.Error(err)
		return err
	}

	applyRunFlags(cmd, &powerctl.Config.PowerControl)

	state, targets, err := powerctl.RunParams()
	if err != nil {
		powerctl.Logger.Error(err)
		return err
	}

	if runFlagSet.enableMetrics {
		// serve metrics endpoint
		metrics.ListenAndServe()
		version.ExportBuildInfoMetric()
	}

	ctx, otelShutdown := otelinit.InitOpenTelemetry(ctx, model.AppName)
	defer otelShutdown(ctx)

	// Setup cancel context with cancel func.
	ctx, cancelFunc := context.WithCancel(ctx)
	defer cancelFunc()

	// routine listens for termination signal and cancels the context
	go func() {
		<-termCh
		powerctl.Logger.Info("got TERM signal, exiting...")
		cancelFunc()
	}()

	controller, err := newController(ctx, powerctl)
	if err != nil {
		powerctl.Logger.Error(err)
		return err
	}

	r := runner.New(
		controller,
		logrus.NewEntry(powerctl.Logger),
		runner.Options{HaltOnLookupError: powerctl.Config.PowerControl.HaltOnLookupError},
	)

	if _, err := r.Run(ctx, targets, state); err != nil {
		powerctl.Logger.WithError(err).Error("power state not applied to all targets")
		return err
	}

	return nil
}

func applyRunFlags(cmd *cobra.Command, pc *app.PowerControlOptions) {
	flags := cmd.Flags()

	if flags.Changed("state") {
		pc.State = runFlagSet.state
	}

	if flags.Changed("targets") {
		pc.TargetsFile = runFlagSet.targetsFile
	}

	if flags.Changed("organization") {
		pc.Organization = runFlagSet.organization
	}

	if flags.Changed("halt-on-lookup-error") {
		pc.HaltOnLookupError = runFlagSet.haltOnLookupError
	}

	if flags.Changed("strict-match") {
		pc.StrictMatch = runFlagSet.strictMatch
	}

	if flags.Changed("dry-run") {
		pc.DryRun = runFlagSet.dryRun
	}
}

func init() {
	cmdRun.PersistentFlags().StringVar(&runFlagSet.state, "state", "", "power state to apply - 'Power On', 'Power Off', 'Power Cycle', 'Hard Reset', 'Shutdown', 'Reboot CIMC'")
	cmdRun.PersistentFlags().StringVar(&runFlagSet.targetsFile, "targets", "", "YAML file listing the target servers, replaces the configured targets")
	cmdRun.PersistentFlags().StringVar(&runFlagSet.organization, "organization", "", "Intersight organization the server settings are looked up in")
	cmdRun.PersistentFlags().BoolVarP(&runFlagSet.haltOnLookupError, "halt-on-lookup-error", "", false, "stop the run when a target server or its settings cannot be resolved")
	cmdRun.PersistentFlags().BoolVarP(&runFlagSet.strictMatch, "strict-match", "", false, "fail a target whose identifier matches more than one server")
	cmdRun.PersistentFlags().BoolVarP(&runFlagSet.dryRun, "dry-run", "", false, "resolve the target servers without changing their power state")
	cmdRun.PersistentFlags().BoolVarP(&runFlagSet.enableMetrics, "enable-metrics", "", false, "expose prometheus metrics on "+metrics.MetricsEndpoint)

	rootCmd.AddCommand(cmdRun)
}
