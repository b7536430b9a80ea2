package cmd

import (
	"context"
	"fmt"
	"log"

	"github.com/davecgh/go-spew/spew"
	"github.com/spf13/cobra"

	"github.com/metal-toolbox/powerctl/internal/app"
	"github.com/metal-toolbox/powerctl/internal/inventory"
	"github.com/metal-toolbox/powerctl/internal/model"
	"github.com/metal-toolbox/powerctl/internal/power"
)

var cmdGet = &cobra.Command{
	Use:   "get",
	Short: "get resources [account|server]",
	Run: func(cmd *cobra.Command, _ []string) {
		_ = cmd.Help()
	},
}

// command get server
type getServerFlags struct {
	identifier     string
	formFactor     string
	connectionType string
}

var (
	getServerFlagSet = &getServerFlags{}
)

var cmdGetServer = &cobra.Command{
	Use:   "server",
	Short: "Resolve a server and its server settings object without changing its power state",
	Run: func(cmd *cobra.Command, _ []string) {
		getServer(cmd.Context())
	},
}

var cmdGetAccount = &cobra.Command{
	Use:   "account",
	Short: "Test the Intersight API credentials and print the account name",
	Run: func(cmd *cobra.Command, _ []string) {
		getAccount(cmd.Context())
	},
}

func getServer(ctx context.Context) {
	powerctl, _, err := app.New(model.AppKindClient, cfgFile, logLevel)
	if err != nil {
		log.Fatal(err)
	}

	controller, err := newController(ctx, powerctl)
	if err != nil {
		powerctl.Logger.Fatal(err)
	}

	target := model.ServerTarget{
		Identifier:     getServerFlagSet.identifier,
		FormFactor:     model.FormFactor(getServerFlagSet.formFactor),
		ConnectionType: model.ConnectionType(getServerFlagSet.connectionType),
	}.WithDefaults()

	ref, server, err := controller.Locator().Locate(ctx, target)
	if err != nil {
		powerctl.Logger.Fatal(err)
	}

	spew.Dump(server, ref)

	settingsMoid, err := controller.Resolver().MoidByAttributes(
		ctx,
		power.ServerSettingsPath+"?$top=1000",
		map[string]interface{}{"Server": ref},
		inventory.WithOrganization(powerctl.Config.PowerControl.Organization),
		inventory.WithObjectType(power.ServerSettingsObjectType),
	)
	if err != nil {
		powerctl.Logger.Fatal(err)
	}

	fmt.Println(power.ServerSettingsObjectType + ": " + settingsMoid)
}

func getAccount(ctx context.Context) {
	powerctl, _, err := app.New(model.AppKindClient, cfgFile, logLevel)
	if err != nil {
		log.Fatal(err)
	}

	controller, err := newController(ctx, powerctl)
	if err != nil {
		powerctl.Logger.Fatal(err)
	}

	name, err := controller.AccountName(ctx)
	if err != nil {
		powerctl.Logger.Fatal(err)
	}

	fmt.Println(name)
}

func init() {
	rootCmd.AddCommand(cmdGet)

	cmdGetServer.PersistentFlags().StringVar(&getServerFlagSet.identifier, "identifier", "", "server serial, name, model or user label, several may be given separated by commas")
	cmdGetServer.PersistentFlags().StringVar(&getServerFlagSet.formFactor, "form-factor", string(model.FormFactorBlade), "server form factor - Blade, Rack")
	cmdGetServer.PersistentFlags().StringVar(&getServerFlagSet.connectionType, "connection-type", string(model.ConnectionFIAttached), "server connection type - FI-Attached, Standalone")

	if err := cmdGetServer.MarkPersistentFlagRequired("identifier"); err != nil {
		log.Fatal(err)
	}

	cmdGet.AddCommand(cmdGetServer)
	cmdGet.AddCommand(cmdGetAccount)
}
