package cmd

import (
	"fmt"
	"log"

	"github.com/emicklei/dot"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/metal-toolbox/powerctl/internal/power"
	"github.com/metal-toolbox/powerctl/internal/runner"
	sm "github.com/metal-toolbox/powerctl/internal/statemachine"
)

type exportFlags struct {
	mermaid bool
	json    bool
}

var (
	exportFlagSet = &exportFlags{}
)

var cmdExportStatemachine = &cobra.Command{
	Use:   "export-statemachine [--json|--mermaid]",
	Short: "Export the task statemachine as a mermaid graph or a JSON description",
	Run: func(_ *cobra.Command, _ []string) {
		exportStatemachine()
	},
}

func exportStatemachine() {
	// the handler is required to build the transition rules, no transitions are run.
	handler := power.New(nil, logrus.New(), power.Options{})

	if exportFlagSet.json {
		j, err := sm.NewTaskStateMachine(handler).DescribeAsJSON()
		if err != nil {
			log.Fatal(err)
		}

		fmt.Println(string(j))

		return
	}

	desc, err := runner.DescribeTaskStateMachine(handler)
	if err != nil {
		log.Fatal(err)
	}

	fmt.Println(dot.MermaidGraph(runner.Graph(desc), dot.MermaidTopDown))
}

func init() {
	cmdExportStatemachine.PersistentFlags().BoolVarP(&exportFlagSet.mermaid, "mermaid", "", true, "export statemachine in mermaid format")
	cmdExportStatemachine.PersistentFlags().BoolVarP(&exportFlagSet.json, "json", "", false, "export task statemachine in the JSON format")

	rootCmd.AddCommand(cmdExportStatemachine)
}
