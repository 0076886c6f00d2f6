package commands

import (
	"github.com/spf13/cobra"

	"github.com/Sumatoshi-tech/rbcore/pkg/observability"
	"github.com/Sumatoshi-tech/rbcore/pkg/scenario"
)

// NewDemoCommand creates the demo command.
func NewDemoCommand() *cobra.Command {
	rc := &RunCommand{}

	var printYAML bool

	cmd := &cobra.Command{
		Use:   "demo",
		Short: "Execute the built-in demonstration scenario",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			doc := scenario.Builtin()

			if printYAML {
				data, err := doc.Marshal()
				if err != nil {
					return err
				}

				_, err = cmd.OutOrStdout().Write(data)

				return err
			}

			sess, err := openSession(cmd, observability.ModeScenario)
			if err != nil {
				return err
			}
			defer sess.close()

			return rc.runDocuments(cmd.Context(), cmd.OutOrStdout(), sess, []*scenario.Document{doc})
		},
	}

	rc.registerFlags(cmd)
	cmd.Flags().BoolVar(&printYAML, "yaml", false, "Print the demonstration scenario as YAML instead of running it")

	return cmd
}
