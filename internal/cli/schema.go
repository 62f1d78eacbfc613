package cli

import (
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/raphaelgruber/docforge/internal/schema"
	"github.com/spf13/cobra"
)

var schemaCmd = &cobra.Command{
	Use:   "schema [kind]",
	Short: "Show the diagram kinds and their JSON schemas",
	Long: `Without arguments, list the supported diagram kinds. With a kind, print the
JSON schema that diagrams of that kind are validated against.

Examples:
  docforge schema
  docforge schema class
  docforge schema "UML Sequence Diagram"`,
	Args: cobra.MaximumNArgs(1),
	RunE: runSchema,
}

func runSchema(cmd *cobra.Command, args []string) error {
	if len(args) == 1 {
		kind, err := schema.ParseKind(args[0])
		if err != nil {
			return err
		}
		s, err := schema.Lookup(kind)
		if err != nil {
			return err
		}
		fmt.Println(s.Text())
		return nil
	}

	tw := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "KIND\tNAME")
	for _, kind := range schema.Kinds() {
		s, err := schema.Lookup(kind)
		if err != nil {
			return err
		}
		fmt.Fprintf(tw, "%s\t%s\n", kind, s.DisplayName())
	}
	return tw.Flush()
}
