package cli

import (
	"context"
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/raphaelgruber/docforge/internal/models"
	"github.com/raphaelgruber/docforge/internal/project"
	"github.com/raphaelgruber/docforge/internal/store"
	"github.com/spf13/cobra"
)

var listVariant string

var listCmd = &cobra.Command{
	Use:   "list <project-dir>",
	Short: "List stored artifacts of a project",
	Long: `List the artifacts stored for the project in <project-dir>. With several
stores configured (DOCFORGE_STORE) the first one is read.

Examples:
  docforge list ./shop
  docforge list ./shop --type diagram`,
	Args: cobra.ExactArgs(1),
	RunE: runList,
}

func init() {
	listCmd.Flags().StringVarP(&listVariant, "type", "t", "", "filter by artifact type (text, diagram, prototype)")
}

func runList(cmd *cobra.Command, args []string) error {
	ctx := context.Background()

	var filter models.Variant
	if listVariant != "" {
		v, err := models.ParseVariant(listVariant)
		if err != nil {
			return err
		}
		filter = v
	}

	pc, err := project.Load(args[0])
	if err != nil {
		return err
	}
	stores, closeStores, err := store.Open(ctx, cfg, args[0], logger)
	if err != nil {
		return fmt.Errorf("open stores: %w", err)
	}
	defer func() {
		if err := closeStores(ctx); err != nil {
			logger.Warn("failed to close stores", "error", err)
		}
	}()

	items, err := stores.List(ctx, pc.ProjectName)
	if err != nil {
		return fmt.Errorf("list artifacts: %w", err)
	}

	tw := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "TYPE\tTITLE\tAGENT\tCREATED")
	n := 0
	for _, a := range items {
		if filter != "" && a.Variant != filter {
			continue
		}
		typ := string(a.Variant)
		if a.DiagramKind != "" {
			typ = a.DiagramKind
		}
		created := "-"
		if !a.CreatedAt.IsZero() {
			created = a.CreatedAt.Local().Format("2006-01-02 15:04")
		}
		agentName := a.Agent
		if agentName == "" {
			agentName = "-"
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n", typ, a.Title, agentName, created)
		n++
	}
	if n == 0 {
		fmt.Println("No artifacts found")
		return nil
	}
	return tw.Flush()
}
