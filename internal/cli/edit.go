package cli

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"

	"github.com/spf13/cobra"
)

var (
	editAttach string
	editModel  string
)

var editCmd = &cobra.Command{
	Use:   "edit <project-dir> <type> <instruction>",
	Short: "Generate an artifact and refine it with an instruction",
	Long: `Generate one artifact of <type> (text, prototype or a diagram kind) and then
ask the same agent to rework it according to <instruction>. Both versions are
part of one conversation, so the model sees what it produced before.

With --attach the file's content is quoted as the current version, which lets
you pass in an artifact you changed by hand.

Examples:
  docforge edit ./shop text "Add a section about data retention"
  docforge edit ./shop class "Split Order into Order and OrderLine"
  docforge edit ./shop prototype "Use a dark theme" --attach ./shop/output/prototype/index.html`,
	Args: cobra.MinimumNArgs(3),
	RunE: runEdit,
}

func init() {
	editCmd.Flags().StringVarP(&editAttach, "attach", "a", "", "file quoted as the current version")
	editCmd.Flags().StringVarP(&editModel, "model", "m", "", "model override")
}

func runEdit(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	variant, kind, err := parseAgentType(args[1])
	if err != nil {
		return err
	}
	instruction := strings.Join(args[2:], " ")

	var attached string
	if editAttach != "" {
		data, err := os.ReadFile(editAttach)
		if err != nil {
			return fmt.Errorf("read attachment: %w", err)
		}
		attached = string(data)
	}

	sess, err := openSession(ctx, args[0])
	if err != nil {
		return err
	}
	defer func() {
		if err := sess.Close(context.Background()); err != nil {
			logger.Warn("failed to close stores", "error", err)
		}
	}()

	name := defaultAgentName(variant, kind)
	if _, err := sess.orch.Register(name, variant, kind, editModel); err != nil {
		return err
	}

	first, err := sess.orch.Generate(ctx, name)
	if err != nil {
		return err
	}
	fmt.Printf("Generated %q\n", first.Title)

	edited, err := sess.orch.Edit(ctx, name, instruction, attached)
	if err != nil {
		return err
	}
	fmt.Printf("Edited %q\n\n", edited.Title)

	if err := printArtifact(os.Stdout, edited); err != nil {
		return err
	}
	fmt.Println()
	printUsage(os.Stdout, collector.Snapshot())
	return nil
}
