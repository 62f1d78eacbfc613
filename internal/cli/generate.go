package cli

import (
	"context"
	"fmt"
	"os"
	"os/signal"

	"github.com/raphaelgruber/docforge/internal/models"
	"github.com/raphaelgruber/docforge/internal/schema"
	"github.com/raphaelgruber/docforge/internal/service"
	"github.com/spf13/cobra"
	"golang.org/x/term"
)

var (
	genDocs        int
	genDiagrams    []string
	genPrototype   bool
	genConcurrency int
	genModel       string
)

var generateCmd = &cobra.Command{
	Use:   "generate <project-dir>",
	Short: "Generate documents, diagrams and a prototype for a project",
	Long: `Generate artifacts for the project in <project-dir>.

Text documents are generated first, one after another, so each document can
build on the previous ones. Diagrams and the prototype follow in parallel and
see every document. Artifacts are written to the configured stores
(DOCFORGE_STORE, default: the project's output directory).

Examples:
  docforge generate ./shop --docs 3
  docforge generate ./shop --diagram class --diagram sequence
  docforge generate ./shop --docs 2 --diagram database --prototype
  docforge generate ./shop --docs 1 --dry-run`,
	Args: cobra.ExactArgs(1),
	RunE: runGenerate,
}

func init() {
	generateCmd.Flags().IntVarP(&genDocs, "docs", "d", 0, "number of text documents")
	generateCmd.Flags().StringSliceVar(&genDiagrams, "diagram", nil, "diagram kinds (class, sequence, activity, state, usecase, database)")
	generateCmd.Flags().BoolVarP(&genPrototype, "prototype", "p", false, "generate an HTML prototype")
	generateCmd.Flags().IntVarP(&genConcurrency, "concurrency", "c", 4, "agents running at the same time")
	generateCmd.Flags().StringVarP(&genModel, "model", "m", "", "model override for every agent")
}

// stage is one batch of tasks. Later stages are framed with the artifacts of
// earlier ones.
type stage []service.Task

func runGenerate(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	if genDocs == 0 && len(genDiagrams) == 0 && !genPrototype {
		return fmt.Errorf("nothing to generate: pass --docs, --diagram or --prototype")
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

	stages, err := planStages(sess, genDocs, genDiagrams, genPrototype, genModel)
	if err != nil {
		return err
	}

	jobs := service.NewJobManager(genConcurrency, logger)
	svc := service.NewGenerateService(sess.orch, jobs, logger)
	interactive := term.IsTerminal(int(os.Stdout.Fd()))
	projectName := sess.orch.Project().ProjectName

	for i, st := range stages {
		if i > 0 {
			sess.refresh()
		}
		job, err := jobs.CreateJob(projectName, st)
		if err != nil {
			return err
		}
		if err := runStage(ctx, svc, job, interactive); err != nil {
			return err
		}
	}

	fmt.Println()
	printUsage(os.Stdout, collector.Snapshot())
	return nil
}

// planStages registers the agents of a run and orders their tasks.
func planStages(sess *session, docs int, diagrams []string, prototype bool, model string) ([]stage, error) {
	var first, second stage

	if docs > 0 {
		name := defaultAgentName(models.VariantTextDocument, "")
		if _, err := sess.orch.Register(name, models.VariantTextDocument, "", model); err != nil {
			return nil, err
		}
		first = append(first, service.Task{Agent: name, Count: docs})
	}
	seen := map[schema.Kind]bool{}
	for _, d := range diagrams {
		kind, err := schema.ParseKind(d)
		if err != nil {
			return nil, err
		}
		if seen[kind] {
			continue
		}
		seen[kind] = true
		name := defaultAgentName(models.VariantDiagram, kind)
		if _, err := sess.orch.Register(name, models.VariantDiagram, kind, model); err != nil {
			return nil, err
		}
		second = append(second, service.Task{Agent: name, Count: 1})
	}
	if prototype {
		name := defaultAgentName(models.VariantPrototype, "")
		if _, err := sess.orch.Register(name, models.VariantPrototype, "", model); err != nil {
			return nil, err
		}
		second = append(second, service.Task{Agent: name, Count: 1})
	}

	var stages []stage
	for _, st := range []stage{first, second} {
		if len(st) > 0 {
			stages = append(stages, st)
		}
	}
	return stages, nil
}

func runStage(ctx context.Context, svc *service.GenerateService, job *service.Job, interactive bool) error {
	if !interactive {
		_, err := svc.Run(ctx, job)
		fmt.Print(renderJobSummary(defaultTheme, job.Snapshot()))
		return err
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	svc.Start(ctx, job)
	if err := runJobProgress(job, cancel); err != nil {
		return err
	}
	if snap := job.Snapshot(); snap.Status == service.JobStatusFailed {
		return fmt.Errorf("job %s failed: %s", snap.ID, snap.Error)
	}
	return nil
}
