package cli

import (
	"fmt"
	"strings"

	"github.com/raphaelgruber/docforge/internal/models"
	"github.com/raphaelgruber/docforge/internal/project"
	"github.com/spf13/cobra"
)

var (
	initName      string
	initInput     string
	initOutput    string
	initFurther   string
	initTechStack string
	initFeatures  []string
)

var initCmd = &cobra.Command{
	Use:   "init <project-dir>",
	Short: "Create a project directory",
	Long: `Create project.yaml and the directory layout docforge reads from.

Feature tables go to processed/csv/, UI mockups to processed/images/ui/ and
existing diagrams to processed/images/diagram/. Generated artifacts are
written below output/.

Examples:
  docforge init ./shop --name "Shop" --input "Excel order lists" --output "web shop" \
      --feature "checkout=Pay with card or invoice" --further "GDPR compliant"`,
	Args: cobra.ExactArgs(1),
	RunE: runInit,
}

func init() {
	initCmd.Flags().StringVarP(&initName, "name", "n", "", "project name (default: directory name)")
	initCmd.Flags().StringVar(&initInput, "input", "", "what the system receives")
	initCmd.Flags().StringVar(&initOutput, "output", "", "what the system delivers")
	initCmd.Flags().StringVar(&initFurther, "further", "", "further requirements")
	initCmd.Flags().StringVar(&initTechStack, "tech-stack", "", "technology stack")
	initCmd.Flags().StringArrayVarP(&initFeatures, "feature", "f", nil, "feature as name=description (repeatable)")
}

func runInit(cmd *cobra.Command, args []string) error {
	features, err := parseFeatures(initFeatures)
	if err != nil {
		return err
	}

	m := project.Manifest{
		Name: initName,
		Requirements: models.Requirements{
			Input:    initInput,
			Output:   initOutput,
			Features: features,
			Further:  initFurther,
		},
		TechStack: initTechStack,
	}
	if err := project.Create(args[0], m); err != nil {
		return err
	}

	fmt.Printf("Created project in %s\n", args[0])
	if !m.Requirements.Complete() {
		fmt.Printf("Fill in the requirements in %s before generating.\n", project.Paths{Root: args[0]}.Manifest())
	}
	fmt.Printf("Add feature tables to %s.\n", project.Paths{Root: args[0]}.CSV())
	return nil
}

func parseFeatures(specs []string) (map[string]string, error) {
	if len(specs) == 0 {
		return nil, nil
	}
	out := make(map[string]string, len(specs))
	for _, s := range specs {
		name, desc, ok := strings.Cut(s, "=")
		name = strings.TrimSpace(name)
		if !ok || name == "" {
			return nil, fmt.Errorf("invalid feature %q: expected name=description", s)
		}
		out[name] = strings.TrimSpace(desc)
	}
	return out, nil
}
