package commands

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/leapstack-labs/scoreprep/internal/cli/output"
	sharedcfg "github.com/leapstack-labs/scoreprep/internal/config"
)

const configHeader = `# scoreprep configuration
#
# Paths are relative to this file. Every key can be overridden with a
# SCOREPREP_ environment variable (SCOREPREP_SOURCE__TYPE for source.type)
# or the matching command-line flag.
`

// NewInitCommand creates the init command.
func NewInitCommand() *cobra.Command {
	var force bool

	cmd := &cobra.Command{
		Use:   "init [directory]",
		Short: "Initialize a new scoreprep project",
		Long: `Initialize a new scoreprep project.

This creates:
  - scoreprep.yaml with the default schema and paths
  - artifacts/ directory for the input CSVs and the fitted preprocessor`,
		Example: `  # Initialize in current directory
  scoreprep init

  # Initialize in a new directory
  scoreprep init my-project

  # Force overwrite existing config
  scoreprep init --force`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			dir := "."
			if len(args) > 0 {
				dir = args[0]
			}
			r := output.NewRenderer(cmd.OutOrStdout(), cmd.ErrOrStderr(), output.ModeAuto)
			return runInit(r, dir, force)
		},
	}

	cmd.Flags().BoolVar(&force, "force", false, "Overwrite existing configuration")

	return cmd
}

func runInit(r *output.Renderer, dir string, force bool) error {
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return fmt.Errorf("failed to create directory %s: %w", dir, err)
	}

	configPath := filepath.Join(dir, sharedcfg.ConfigFileName)
	if _, err := os.Stat(configPath); err == nil && !force {
		return fmt.Errorf("%s already exists. Use --force to overwrite", sharedcfg.ConfigFileName)
	}

	content, err := defaultConfigYAML()
	if err != nil {
		return err
	}
	if err := os.WriteFile(configPath, content, 0o600); err != nil {
		return fmt.Errorf("failed to write %s: %w", configPath, err)
	}
	project, err := sharedcfg.LoadFromDir(dir)
	if err != nil {
		return fmt.Errorf("written config does not load: %w", err)
	}
	if err := project.Schema.Validate(); err != nil {
		return fmt.Errorf("written config is invalid: %w", err)
	}

	artifactsDir := filepath.Join(dir, sharedcfg.DefaultArtifactsDir)
	if err := os.MkdirAll(artifactsDir, 0o750); err != nil {
		return fmt.Errorf("failed to create %s: %w", artifactsDir, err)
	}

	r.Success("Created " + configPath)
	r.Success("Created " + artifactsDir + string(filepath.Separator))
	r.Println("")
	r.Println("Next steps:")
	r.Printf("  1. Copy train.csv and test.csv into %s\n", artifactsDir)
	r.Println("  2. Run 'scoreprep transform'")
	return nil
}

// defaultConfigYAML renders the default project configuration.
func defaultConfigYAML() ([]byte, error) {
	cfg := sharedcfg.ProjectConfig{}
	sharedcfg.ApplyDefaults(&cfg)

	var buf bytes.Buffer
	buf.WriteString(configHeader)
	enc := yaml.NewEncoder(&buf)
	enc.SetIndent(2)
	if err := enc.Encode(cfg); err != nil {
		return nil, fmt.Errorf("failed to render config: %w", err)
	}
	if err := enc.Close(); err != nil {
		return nil, fmt.Errorf("failed to render config: %w", err)
	}
	return buf.Bytes(), nil
}
