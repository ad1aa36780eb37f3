package main

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/ludo-technologies/rux/internal/config"
	"github.com/ludo-technologies/rux/internal/constants"
	"github.com/manifoldco/promptui"
	"github.com/spf13/cobra"
)

// initOptions are the answers that shape a generated rux.yaml
type initOptions struct {
	layout      config.ProjectType
	strictness  config.Strictness
	format      string
	globalFiles []string
	baseDir     string
}

func initCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "init",
		Short: "Generate a rux configuration file",
		Long: `Generate a documented rux.yaml for validating .rux specifications.

The layout decides where specs are discovered, the strictness decides which
optional checks run and whether warnings fail the run. Use --interactive to
answer the same questions in a wizard. Specifications themselves are written
by hand.

Examples:
  # Create rux.yaml in current directory
  rux init

  # Frontend layout with strict imports and JSON reports
  rux init --layout frontend --strictness strict --format json

  # Specs named shared.rux apply to every component
  rux init --global shared.rux

  # Embedded defaults only
  rux init --minimal

  # Interactive setup wizard
  rux init -i`,
		RunE: runInit,
	}

	cmd.Flags().StringP("config", "c", constants.ConfigFileName, "Output path for the config file")
	cmd.Flags().BoolP("force", "f", false, "Overwrite existing config file")
	cmd.Flags().Bool("minimal", false, "Write the embedded defaults without presets")
	cmd.Flags().BoolP("interactive", "i", false, "Interactive setup wizard")
	cmd.Flags().String("layout", string(config.ProjectTypeGeneric), "Spec layout: generic, frontend, backend, monorepo")
	cmd.Flags().String("strictness", string(config.StrictnessStandard), "Enforcement: relaxed, standard, strict")
	cmd.Flags().String("format", constants.OutputFormatText, "Report format: text, json, yaml")
	cmd.Flags().StringSlice("global", nil, "Basenames of specs merged into every component")
	cmd.Flags().String("base-dir", "", "Directory module locations are resolved against")

	return cmd
}

func runInit(cmd *cobra.Command, args []string) error {
	configPath, _ := cmd.Flags().GetString("config")
	force, _ := cmd.Flags().GetBool("force")
	minimal, _ := cmd.Flags().GetBool("minimal")
	interactive, _ := cmd.Flags().GetBool("interactive")

	opts, err := initOptionsFromFlags(cmd)
	if err != nil {
		return err
	}
	if interactive {
		if configPath, err = runInteractiveSetup(opts, configPath); err != nil {
			return err
		}
	}

	if !force {
		if _, err := os.Stat(configPath); err == nil {
			return fmt.Errorf("%s already exists. Use --force to overwrite", configPath)
		}
	}
	dir := filepath.Dir(configPath)
	if dir != "." && dir != "" {
		if _, err := os.Stat(dir); os.IsNotExist(err) {
			return fmt.Errorf("directory does not exist: %s", dir)
		}
	}

	content := config.GetMinimalConfigTemplate()
	if !minimal {
		cfg, err := buildInitConfig(opts)
		if err != nil {
			return err
		}
		content = config.RenderConfigTemplate(cfg)
	}

	if err := os.WriteFile(configPath, []byte(content), 0644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}
	if _, err := config.LoadConfig(configPath); err != nil {
		return fmt.Errorf("generated config does not load: %w", err)
	}

	displayPath := configPath
	if absPath, err := filepath.Abs(configPath); err == nil {
		displayPath = absPath
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Created %s\n", displayPath)
	fmt.Fprintln(cmd.OutOrStdout(), "\nRun 'rux validate' to check your modules against their specifications.")
	return nil
}

func initOptionsFromFlags(cmd *cobra.Command) (*initOptions, error) {
	layout, _ := cmd.Flags().GetString("layout")
	strictness, _ := cmd.Flags().GetString("strictness")
	opts := &initOptions{}
	var err error
	if opts.layout, err = config.ParseProjectType(layout); err != nil {
		return nil, err
	}
	if opts.strictness, err = config.ParseStrictness(strictness); err != nil {
		return nil, err
	}
	opts.format, _ = cmd.Flags().GetString("format")
	opts.globalFiles, _ = cmd.Flags().GetStringSlice("global")
	opts.baseDir, _ = cmd.Flags().GetString("base-dir")
	return opts, nil
}

// buildInitConfig applies the answers on top of the layout and strictness
// presets and checks the result with the same rules a loaded config obeys.
func buildInitConfig(opts *initOptions) (*config.Config, error) {
	cfg := config.NewPresetConfig(opts.layout, opts.strictness)
	if opts.format != "" {
		cfg.Output.Format = strings.ToLower(opts.format)
	}
	if len(opts.globalFiles) > 0 {
		cfg.Discovery.GlobalFiles = append([]string(nil), opts.globalFiles...)
	}
	if opts.baseDir != "" {
		cfg.Validation.BaseDir = opts.baseDir
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

// splitGlobalFiles parses the wizard's comma-separated global_files answer
func splitGlobalFiles(input string) ([]string, error) {
	var names []string
	for _, name := range strings.Split(input, ",") {
		if name = strings.TrimSpace(name); name == "" {
			continue
		}
		if err := config.ValidateGlobalFile(name); err != nil {
			return nil, err
		}
		names = append(names, name)
	}
	return names, nil
}

func validateBaseDir(input string) error {
	if input == "" {
		return nil
	}
	info, err := os.Stat(input)
	if err != nil {
		return fmt.Errorf("cannot read %s", input)
	}
	if !info.IsDir() {
		return fmt.Errorf("%s is not a directory", input)
	}
	return nil
}

type choice struct {
	Label       string
	Description string
	Value       string
}

var choiceTemplates = &promptui.SelectTemplates{
	Label:    "{{ . }}",
	Active:   "\U0001F449 {{ .Label | cyan }} - {{ .Description | faint }}",
	Inactive: "   {{ .Label | white }} - {{ .Description | faint }}",
	Selected: "\U00002705 {{ .Label | green }}",
}

func selectChoice(label string, items []choice) (string, error) {
	prompt := promptui.Select{Label: label, Items: items, Templates: choiceTemplates}
	idx, _, err := prompt.Run()
	if err != nil {
		return "", fmt.Errorf("%s cancelled: %w", strings.ToLower(label), err)
	}
	fmt.Println()
	return items[idx].Value, nil
}

// runInteractiveSetup fills opts from the wizard and returns the output path
func runInteractiveSetup(opts *initOptions, defaultConfigPath string) (string, error) {
	fmt.Println()
	fmt.Println("rux Configuration Setup")
	fmt.Println("=======================")
	fmt.Println()

	layout, err := selectChoice("Where do the .rux specifications live?", []choice{
		{"Anywhere", "**/*.rux", string(config.ProjectTypeGeneric)},
		{"Next to frontend sources", "src/**/*.rux", string(config.ProjectTypeFrontend)},
		{"Backend service", "**/*.rux without tests", string(config.ProjectTypeBackend)},
		{"Monorepo", "packages/ and apps/", string(config.ProjectTypeMonorepo)},
	})
	if err != nil {
		return "", err
	}
	opts.layout = config.ProjectType(layout)

	globals := promptui.Prompt{
		Label:    "Global spec basenames (comma separated)",
		Default:  strings.Join(constants.DefaultGlobalFiles, ", "),
		Validate: func(input string) error {
			_, err := splitGlobalFiles(input)
			return err
		},
	}
	answer, err := globals.Run()
	if err != nil {
		return "", fmt.Errorf("global files input cancelled: %w", err)
	}
	if opts.globalFiles, err = splitGlobalFiles(answer); err != nil {
		return "", err
	}

	baseDir := promptui.Prompt{
		Label:    "Resolve module locations against (empty = spec root)",
		Default:  opts.baseDir,
		Validate: validateBaseDir,
	}
	if opts.baseDir, err = baseDir.Run(); err != nil {
		return "", fmt.Errorf("base directory input cancelled: %w", err)
	}

	strictness, err := selectChoice("How strictly should specifications be enforced?", []choice{
		{"Standard (recommended)", "Warnings fail the run", string(config.StrictnessStandard)},
		{"Relaxed", "Only errors fail the run", string(config.StrictnessRelaxed)},
		{"Strict", "Unlisted imports and missing exports are violations", string(config.StrictnessStrict)},
	})
	if err != nil {
		return "", err
	}
	opts.strictness = config.Strictness(strictness)

	if opts.format, err = selectChoice("Report format", []choice{
		{"Text", "Grouped, colored terminal report", constants.OutputFormatText},
		{"JSON", "For CI annotations and tooling", constants.OutputFormatJSON},
		{"YAML", "Readable structured report", constants.OutputFormatYAML},
	}); err != nil {
		return "", err
	}

	output := promptui.Prompt{Label: "Output file path", Default: defaultConfigPath}
	outputPath, err := output.Run()
	if err != nil {
		return "", fmt.Errorf("output path input cancelled: %w", err)
	}
	if outputPath == "" {
		outputPath = defaultConfigPath
	}
	return outputPath, nil
}
