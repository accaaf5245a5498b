package cmd

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/Aman-CERP/dirwatch/internal/config"
	"github.com/Aman-CERP/dirwatch/internal/output"
)

const configPrecedence = `Configuration precedence (lowest to highest):
  1. Hardcoded defaults
  2. User config (~/.config/dirwatch/config.yaml)
  3. Project config (.dirwatch.yaml)
  4. Environment variables (DIRWATCH_*)
  5. Command-line flags`

func newConfigCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Manage configuration",
		Long:  "Inspect and create dirwatch configuration files.\n\n" + configPrecedence,
		Example: `  # Create .dirwatch.yaml in the current directory
  dirwatch config init

  # Show effective configuration (merged from all sources)
  dirwatch config show

  # Print user config file path
  dirwatch config path`,
	}

	cmd.AddCommand(newConfigInitCmd())
	cmd.AddCommand(newConfigShowCmd())
	cmd.AddCommand(newConfigPathCmd())

	return cmd
}

func newConfigInitCmd() *cobra.Command {
	var (
		force bool
		user  bool
		dir   string
	)

	cmd := &cobra.Command{
		Use:   "init",
		Short: "Create a configuration file with defaults",
		Long: `Write a configuration file holding the default settings.

By default the project file .dirwatch.yaml is written to the current
directory. With --user the user configuration is written instead.
An existing file is kept unless --force is given, in which case it is
backed up first.`,
		Example: `  # Create project config
  dirwatch config init

  # Replace the user config, keeping a backup
  dirwatch config init --user --force`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runConfigInit(cmd, dir, user, force)
		},
	}

	cmd.Flags().BoolVar(&force, "force", false, "Overwrite an existing configuration (a backup is kept)")
	cmd.Flags().BoolVar(&user, "user", false, "Write the user configuration instead of the project one")
	cmd.Flags().StringVar(&dir, "dir", "", "Project directory (default: current directory)")

	return cmd
}

func newConfigShowCmd() *cobra.Command {
	var (
		jsonOutput bool
		source     string
		dir        string
	)

	cmd := &cobra.Command{
		Use:   "show",
		Short: "Show effective configuration",
		Long:  "Show the configuration after merging all sources.\n\n" + configPrecedence,
		Example: `  # Show merged configuration
  dirwatch config show

  # Show as JSON
  dirwatch config show --json

  # Show only the user config
  dirwatch config show --source user`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runConfigShow(cmd, dir, source, jsonOutput)
		},
	}

	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Output as JSON")
	cmd.Flags().StringVar(&source, "source", "merged", "Config source: merged, user, project, defaults")
	cmd.Flags().StringVar(&dir, "dir", "", "Project directory (default: current directory)")

	return cmd
}

func newConfigPathCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "path",
		Short: "Print user config file path",
		RunE: func(cmd *cobra.Command, _ []string) error {
			_, err := fmt.Fprintln(cmd.OutOrStdout(), config.GetUserConfigPath())
			return err
		},
	}
}

func projectDir(dir string) (string, error) {
	if dir != "" {
		return dir, nil
	}
	cwd, err := os.Getwd()
	if err != nil {
		return "", fmt.Errorf("failed to get current directory: %w", err)
	}
	return cwd, nil
}

func runConfigInit(cmd *cobra.Command, dir string, user, force bool) error {
	out := output.New(cmd.OutOrStdout())

	var configPath string
	if user {
		configPath = config.GetUserConfigPath()
	} else {
		root, err := projectDir(dir)
		if err != nil {
			return err
		}
		configPath, _ = config.ProjectConfigPath(root)
	}

	var backupPath string
	if _, err := os.Stat(configPath); err == nil {
		if !force {
			out.Warning("Configuration already exists")
			out.KeyValue("Location", configPath, 10)
			out.Newline()
			out.Status("", "Use --force to replace it (a backup is kept)")
			return nil
		}
		backupPath, err = config.BackupFile(configPath)
		if err != nil {
			return fmt.Errorf("failed to backup config: %w", err)
		}
	}

	if err := config.NewConfig().WriteYAML(configPath); err != nil {
		return err
	}

	out.Success("Created configuration")
	out.KeyValue("Location", configPath, 10)
	if backupPath != "" {
		out.KeyValue("Backup", backupPath, 10)
	}
	out.Newline()
	out.Status("", "Add targets to the file, then run 'dirwatch config show' to verify")
	return nil
}

func runConfigShow(cmd *cobra.Command, dir, source string, jsonOutput bool) error {
	out := output.New(cmd.OutOrStdout())

	var cfg *config.Config
	var sourceDesc string

	switch source {
	case "merged":
		root, err := projectDir(dir)
		if err != nil {
			return err
		}
		cfg, err = config.Load(root)
		if err != nil {
			return err
		}
		sourceDesc = "merged (defaults + user + project + env)"

	case "user":
		path := config.GetUserConfigPath()
		loaded, err := config.LoadUserConfig()
		if err != nil {
			return err
		}
		if loaded == nil {
			out.Warning("No user configuration file found")
			out.KeyValue("Expected at", path, 13)
			out.Status("", "Run 'dirwatch config init --user' to create one")
			return nil
		}
		cfg = loaded
		sourceDesc = fmt.Sprintf("user (%s)", path)

	case "project":
		root, err := projectDir(dir)
		if err != nil {
			return err
		}
		path, ok := config.ProjectConfigPath(root)
		if !ok {
			out.Warning("No project configuration file found")
			out.KeyValue("Expected at", path, 13)
			out.Status("", "Run 'dirwatch config init' to create one")
			return nil
		}
		data, err := os.ReadFile(path)
		if err != nil {
			return fmt.Errorf("failed to read project config: %w", err)
		}
		cfg = &config.Config{}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return fmt.Errorf("failed to parse project config: %w", err)
		}
		sourceDesc = fmt.Sprintf("project (%s)", path)

	case "defaults":
		cfg = config.NewConfig()
		sourceDesc = "defaults (hardcoded)"

	default:
		return fmt.Errorf("invalid source: %s (use: merged, user, project, defaults)", source)
	}

	if jsonOutput {
		enc := json.NewEncoder(cmd.OutOrStdout())
		enc.SetIndent("", "  ")
		return enc.Encode(cfg)
	}

	out.Statusf("", "# Configuration source: %s", sourceDesc)
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}
	out.Code(string(data))
	return nil
}
