package main

import (
	"encoding/json"
	"fmt"
	"os"

	"deploystatus/internal/project"

	"github.com/spf13/cobra"
)

var checkConfigFile string

var checkCmd = &cobra.Command{
	Use:   "check <project>",
	Short: "Resolve a project's deployment status once and print it",
	Long: `Resolve the deployment status of a single configured project and print
the normalized record as JSON. Useful from scripts and cron jobs where
running the server is overkill.`,
	Args: cobra.ExactArgs(1),
	RunE: runCheck,
}

func init() {
	checkCmd.Flags().StringVarP(&checkConfigFile, "config", "c", getEnvOrDefault("DEPLOYSTATUS_CONFIG_FILE", ""), "Path to projects.yaml configuration file")
}

func runCheck(cmd *cobra.Command, args []string) error {
	projectName := args[0]

	configFile, err := findConfigFile(checkConfigFile)
	if err != nil {
		return err
	}

	_, projects, err := project.LoadConfig(configFile)
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}

	if _, ok := projects[projectName]; !ok {
		return fmt.Errorf("project '%s' not found in %s", projectName, configFile)
	}

	resolvers, err := buildResolvers(projects)
	if err != nil {
		return err
	}

	st, err := resolvers[projectName].Get(cmd.Context())
	if err != nil {
		return fmt.Errorf("failed to resolve status for '%s': %w", projectName, err)
	}

	encoder := json.NewEncoder(os.Stdout)
	encoder.SetIndent("", "  ")
	return encoder.Encode(st)
}
