package main

import (
	"fmt"
	"os"

	"deploystatus/internal/project"
	"deploystatus/internal/status"
	"deploystatus/pkg/fileutil"

	gocache "github.com/patrickmn/go-cache"
)

// findConfigFile resolves the configuration path, searching the default
// locations when no explicit path was given.
func findConfigFile(explicit string) (string, error) {
	if explicit != "" {
		return explicit, nil
	}

	searchPaths := fileutil.DefaultConfigPaths("projects.yaml")
	found := fileutil.SearchPathsOptional(searchPaths)
	if found == "" {
		fmt.Fprintf(os.Stderr, "Error: No configuration file found in default locations:\n")
		for _, path := range searchPaths {
			fmt.Fprintf(os.Stderr, "  - %s\n", path)
		}
		fmt.Fprintf(os.Stderr, "Use --config flag to specify a custom location\n")
		return "", fmt.Errorf("configuration file not found")
	}

	return found, nil
}

// buildResolvers constructs one resolver per configured project. All
// resolvers share a single memo cache; entries are namespaced by
// owner/repo@branch so projects never collide.
func buildResolvers(projects map[string]*project.Project) (map[string]*status.Resolver, error) {
	cache := gocache.New(gocache.NoExpiration, 0)

	resolvers := make(map[string]*status.Resolver, len(projects))
	for name, proj := range projects {
		client := status.NewGitHubClient(proj.Token)

		engine, err := status.NewEngine(client, proj.Owner, proj.Repo, proj.PageSize, status.DefaultRetryPolicy(proj.MaxRetries))
		if err != nil {
			return nil, fmt.Errorf("project '%s': %w", name, err)
		}

		resolvers[name] = status.NewResolver(engine, proj.Branch, cache, proj.CacheTTL)
	}

	return resolvers, nil
}

// Helper functions for environment variables
func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvOrDefaultInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		var intVal int
		if _, err := fmt.Sscanf(value, "%d", &intVal); err == nil {
			return intVal
		}
	}
	return defaultValue
}
