// Package main provides the CLI application for the sonardash metrics
// dashboard. This CLI serves as the application orchestrator using the
// Cobra framework.
package main

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"sonardash/src/broker"
	"sonardash/src/config"
	"sonardash/src/logger"
	"sonardash/src/metrics"
	"sonardash/src/pipeline"
	"sonardash/src/sonar"
	"sonardash/src/tablestore"
	"sonardash/src/tui"
)

var (
	// Application configuration
	appConfig *config.Config
	// Shared cache over the configured table store
	cache *metrics.Store
	// Optional event broker, nil when no brokers are configured
	msgBroker broker.Broker
	// Refresh pipeline over the SonarCloud client and the cache
	appPipeline *pipeline.Pipeline

	flagDays  int
	flagDebug bool
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "sonardash",
	Short: "Sonardash - a cached dashboard for SonarCloud code-quality metrics",
	Long: `Sonardash fetches code-quality metrics from SonarCloud, caches them
in a key-value table store, and renders them as trends.

Reads are served from the cache whenever it holds fresh, complete data
for the requested window; otherwise the data is fetched from SonarCloud
and cached for the next request.`,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		var err error
		appConfig, err = config.LoadFromEnv()
		if err != nil {
			fmt.Fprintf(os.Stderr, "Configuration error: %v\n", err)
			fmt.Fprintln(os.Stderr, "Please set the SONARCLOUD_TOKEN and SONARCLOUD_ORG environment variables")
			os.Exit(1)
		}

		table, err := tablestore.Open(appConfig.StorageProvider, appConfig.DatabaseURL)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Storage error: %v\n", err)
			os.Exit(1)
		}

		var log logger.Logger = logger.NewCharmLogger(flagDebug)
		if cmd.Name() == "dashboard" {
			// TUI mode needs quiet logging to keep the display clean
			log = logger.NewSilentLogger()
		}

		cache = metrics.NewStore(table, log)
		if appConfig.MaxRows > 0 {
			cache.SetMaxRows(appConfig.MaxRows)
		}

		if len(appConfig.RedpandaBrokers) > 0 {
			msgBroker, err = broker.NewRedpandaBroker(appConfig.RedpandaBrokers)
			if err != nil {
				fmt.Fprintf(os.Stderr, "Broker error: %v\n", err)
				os.Exit(1)
			}
		}

		client := sonar.NewClient(appConfig.SonarToken)
		appPipeline = pipeline.New(client, cache, msgBroker, log)
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if msgBroker != nil {
			msgBroker.Close()
		}
		if cache != nil {
			cache.Close()
		}
	},
}

// fetchCmd fetches metrics for one project branch, cache first.
var fetchCmd = &cobra.Command{
	Use:   "fetch [project-key] [branch]",
	Short: "Fetch metrics for one project branch (served from cache when fresh)",
	Args:  cobra.ExactArgs(2),
	Run: func(cmd *cobra.Command, args []string) {
		result, err := appPipeline.FetchMetrics(context.Background(), args[0], args[1], flagDays)
		if err != nil {
			fmt.Fprintln(os.Stderr, sonar.WrapError(err))
			os.Exit(1)
		}

		source := "SonarCloud"
		if result.FromCache {
			source = "cache"
		}
		fmt.Printf("%s/%s: %d records over %d days (from %s)\n",
			result.ProjectKey, result.Branch, len(result.Records), flagDays, source)
		if result.Truncated {
			fmt.Println("⚠️  Result truncated by the row limit; narrow the window or raise SONARDASH_MAX_ROWS.")
		}
	},
}

// refreshCmd refreshes every project and branch of the organization.
var refreshCmd = &cobra.Command{
	Use:   "refresh",
	Short: "Refresh metrics for every project and branch in the organization",
	Run: func(cmd *cobra.Command, args []string) {
		results, err := appPipeline.RefreshOrganization(context.Background(), appConfig.Organization, flagDays)
		if err != nil {
			fmt.Fprintln(os.Stderr, sonar.WrapError(err))
			os.Exit(1)
		}

		hits := 0
		for _, r := range results {
			if r.FromCache {
				hits++
			}
		}
		fmt.Printf("Refreshed %d project branches (%d served from cache)\n", len(results), hits)
	},
}

// projectsCmd lists every identity the cache has seen.
var projectsCmd = &cobra.Command{
	Use:   "projects",
	Short: "List every project and branch known to the cache",
	Run: func(cmd *cobra.Command, args []string) {
		refs, err := cache.ListKnownProjects(context.Background())
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error listing projects: %v\n", err)
			os.Exit(1)
		}

		if len(refs) == 0 {
			fmt.Println("No cached projects. Run 'sonardash refresh' to populate the cache.")
			return
		}
		for _, ref := range refs {
			fmt.Printf("%s\t%s\n", ref.ProjectKey, ref.Branch)
		}
	},
}

// coverageCmd reports cache coverage without fetching.
var coverageCmd = &cobra.Command{
	Use:   "coverage [project-key] [branch]",
	Short: "Report whether the cache covers a window for one project branch",
	Args:  cobra.ExactArgs(2),
	Run: func(cmd *cobra.Command, args []string) {
		report, err := cache.CheckCoverage(context.Background(), args[0], args[1], flagDays, timeNowUTC())
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error checking coverage: %v\n", err)
			os.Exit(1)
		}

		if report.HasCoverage {
			fmt.Printf("✅ Cache covers the last %d days (%d observations, latest %s)\n",
				flagDays, report.RecordCount, report.LatestDate.Format("2006-01-02"))
			return
		}
		fmt.Printf("❌ Cache does not cover the last %d days: %s\n", flagDays, report.Reason)
		for _, m := range report.MissingMetrics {
			fmt.Printf("   missing metric: %s\n", m)
		}
	},
}

// deleteCmd removes one identity's cached rows.
var deleteCmd = &cobra.Command{
	Use:   "delete [project-key] [branch]",
	Short: "Delete the cached rows of one project branch",
	Args:  cobra.ExactArgs(2),
	Run: func(cmd *cobra.Command, args []string) {
		deleted, err := cache.Delete(context.Background(), args[0], args[1])
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error deleting rows: %v\n", err)
			os.Exit(1)
		}
		fmt.Printf("Deleted %d rows for %s/%s\n", deleted, args[0], args[1])
	},
}

// dashboardCmd launches the interactive TUI.
var dashboardCmd = &cobra.Command{
	Use:   "dashboard",
	Short: "Launch the interactive metrics dashboard",
	Run: func(cmd *cobra.Command, args []string) {
		source := &pipelineSource{pipeline: appPipeline, cache: cache}
		if err := tui.Start(source, appConfig.Organization, flagDays); err != nil {
			fmt.Fprintf(os.Stderr, "TUI error: %v\n", err)
			os.Exit(1)
		}
	},
}

func init() {
	rootCmd.AddCommand(fetchCmd)
	rootCmd.AddCommand(refreshCmd)
	rootCmd.AddCommand(projectsCmd)
	rootCmd.AddCommand(coverageCmd)
	rootCmd.AddCommand(deleteCmd)
	rootCmd.AddCommand(dashboardCmd)

	rootCmd.PersistentFlags().IntVarP(&flagDays, "days", "d", 30, "Trailing window in days")
	rootCmd.PersistentFlags().BoolVar(&flagDebug, "debug", false, "Enable debug logging")
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
