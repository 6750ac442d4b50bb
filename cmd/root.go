package cmd

import (
	"github.com/lberthe/cadence/internal/store"
	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "cadence",
	Short: "Adaptive spaced-repetition practice engine",
	Long: "Cadence schedules reviews with an FSRS memory model and adapts " +
		"question difficulty to the learner's cognitive state.",
}

func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().String("db", "", "Path to SQLite database file (overrides CADENCE_DB env var)")
	rootCmd.PersistentFlags().String("config", "", "Path to YAML config file")
	rootCmd.PersistentFlags().String("user", "default", "Learner profile to use")

	rootCmd.AddCommand(playCmd)
	rootCmd.AddCommand(statsCmd)
	rootCmd.AddCommand(resetCmd)
	rootCmd.AddCommand(versionCmd)
}

// resolveDBPath returns the database path using --db flag (highest
// priority), then CADENCE_DB env var, then the default XDG path.
func resolveDBPath(cmd *cobra.Command, cfgDBPath string) (string, error) {
	if p, _ := cmd.Flags().GetString("db"); p != "" {
		return p, store.EnsureDir(p)
	}
	if cfgDBPath != "" {
		return cfgDBPath, store.EnsureDir(cfgDBPath)
	}
	return store.DefaultDBPath()
}
