package main

import (
	"log/slog"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/kalambet/studyd/internal/config"
)

var version = "dev"

var (
	noColor bool
	envFile string
)

var rootCmd = &cobra.Command{
	Use:   "studyd",
	Short: "Study planner session daemon and CLI",
	Long: `studyd keeps a study-planning session with the planning backend:
the assistant conversation, a focus timer, projects with milestones,
exam plans and study check-ins.

Run "studyd start" to serve the session locally, then drive it with the
other commands or over MCP.`,
	Version:       version,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		return config.LoadEnvFile(envFile)
	},
}

func init() {
	rootCmd.PersistentFlags().BoolVar(&noColor, "no-color", os.Getenv("NO_COLOR") != "", "disable colored output")
	rootCmd.PersistentFlags().StringVar(&envFile, "env-file", ".env", "dotenv file with STUDYD_* overrides")

	rootCmd.AddCommand(startCmd, stopCmd, statusCmd)
	rootCmd.AddCommand(chatCmd, timerCmd, projectsCmd, examsCmd)
	rootCmd.AddCommand(profileCmd, checkinCmd, dashboardCmd, calendarCmd)
	rootCmd.AddCommand(noticesCmd, xpCmd, configCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		printError("%v", err)
		os.Exit(1)
	}
}

// parseLevel maps a log.level config value to a slog level. Unknown values
// fall back to info.
func parseLevel(s string) slog.Level {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
