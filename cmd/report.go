package cmd

import (
	"encoding/json"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spigell/interview-agent/internal/store"
	"go.uber.org/zap"
)

var reportCmd = &cobra.Command{
	Use:   "report <interview-id>",
	Short: "Compile and print the report of a stored interview",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		printStoredReport(cmd, args[0])
	},
}

func init() {
	rootCmd.AddCommand(reportCmd)
}

func printStoredReport(cmd *cobra.Command, interviewID string) {
	ctx := cmd.Context()

	config, logger := bootstrap()
	defer logger.Sync()

	driver := strings.ToLower(strings.TrimSpace(config.Store.Driver))
	if driver == "" || driver == store.DriverMemory {
		logger.Fatal("report needs a persistent store", zap.Error(errMemoryStore))
	}

	app, err := newApplication(ctx, config, logger)
	if err != nil {
		logger.Fatal("building the application", zap.Error(err))
	}
	defer app.Close()

	r, err := app.engine.Report(ctx, interviewID)
	if err != nil {
		logger.Fatal("compiling the report", zap.String("interview_id", interviewID), zap.Error(err))
	}

	encoder := json.NewEncoder(os.Stdout)
	encoder.SetIndent("", "  ")
	if err := encoder.Encode(r); err != nil {
		logger.Fatal("printing the report", zap.Error(err))
	}
}
