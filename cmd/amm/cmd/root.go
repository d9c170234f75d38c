package cmd

import (
	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

var (
	envFile  string
	logLevel string
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "amm",
	Short: "Constant-product AMM server and tools",
	Long: `amm runs a constant-product market maker over an in-process token ledger.

It provides commands for:
- Serving the HTTP API
- Offline swap quotes
- Streaming swap events from Redis`,
	SilenceUsage: true,
}

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().StringVar(&envFile, "env-file", ".env", "dotenv file loaded before reading the environment")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "log level override (debug, info, warn, error)")
}

func newLogger() *logrus.Logger {
	logger := logrus.New()
	logger.SetFormatter(&logrus.TextFormatter{
		FullTimestamp:   true,
		TimestampFormat: "2006-01-02 15:04:05",
	})
	logger.SetLevel(logrus.InfoLevel)
	return logger
}

// loadEnv must run before anything reads os.Getenv
func loadEnv(logger *logrus.Logger) {
	if envFile == "" {
		return
	}
	if err := godotenv.Load(envFile); err != nil {
		logger.Debugf("no .env file found at %s, using system environment variables", envFile)
	} else {
		logger.Infof("loaded .env from %s", envFile)
	}
}

// applyLevel sets the level from the flag, falling back to the configured one.
func applyLevel(logger *logrus.Logger, configured string) {
	lvl := configured
	if logLevel != "" {
		lvl = logLevel
	}
	if parsed, err := logrus.ParseLevel(lvl); err == nil {
		logger.SetLevel(parsed)
	}
}
