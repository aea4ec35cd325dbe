package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/procwave/procwave/internal/config"
	"github.com/procwave/procwave/internal/logging"
)

var cfgFile string

// rootCmd represents the base command
var rootCmd = &cobra.Command{
	Use:   "procwave",
	Short: "Local load-generation harness",
	Long: `procwave spawns an exponentially growing population of CPU- and
memory-consuming worker processes in timed waves, and tears all of them
down cleanly on demand or on interrupt.`,
	SilenceUsage: true,
}

// Execute adds all child commands to the root command and sets flags appropriately
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is $HOME/.procwave/config.yaml)")
	rootCmd.PersistentFlags().String("log-level", config.DefaultLogLevel, "log level (debug, info, warn, error)")
	rootCmd.PersistentFlags().Bool("log-json", false, "emit logs as JSON")

	viper.BindPFlag("log_level", rootCmd.PersistentFlags().Lookup("log-level"))
	viper.BindPFlag("log_json", rootCmd.PersistentFlags().Lookup("log-json"))
}

// initConfig reads in config file and ENV variables if set
func initConfig() {
	config.BindDefaults(viper.GetViper())

	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		dir, err := config.Dir()
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error finding home directory: %v\n", err)
			os.Exit(1)
		}
		viper.AddConfigPath(dir)
		viper.SetConfigName("config")
		viper.SetConfigType("yaml")
	}

	viper.SetEnvPrefix("PROCWAVE")
	viper.AutomaticEnv()

	// Missing config file is fine; defaults and flags cover everything.
	_ = viper.ReadInConfig()
}

// loadConfig materializes the sanitized configuration and logs any
// corrections it had to make.
func loadConfig(log *logging.Logger) config.Config {
	cfg, notes := config.FromViper(viper.GetViper())
	for _, note := range notes {
		log.Warn("invalid config input", map[string]interface{}{"note": note})
	}
	return cfg
}

// newLogger builds the process logger from viper state.
func newLogger() *logging.Logger {
	return logging.New(logging.ParseLevel(viper.GetString("log_level")), viper.GetBool("log_json"))
}
