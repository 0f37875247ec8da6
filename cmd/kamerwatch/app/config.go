package app

import (
	"os"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"

	"github.com/kamerwatch/kamerwatch"
)

// Config holds the application configuration loaded from flags, environment
// variables, .env files and the optional config file.
type Config struct {
	// Global flags
	Verbose bool
	Quiet   bool

	// Config file actually used, if any
	ConfigFile string

	// Kamerwatch configuration
	DossierFile string
	SnapshotDir string
	ResultsDir  string
	WebhookURL  string

	// Logging configuration
	LogLevel  string
	LogFormat string
}

// LoadConfig loads configuration from all sources in order of precedence:
// command-line flags (handled by cobra), environment variables, .env files,
// the config file (~/.kamerwatch.yaml), and defaults.
func LoadConfig() (*Config, error) {
	loadEnvFiles()

	viper.AutomaticEnv()
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))

	if configFile := viper.GetString("config"); configFile != "" {
		viper.SetConfigFile(configFile)
	} else if home, err := os.UserHomeDir(); err == nil {
		viper.AddConfigPath(home)
		viper.AddConfigPath(".")
		viper.SetConfigType("yaml")
		viper.SetConfigName(".kamerwatch")
	}

	// Absent config file is fine, env and flags cover everything.
	_ = viper.ReadInConfig()

	config := &Config{
		Verbose: viper.GetBool("verbose"),
		Quiet:   viper.GetBool("quiet"),

		ConfigFile: viper.ConfigFileUsed(),

		DossierFile: viper.GetString("dossier_file"),
		SnapshotDir: viper.GetString("snapshot_dir"),
		ResultsDir:  viper.GetString("results_dir"),
		WebhookURL:  viper.GetString("webhook_url"),

		LogLevel:  getEnvOrDefault("LOG_LEVEL", ""),
		LogFormat: getEnvOrDefault("LOG_FORMAT", "auto"),
	}

	if config.DossierFile == "" {
		config.DossierFile = kamerwatch.DefaultConfigFile
	}
	if config.SnapshotDir == "" {
		config.SnapshotDir = kamerwatch.DefaultSnapshotDir
	}
	if config.ResultsDir == "" {
		config.ResultsDir = kamerwatch.DefaultResultsDir
	}

	return config, nil
}

// loadEnvFiles loads .env files in order of precedence, .env.local last so it
// overrides .env.
func loadEnvFiles() {
	for _, envFile := range []string{".env", ".env.local"} {
		_ = godotenv.Overload(envFile)
	}
}

func getEnvOrDefault(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
