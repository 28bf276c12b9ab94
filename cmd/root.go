package cmd

import (
	"errors"
	"io/fs"
	"log"
	"os"
	"time"

	"github.com/joho/godotenv"
	"github.com/spigell/interview-caller/internal/candidates"
	"github.com/spigell/interview-caller/internal/httpapi"
	"github.com/spigell/interview-caller/internal/jsonfile"
	"github.com/spigell/interview-caller/internal/logger"
	"github.com/spigell/interview-caller/internal/webhook"
	"go.uber.org/zap"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

const (
	app = "interview-caller"
)

type Config struct {
	Storage    *StorageConfig    `mapstructure:"storage"`
	HTTP       *HTTPConfig       `mapstructure:"http"`
	Webhook    *WebhookConfig    `mapstructure:"webhook"`
	Bolna      *BolnaConfig      `mapstructure:"bolna"`
	Classifier *ClassifierConfig `mapstructure:"classifier"`
}

type StorageConfig struct {
	DataDir           string `mapstructure:"data-dir"`
	UnidentifiedLimit int    `mapstructure:"unidentified-limit"`
}

type HTTPConfig struct {
	Host            string        `mapstructure:"host"`
	Port            int           `mapstructure:"port"`
	ReleaseMode     bool          `mapstructure:"release-mode"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown-timeout"`
	TrustedProxies  []string      `mapstructure:"trusted-proxies"`
}

type WebhookConfig struct {
	AllowedIPs           []string `mapstructure:"allowed-ips"`
	RateLimit            float64  `mapstructure:"rate-limit"`
	RateBurst            int      `mapstructure:"rate-burst"`
	InterimTranscriptMin int      `mapstructure:"interim-transcript-min"`
}

type BolnaConfig struct {
	APIURL     string `mapstructure:"api-url"`
	APIKey     string `mapstructure:"api-key"`
	APIKeyFile string `mapstructure:"api-key-file"`
	AgentID    string `mapstructure:"agent-id"`
	CallerID   string `mapstructure:"caller-id"`
}

type ClassifierConfig struct {
	Gemini *GeminiConfig `mapstructure:"gemini"`
}

type GeminiConfig struct {
	Enabled           bool    `mapstructure:"enabled"`
	APIKey            string  `mapstructure:"api-key"`
	APIKeyFile        string  `mapstructure:"api-key-file"`
	Model             string  `mapstructure:"model"`
	MinimumConfidence float64 `mapstructure:"minimum-confidence"`
	MaxLogLength      int     `mapstructure:"max-log-length"`
}

var (
	// Used for flags.
	cfgFile string

	rootCmd = &cobra.Command{
		Use:   app,
		Short: "interview-caller confirms scheduled interviews with candidates over AI voice calls",
	}

	osExit = os.Exit
)

// Execute executes the root command.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	envBindings := map[string]string{
		"bolna.api-key":             "BOLNA_API_KEY",
		"bolna.agent-id":            "AGENT_ID",
		"bolna.caller-id":           "CALLER_ID",
		"classifier.gemini.api-key": "GEMINI_API_KEY",
	}
	for key, env := range envBindings {
		if err := viper.BindEnv(key, env); err != nil {
			log.Fatalf("binding %s environment variable: %v", env, err)
		}
	}

	viper.SetDefault("storage.data-dir", "data")
	viper.SetDefault("storage.unidentified-limit", 200)
	viper.SetDefault("http.host", "0.0.0.0")
	viper.SetDefault("http.port", 5000)
	viper.SetDefault("http.shutdown-timeout", 10*time.Second)
	viper.SetDefault("webhook.allowed-ips", httpapi.DefaultAllowedIPs)
	viper.SetDefault("webhook.rate-limit", 5.0)
	viper.SetDefault("webhook.rate-burst", 20)
	viper.SetDefault("webhook.interim-transcript-min", webhook.DefaultInterimTranscriptMin)
	viper.SetDefault("classifier.gemini.minimum-confidence", 0.6)

	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "a config file (default is interview-caller.yaml in current directory)")
	rootCmd.PersistentFlags().BoolP("debug", "d", false, "verbose/debug output")
	rootCmd.PersistentFlags().BoolP("json", "j", false, "json format for logging")
	rootCmd.PersistentFlags().String("data-dir", "", "directory with the JSON documents (default is ./data)")

	viper.BindPFlag("debug", rootCmd.PersistentFlags().Lookup("debug"))
	viper.BindPFlag("json", rootCmd.PersistentFlags().Lookup("json"))
	viper.BindPFlag("storage.data-dir", rootCmd.PersistentFlags().Lookup("data-dir"))
}

func initConfig() {
	// .env only fills variables that are not set already.
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		log.Fatalf("loading .env: %v", err)
	}

	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		viper.AddConfigPath(".")
		viper.SetConfigName(app)
	}

	// The config file is optional unless given explicitly.
	if err := viper.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if cfgFile != "" || !errors.As(err, &notFound) {
			log.Fatal(err)
		}
	}
}

func getConfig() (*Config, error) {
	var config *Config
	err := viper.Unmarshal(&config)
	if err != nil {
		return config, err
	}

	if config.Storage == nil {
		config.Storage = &StorageConfig{}
	}
	if config.HTTP == nil {
		config.HTTP = &HTTPConfig{}
	}
	if config.Webhook == nil {
		config.Webhook = &WebhookConfig{}
	}
	if config.Bolna == nil {
		config.Bolna = &BolnaConfig{}
	}
	if config.Classifier == nil {
		config.Classifier = &ClassifierConfig{}
	}
	if config.Classifier.Gemini == nil {
		config.Classifier.Gemini = &GeminiConfig{}
	}

	return config, nil
}

func newLogger() *zap.Logger {
	logger, err := logger.New(viper.GetBool("json"), viper.GetBool("debug"))
	if err != nil {
		log.Fatalf("creating a logger: %s", err)
	}
	return logger
}

// exitCode is 2 for storage failures and 1 for everything else.
func exitCode(err error) int {
	if jsonfile.IsStorage(err) {
		return 2
	}
	return 1
}

func exitOnError(logger *zap.Logger, msg string, err error) {
	if err == nil {
		return
	}

	fields := []zap.Field{zap.Error(err)}
	switch {
	case errors.Is(err, candidates.ErrNotFound):
		fields = append(fields, zap.String("kind", "not_found"))
	case candidates.IsValidation(err):
		fields = append(fields, zap.String("kind", "validation"))
	case jsonfile.IsStorage(err):
		fields = append(fields, zap.String("kind", "storage"))
	}

	logger.Error(msg, fields...)
	_ = logger.Sync()
	osExit(exitCode(err))
}
