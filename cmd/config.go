package cmd

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/bouyassine11/AnalytIQ/internal/ai"
	cfgpkg "github.com/bouyassine11/AnalytIQ/internal/config"
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "View or set AnalytIQ configuration",
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show effective configuration",
	RunE: func(cmd *cobra.Command, args []string) error {
		if cfg == nil {
			fmt.Fprintln(cmd.OutOrStdout(), "No config loaded")
			return nil
		}
		out := cmd.OutOrStdout()
		fmt.Fprintf(out, "api_key: %s\n", mask(cfg.APIKey))
		fmt.Fprintf(out, "insight_provider: %s\n", cfg.InsightProvider)
		model := cfg.InsightModel
		if model == "" {
			model = ai.DefaultModel(ai.NormalizeProvider(cfg.InsightProvider)) + " (default)"
		}
		fmt.Fprintf(out, "insight_model: %s\n", model)
		fmt.Fprintf(out, "insight_timeout_sec: %d\n", cfg.InsightTimeoutSec)
		fmt.Fprintf(out, "max_tokens: %d\n", cfg.MaxTokens)
		fmt.Fprintf(out, "temperature: %.3f\n", cfg.Temperature)
		if cfg.InsightProvider == ai.ProviderOllama {
			fmt.Fprintf(out, "ollama_host: %s\n", cfg.OllamaHost)
		}
		fmt.Fprintf(out, "store_driver: %s\n", cfg.StoreDriver)
		if cfg.StoreDSN != "" {
			fmt.Fprintf(out, "store_dsn: %s\n", maskDSN(cfg.StoreDSN))
		}
		fmt.Fprintf(out, "data_dir: %s\n", cfg.DataDir)
		fmt.Fprintf(out, "upload_dir: %s\n", cfg.UploadDir)
		fmt.Fprintf(out, "workers: %d\n", cfg.Workers)
		fmt.Fprintf(out, "listen_addr: %s\n", cfg.ListenAddr)
		fmt.Fprintf(out, "log_level: %s\n", cfg.LogLevel)
		fmt.Fprintf(out, "log_format: %s\n", cfg.LogFormat)
		return nil
	},
}

var configSetCmd = &cobra.Command{
	Use:   "set <key> <value>",
	Short: "Set a config value and save to disk",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		if cfg == nil {
			c, err := cfgpkg.Load(cfgFile)
			if err != nil {
				return err
			}
			cfg = c
		}
		if err := applyConfigValue(cfg, args[0], args[1]); err != nil {
			return err
		}
		if err := cfgpkg.Save(cfg, cfgFile); err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), "Saved config")
		return nil
	},
}

func applyConfigValue(c *cfgpkg.Global, key, val string) error {
	atoi := func(lo int) (int, error) {
		i, err := strconv.Atoi(val)
		if err != nil || i < lo {
			return 0, fmt.Errorf("invalid int for %s: %v", key, val)
		}
		return i, nil
	}
	var err error
	switch key {
	case "api_key":
		c.APIKey = val
	case "insight_provider":
		p := ai.NormalizeProvider(val)
		switch p {
		case ai.ProviderHuggingFace, ai.ProviderOpenRouter, ai.ProviderOllama, ai.ProviderNone:
			c.InsightProvider = p
		default:
			return fmt.Errorf("invalid insight_provider: %s (use huggingface, openrouter, ollama or none)", val)
		}
	case "insight_model":
		c.InsightModel = val
	case "insight_timeout_sec":
		c.InsightTimeoutSec, err = atoi(1)
	case "max_tokens":
		c.MaxTokens, err = atoi(1)
	case "temperature":
		f, perr := strconv.ParseFloat(val, 64)
		if perr != nil || f < 0 {
			return fmt.Errorf("invalid float for temperature: %v", val)
		}
		c.Temperature = f
	case "http_timeout_sec":
		c.HTTPTimeoutSec, err = atoi(1)
	case "retry_max_attempts":
		c.RetryMaxAttempts, err = atoi(1)
	case "retry_base_delay_ms":
		c.RetryBaseDelayMs, err = atoi(0)
	case "retry_max_delay_ms":
		c.RetryMaxDelayMs, err = atoi(0)
	case "ollama_host":
		c.OllamaHost = val
	case "store_driver":
		switch d := strings.ToLower(val); d {
		case "memory", "file", "postgres", "sqlite":
			c.StoreDriver = d
		default:
			return fmt.Errorf("invalid store_driver: %s (use memory, file, postgres or sqlite)", val)
		}
	case "store_dsn":
		c.StoreDSN = val
	case "data_dir":
		c.DataDir = val
	case "upload_dir":
		c.UploadDir = val
	case "workers":
		c.Workers, err = atoi(1)
	case "listen_addr":
		c.ListenAddr = val
	case "log_level":
		c.LogLevel = strings.ToLower(val)
	case "log_format":
		c.LogFormat = strings.ToLower(val)
	default:
		return fmt.Errorf("unknown key: %s", key)
	}
	return err
}

func init() {
	rootCmd.AddCommand(configCmd)
	configCmd.AddCommand(configShowCmd)
	configCmd.AddCommand(configSetCmd)
}

func mask(s string) string {
	if s == "" {
		return ""
	}
	if len(s) <= 6 {
		return "******"
	}
	return s[:3] + "****" + s[len(s)-3:]
}

// maskDSN hides a password in a URL-style DSN.
func maskDSN(dsn string) string {
	at := strings.LastIndex(dsn, "@")
	scheme := strings.Index(dsn, "://")
	if at < 0 || scheme < 0 || at < scheme {
		return dsn
	}
	creds := dsn[scheme+3 : at]
	if i := strings.Index(creds, ":"); i >= 0 {
		return dsn[:scheme+3] + creds[:i] + ":****" + dsn[at:]
	}
	return dsn
}
