package cmd

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Manage configuration (providers, models, keys)",
}

var setKeyCmd = &cobra.Command{
	Use:   "set-key",
	Short: "Manually set API key for a provider",
	Run: func(cmd *cobra.Command, args []string) {
		provider, _ := cmd.Flags().GetString("provider")
		key, _ := cmd.Flags().GetString("key")

		if provider == "" || key == "" {
			fmt.Println("Error: --provider and --key are required")
			return
		}

		cfg, err := loadConfig()
		if err != nil {
			fmt.Printf("Error loading config: %v\n", err)
			return
		}

		cfg.SetAPIKey(strings.ToLower(provider), key)
		if err := saveConfig(cfg); err != nil {
			fmt.Printf("Error saving config: %v\n", err)
			return
		}
		fmt.Printf("API key saved for provider: %s\n", provider)
	},
}

var setModelCmd = &cobra.Command{
	Use:   "set-model",
	Short: "Set the active provider, its endpoint and the default model",
	Run: func(cmd *cobra.Command, args []string) {
		provider, _ := cmd.Flags().GetString("provider")
		model, _ := cmd.Flags().GetString("model")
		baseURL, _ := cmd.Flags().GetString("base-url")

		cfg, err := loadConfig()
		if err != nil {
			fmt.Printf("Error loading config: %v\n", err)
			return
		}

		if provider != "" {
			cfg.SelectedProvider = strings.ToLower(provider)
		}
		if baseURL != "" {
			cfg.SetBaseURL(cfg.SelectedProvider, baseURL)
		}
		if model != "" {
			cfg.Models.Default = model
		}
		if err := cfg.Validate(); err != nil {
			fmt.Printf("Error: %v\n", err)
			return
		}

		if err := saveConfig(cfg); err != nil {
			fmt.Printf("Error saving config: %v\n", err)
			return
		}
		fmt.Printf("Active configuration updated: Provider=%s, Default model=%s\n", cfg.SelectedProvider, cfg.Models.Default)
	},
}

var setRoleModelCmd = &cobra.Command{
	Use:   "set-role-model",
	Short: "Set the ordered model preferences for one role and mode",
	Example: `  slitheryn config set-role-model --role exploit --mode quick --models phi4-reasoning:latest,qwen3:30b-a3b`,
	Run: func(cmd *cobra.Command, args []string) {
		role, _ := cmd.Flags().GetString("role")
		mode, _ := cmd.Flags().GetString("mode")
		models, _ := cmd.Flags().GetStringSlice("models")

		if role == "" || mode == "" || len(models) == 0 {
			fmt.Println("Error: --role, --mode and --models are required")
			return
		}

		cfg, err := loadConfig()
		if err != nil {
			fmt.Printf("Error loading config: %v\n", err)
			return
		}
		if err := cfg.SetRoleModels(role, mode, models); err != nil {
			fmt.Printf("Error: %v\n", err)
			return
		}
		if err := saveConfig(cfg); err != nil {
			fmt.Printf("Error saving config: %v\n", err)
			return
		}
		fmt.Printf("Model preferences for %s/%s: %s\n", role, mode, strings.Join(models, " > "))
	},
}

var listModelsCmd = &cobra.Command{
	Use:   "list-models",
	Short: "List available models from the configured provider",
	Run: func(cmd *cobra.Command, args []string) {
		cfg, err := loadConfig()
		if err != nil {
			fmt.Println("Error loading config:", err)
			return
		}

		provider := cfg.SelectedProvider
		if provider == "" {
			fmt.Println("No provider selected. Please run 'slitheryn config setup'.")
			return
		}

		fmt.Printf("Fetching models for %s...\n", provider)
		ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancel()
		p, err := newProvider(ctx, cfg)
		if err != nil {
			fmt.Println("Error initializing provider:", err)
			return
		}
		defer closeProvider(p)

		models, err := p.ListModels(ctx)
		if err != nil {
			fmt.Println("Error fetching models:", err)
			return
		}

		fmt.Printf("\nAvailable Models (%s):\n", provider)
		for _, m := range models {
			mark := " "
			if m == cfg.Models.Default {
				mark = "*"
			}
			fmt.Printf("%s %s\n", mark, m)
		}
	},
}

var showConfigCmd = &cobra.Command{
	Use:   "show",
	Short: "Print the effective configuration with API keys masked",
	Run: func(cmd *cobra.Command, args []string) {
		cfg, err := loadConfig()
		if err != nil {
			fmt.Println("Error loading config:", err)
			return
		}
		for name, p := range cfg.Providers {
			if p.APIKey != "" {
				p.APIKey = maskKey(p.APIKey)
				cfg.Providers[name] = p
			}
		}
		data, err := yaml.Marshal(cfg)
		if err != nil {
			fmt.Println("Error encoding config:", err)
			return
		}
		fmt.Print(string(data))
		if err := cfg.Validate(); err != nil {
			fmt.Printf("\nWarning: %v\n", err)
		}
	},
}

func maskKey(k string) string {
	if len(k) <= 8 {
		return "****"
	}
	return k[:4] + "..." + k[len(k)-4:]
}

func init() {
	setKeyCmd.Flags().StringP("provider", "p", "", "Provider (gemini, openai, anthropic)")
	setKeyCmd.Flags().StringP("key", "k", "", "API Key")

	setModelCmd.Flags().StringP("provider", "p", "", "Provider (ollama, gemini, openai, anthropic)")
	setModelCmd.Flags().StringP("model", "m", "", "Default model name")
	setModelCmd.Flags().String("base-url", "", "Endpoint for the provider (e.g. http://localhost:11434)")

	setRoleModelCmd.Flags().String("role", "", "Agent role")
	setRoleModelCmd.Flags().String("mode", "", "Analysis mode (quick, comprehensive, specialized)")
	setRoleModelCmd.Flags().StringSlice("models", nil, "Models in order of preference")

	configCmd.AddCommand(setKeyCmd)
	configCmd.AddCommand(setModelCmd)
	configCmd.AddCommand(setRoleModelCmd)
	configCmd.AddCommand(listModelsCmd)
	configCmd.AddCommand(showConfigCmd)
	rootCmd.AddCommand(configCmd)
}
