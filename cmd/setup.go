package cmd

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/avaloki108/Slitheryn/pkg/adk"
)

var setupCmd = &cobra.Command{
	Use:   "setup",
	Short: "Interactive setup wizard",
	Run: func(cmd *cobra.Command, args []string) {
		scanner := bufio.NewScanner(os.Stdin)
		fmt.Println("Welcome to the Slitheryn Setup Wizard")
		fmt.Println("-------------------------------------")

		// 1. Select Provider
		fmt.Println("Step 1: Choose your inference provider")
		fmt.Println("1. Ollama (local)")
		fmt.Println("2. Gemini (Google)")
		fmt.Println("3. OpenAI or compatible")
		fmt.Println("4. Anthropic")
		fmt.Print("Enter number or name > ")
		scanner.Scan()
		choice := strings.ToLower(strings.TrimSpace(scanner.Text()))

		var provider string
		switch choice {
		case "1", "ollama", "":
			provider = "ollama"
		case "2", "gemini":
			provider = "gemini"
		case "3", "openai":
			provider = "openai"
		case "4", "anthropic":
			provider = "anthropic"
		default:
			fmt.Println("Invalid choice. Aborting.")
			return
		}

		// 2. Endpoint or API Key
		var apiKey, baseURL string
		switch provider {
		case "ollama":
			fmt.Printf("\nStep 2: Ollama URL [%s]\n", adk.DefaultOllamaURL)
			fmt.Print("> ")
			scanner.Scan()
			baseURL = strings.TrimSpace(scanner.Text())
			if baseURL == "" {
				baseURL = adk.DefaultOllamaURL
			}
		case "openai":
			fmt.Printf("\nStep 2: Endpoint [%s]\n", adk.DefaultOpenAIURL)
			fmt.Print("> ")
			scanner.Scan()
			baseURL = strings.TrimSpace(scanner.Text())
			fallthrough
		default:
			fmt.Printf("\nStep 2: Enter API Key for %s\n", provider)
			fmt.Print("> ")
			scanner.Scan()
			apiKey = strings.TrimSpace(scanner.Text())
			if apiKey == "" && provider != "openai" {
				fmt.Println("API Key cannot be empty.")
				return
			}
		}

		// 3. Fetch Models
		fmt.Println("\nStep 3: Checking the service and fetching available models...")
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()

		tempProvider, err := adk.NewProvider(ctx, provider, apiKey, baseURL)
		if err != nil {
			fmt.Printf("Error initializing provider: %v\n", err)
			return
		}
		defer closeProvider(tempProvider)

		models, err := tempProvider.ListModels(ctx)
		var selectedModel string

		if err != nil || len(models) == 0 {
			if err != nil {
				fmt.Printf("Warning: Could not fetch models from API: %v\n", err)
			}
			fmt.Println("Please enter the default model name manually (e.g., 'SmartLLM-OG:latest', 'gemini-1.5-pro'):")
			fmt.Print("> ")
			scanner.Scan()
			selectedModel = strings.TrimSpace(scanner.Text())
		} else {
			fmt.Printf("Successfully retrieved %d models.\n", len(models))
			for i, m := range models {
				fmt.Printf("%d. %s\n", i+1, m)
			}
			fmt.Print("Select default model (number) > ")
			scanner.Scan()
			selStr := strings.TrimSpace(scanner.Text())
			selIdx, err := strconv.Atoi(selStr)
			if err != nil || selIdx < 1 || selIdx > len(models) {
				fmt.Println("Invalid selection. Using first available model.")
				selectedModel = models[0]
			} else {
				selectedModel = models[selIdx-1]
			}
		}

		// 4. Save Configuration
		fmt.Println("\nStep 4: Saving Configuration...")
		cfg, err := loadConfig()
		if err != nil {
			fmt.Printf("Error loading config: %v\n", err)
			return
		}

		cfg.SelectedProvider = provider
		if selectedModel != "" {
			cfg.Models.Default = selectedModel
		}
		if apiKey != "" {
			cfg.SetAPIKey(provider, apiKey)
		}
		if baseURL != "" {
			cfg.SetBaseURL(provider, baseURL)
		}

		if err := saveConfig(cfg); err != nil {
			fmt.Printf("Error saving config: %v\n", err)
			return
		}

		fmt.Println("-------------------------------------")
		fmt.Println("Setup Complete!")
		fmt.Printf("Provider:      %s\n", provider)
		fmt.Printf("Default model: %s\n", cfg.Models.Default)
		fmt.Println("Role-specific models can be set with 'slitheryn config set-role-model'.")
		fmt.Println("You can now run 'slitheryn analyze <contract.sol>'")
	},
}

func init() {
	configCmd.AddCommand(setupCmd)
}
