package cmd

import (
	"github.com/spf13/cobra"

	"github.com/avaloki108/Slitheryn/pkg/adk"
)

var rootCmd = &cobra.Command{
	Use:   "slitheryn",
	Short: "Multi-agent AI consensus analysis for smart contracts",
	Long: `Slitheryn dispatches source code to several specialized AI agents
(vulnerability, exploit, fix, economic, governance), runs them under a bounded
worker pool and reduces their findings into a single consensus report.`,
	SilenceUsage: true,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		adk.DebugEnabled = DebugMode
	},
}

var (
	DebugMode  bool
	ConfigFile string
)

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() {
	cobra.CheckErr(rootCmd.Execute())
}

func init() {
	rootCmd.PersistentFlags().BoolVar(&DebugMode, "debug", false, "Enable debug logging")
	rootCmd.PersistentFlags().StringVar(&ConfigFile, "config", "", "Config file (default ~/.slitheryn/config.yaml)")
}
