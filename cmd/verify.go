package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/avaloki108/Slitheryn/pkg/attest"
)

var verifyKey string

var verifyCmd = &cobra.Command{
	Use:   "verify <report> [signature]",
	Short: "Verify a signed consensus report",
	Long:  "Verify a detached OpenPGP signature over a report. The signature defaults to <report>.asc.",
	Args:  cobra.RangeArgs(1, 2),
	RunE: func(cmd *cobra.Command, args []string) error {
		sigPath := args[0] + ".asc"
		if len(args) == 2 {
			sigPath = args[1]
		}
		if verifyKey == "" {
			return fmt.Errorf("--key is required")
		}

		v := attest.NewVerifier()
		if err := v.ImportKeyFromFile(verifyKey); err != nil {
			return err
		}
		data, err := os.ReadFile(args[0])
		if err != nil {
			return err
		}
		sig, err := os.ReadFile(sigPath)
		if err != nil {
			return err
		}
		keyID, err := v.Verify(data, sig)
		if err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), okStyle.Render(fmt.Sprintf("Good signature from key %s", keyID)))
		return nil
	},
}

var (
	keygenName string
	keygenOut  string
)

var keygenCmd = &cobra.Command{
	Use:   "keygen",
	Short: "Generate a report signing key and register it in the config",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return fmt.Errorf("error loading config: %w", err)
		}
		entity, err := attest.GenerateKey(keygenName, "")
		if err != nil {
			return err
		}
		priv, pub := keygenOut+".asc", keygenOut+".pub.asc"
		if err := attest.WriteKeys(entity, priv, pub); err != nil {
			return err
		}
		cfg.Signing.KeyFile = priv
		if err := saveConfig(cfg); err != nil {
			return fmt.Errorf("error saving config: %w", err)
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Signing key %s written to %s\nShare %s with report consumers.\n",
			entity.PrimaryKey.KeyIdString(), priv, pub)
		return nil
	},
}

func init() {
	verifyCmd.Flags().StringVarP(&verifyKey, "key", "k", "", "Armored public key of the signer")
	keygenCmd.Flags().StringVar(&keygenName, "name", "Slitheryn", "Identity name for the key")
	keygenCmd.Flags().StringVarP(&keygenOut, "out", "o", "slitheryn-signing", "Output path prefix")
	rootCmd.AddCommand(verifyCmd)
	rootCmd.AddCommand(keygenCmd)
}
