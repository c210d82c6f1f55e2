package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/LeJamon/goMarketd/internal/crypto"
)

var keygenCmd = &cobra.Command{
	Use:   "keygen",
	Short: "Generate a marketplace keypair",
	Long: `Generate a fresh secp256k1 keypair and print its account address.
The private key signs transaction blobs for the submit RPC method;
the address identifies the account in every market operation.

Keep the private key secret. Anyone holding it can act as the account.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		keys, err := crypto.NewKeypair()
		if err != nil {
			return fmt.Errorf("generate keypair: %w", err)
		}

		fmt.Printf("Address:     %s\n", keys.Address())
		fmt.Printf("Public key:  %s\n", keys.PublicHex())
		fmt.Printf("Private key: %s\n", keys.PrivateHex())
		return nil
	},
}

func init() {
	rootCmd.AddCommand(keygenCmd)
}
