package main

import (
	"encoding/json"
	"fmt"

	"github.com/ethereum/go-ethereum/crypto"
	"github.com/layer-3/starnotary"
	"github.com/layer-3/starnotary/adapters/verifier"
	"github.com/layer-3/starnotary/core"
	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"
)

func newRegisterCmd() *cobra.Command {
	var (
		server, keyHex, magnitude string
		star                      core.Star
	)

	cmd := &cobra.Command{
		Use:   "register",
		Short: "Run the full handshake against a server and register one star",
		RunE: func(cmd *cobra.Command, args []string) error {
			key, err := crypto.HexToECDSA(keyHex)
			if err != nil {
				return fmt.Errorf("invalid key: %w", err)
			}
			if magnitude != "" {
				mag, err := decimal.NewFromString(magnitude)
				if err != nil {
					return fmt.Errorf("invalid magnitude: %w", err)
				}
				star.Magnitude = &mag
			}

			address := crypto.PubkeyToAddress(key.PublicKey).Hex()
			block, err := starnotary.Register(cmd.Context(), starnotary.NewClient(server), address, star,
				func(message string) (string, error) { return verifier.Sign(message, key) })
			if err != nil {
				return err
			}

			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			return enc.Encode(block)
		},
	}

	cmd.Flags().StringVar(&server, "server", "http://localhost:8000", "starnotary server URL")
	cmd.Flags().StringVar(&keyHex, "key", "", "hex encoded secp256k1 private key")
	cmd.Flags().StringVar(&star.RA, "ra", "", "right ascension")
	cmd.Flags().StringVar(&star.Dec, "dec", "", "declination")
	cmd.Flags().StringVar(&magnitude, "mag", "", "magnitude")
	cmd.Flags().StringVar(&star.Constellation, "cen", "", "constellation")
	cmd.Flags().StringVar(&star.Story, "story", "", "plain text story, at most 250 bytes")
	_ = cmd.MarkFlagRequired("key")
	return cmd
}
