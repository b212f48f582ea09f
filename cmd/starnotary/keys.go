package main

import (
	"crypto/ecdsa"
	"crypto/elliptic"
	"crypto/rand"
	"crypto/x509"
	"encoding/pem"
	"fmt"
	"os"

	"github.com/ethereum/go-ethereum/crypto"
	"github.com/golang-jwt/jwt/v5"
	"github.com/layer-3/starnotary/adapters/tokenizer"
	"github.com/layer-3/starnotary/adapters/verifier"
	"github.com/layer-3/starnotary/config"
	"github.com/spf13/cobra"
)

func readAdminKey(path string) (*ecdsa.PrivateKey, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read admin key: %w", err)
	}
	key, err := jwt.ParseECPrivateKeyFromPEM(data)
	if err != nil {
		return nil, fmt.Errorf("failed to parse admin key: %w", err)
	}
	return key, nil
}

func newKeygenCmd() *cobra.Command {
	var out string

	cmd := &cobra.Command{
		Use:   "keygen",
		Short: "Generate a P-256 key for signing operator tokens",
		RunE: func(cmd *cobra.Command, args []string) error {
			key, err := ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
			if err != nil {
				return err
			}
			der, err := x509.MarshalECPrivateKey(key)
			if err != nil {
				return err
			}
			data := pem.EncodeToMemory(&pem.Block{Type: "EC PRIVATE KEY", Bytes: der})
			if out == "" {
				_, err = cmd.OutOrStdout().Write(data)
				return err
			}
			return os.WriteFile(out, data, 0o600)
		},
	}

	cmd.Flags().StringVarP(&out, "out", "o", "", "write the key to this file instead of stdout")
	return cmd
}

func newAdminTokenCmd() *cobra.Command {
	cfg := config.Load()
	var subject string

	cmd := &cobra.Command{
		Use:   "admin-token",
		Short: "Mint an operator token for the /admin endpoints",
		RunE: func(cmd *cobra.Command, args []string) error {
			if cfg.AdminKeyFile == "" {
				return fmt.Errorf("an admin key is required (--admin-key or ADMIN_KEY_FILE)")
			}
			key, err := readAdminKey(cfg.AdminKeyFile)
			if err != nil {
				return err
			}
			token, err := tokenizer.NewJWTTokenizer(key, cfg.AdminTokenTTL).IssueAdminToken(subject)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), token)
			return nil
		},
	}

	cmd.Flags().StringVar(&cfg.AdminKeyFile, "admin-key", cfg.AdminKeyFile, "PEM P-256 key signing operator tokens")
	cmd.Flags().DurationVar(&cfg.AdminTokenTTL, "ttl", cfg.AdminTokenTTL, "token lifetime")
	cmd.Flags().StringVar(&subject, "subject", "operator", "operator name recorded in the token")
	return cmd
}

func newSignCmd() *cobra.Command {
	var keyHex, message string

	cmd := &cobra.Command{
		Use:   "sign",
		Short: "Sign a challenge message with an Ethereum key, as a wallet would",
		RunE: func(cmd *cobra.Command, args []string) error {
			key, err := crypto.HexToECDSA(keyHex)
			if err != nil {
				return fmt.Errorf("invalid key: %w", err)
			}
			sig, err := verifier.Sign(message, key)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "address:   %s\nsignature: %s\n", crypto.PubkeyToAddress(key.PublicKey).Hex(), sig)
			return nil
		},
	}

	cmd.Flags().StringVar(&keyHex, "key", "", "hex encoded secp256k1 private key")
	cmd.Flags().StringVar(&message, "message", "", "challenge message returned by /requestValidation")
	_ = cmd.MarkFlagRequired("key")
	_ = cmd.MarkFlagRequired("message")
	return cmd
}
