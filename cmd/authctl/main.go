// authctl is the operator CLI: RSA key generation, registration codes and
// platform inspection against the configured store.
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/google/uuid"
	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/wirus-app/wirus-auth/internal/config"
	"github.com/wirus-app/wirus-auth/internal/scope"
	"github.com/wirus-app/wirus-auth/internal/store"
	memstore "github.com/wirus-app/wirus-auth/internal/store/memory"
	pgstore "github.com/wirus-app/wirus-auth/internal/store/pg"
	"github.com/wirus-app/wirus-auth/internal/token"
)

func main() {
	_ = godotenv.Load()

	var configPath string

	root := &cobra.Command{
		Use:           "authctl",
		Short:         "Operator tooling for the wirus authorization service",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVar(&configPath, "config", os.Getenv("CONFIG_PATH"), "path to config.yaml")

	root.AddCommand(keygenCmd())
	root.AddCommand(regcodeCmd(&configPath))
	root.AddCommand(platformCmd(&configPath))

	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "authctl:", err)
		os.Exit(1)
	}
}

func keygenCmd() *cobra.Command {
	var (
		bits    int
		privOut string
		pubOut  string
	)
	cmd := &cobra.Command{
		Use:   "keygen",
		Short: "Generate the RSA key pair the service signs tokens with",
		RunE: func(cmd *cobra.Command, args []string) error {
			keys, err := token.Generate(bits)
			if err != nil {
				return err
			}
			if err := os.WriteFile(privOut, []byte(keys.PrivatePEM()), 0o600); err != nil {
				return err
			}
			if err := os.WriteFile(pubOut, []byte(keys.PublicPEM), 0o644); err != nil {
				return err
			}
			fmt.Printf("wrote %s and %s\n", privOut, pubOut)
			return nil
		},
	}
	cmd.Flags().IntVar(&bits, "bits", 2048, "RSA key size")
	cmd.Flags().StringVar(&privOut, "private", "private.pem", "private key output path")
	cmd.Flags().StringVar(&pubOut, "public", "public.pem", "public key output path")
	return cmd
}

func regcodeCmd(configPath *string) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "regcode",
		Short: "Manage platform registration codes",
	}

	var (
		id       string
		allowed  []string
		codeType string
	)
	create := &cobra.Command{
		Use:   "create",
		Short: "Create a one-shot registration code",
		RunE: func(cmd *cobra.Command, args []string) error {
			registry := scope.Default()
			for _, sc := range allowed {
				if _, ok := registry[sc]; !ok {
					return fmt.Errorf("unknown scope %q", sc)
				}
			}
			st, err := openStore(cmd.Context(), *configPath)
			if err != nil {
				return err
			}
			defer st.Close()

			if id == "" {
				id = uuid.NewString()
			}
			code := store.RegistrationCode{
				ID:           id,
				Type:         codeType,
				AllowedScope: scope.Set(allowed),
			}
			if err := st.Codes().Create(cmd.Context(), &code); err != nil {
				return fmt.Errorf("creating registration code: %w", err)
			}
			fmt.Println(id)
			return nil
		},
	}
	create.Flags().StringVar(&id, "id", "", "code id (generated when empty)")
	create.Flags().StringSliceVar(&allowed, "scope", nil, "allowed scope, repeatable")
	create.Flags().StringVar(&codeType, "type", "client_registration", "code type")

	cmd.AddCommand(create)
	return cmd
}

func platformCmd(configPath *string) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "platform",
		Short: "Inspect registered platforms",
	}

	get := &cobra.Command{
		Use:   "get <id>",
		Short: "Print a platform document",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			st, err := openStore(cmd.Context(), *configPath)
			if err != nil {
				return err
			}
			defer st.Close()

			p, err := st.Platforms().Get(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			p.ClientSecret = "(redacted)"
			out, _ := json.MarshalIndent(p, "", "  ")
			fmt.Println(string(out))
			return nil
		},
	}

	cmd.AddCommand(get)
	return cmd
}

func openStore(ctx context.Context, configPath string) (store.Store, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, fmt.Errorf("loading config: %w", err)
	}
	if cfg.Storage.Driver != "postgres" {
		// Useful only for smoke tests; nothing persists.
		return memstore.New(), nil
	}
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	return pgstore.New(ctx, cfg.Storage.DSN, pgstore.Config{
		MaxConns:        cfg.Storage.Postgres.MaxConns,
		ConnMaxLifetime: cfg.PGConnMaxLifetime(),
	})
}
