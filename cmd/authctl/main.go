package main

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/tastebase/auth/internal/bootstrap"
	"github.com/tastebase/auth/internal/config"
	"github.com/tastebase/auth/internal/domain/repository"
	"github.com/tastebase/auth/internal/jwt"
	"github.com/tastebase/auth/internal/observability/logger"
	"github.com/tastebase/auth/internal/store"
)

var (
	flagConfig  string
	flagEnvFile string
)

func main() {
	root := &cobra.Command{
		Use:   "authctl",
		Short: "Operator CLI for the auth service",
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			if flagEnvFile != "" {
				_ = godotenv.Load(flagEnvFile)
			}
			logger.Init(logger.Config{
				Env:         "prod",
				Level:       envOr("LOG_LEVEL", "warn"),
				ServiceName: "authctl",
			})
		},
	}
	root.PersistentFlags().StringVar(&flagConfig, "config", "", "path to config.yaml (env AUTH_CONFIG)")
	root.PersistentFlags().StringVar(&flagEnvFile, "env-file", ".env", "path to .env")

	root.AddCommand(
		healthCmd(),
		keygenCmd(),
		migrateCmd(),
		sessionsCmd(),
		sendCodeCmd(),
		seedCmd(),
	)

	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err.Error())
		os.Exit(1)
	}
}

// withApp wires the full application for subcommands that talk to the
// store directly instead of going through a running server.
func withApp(fn func(ctx context.Context, app *bootstrap.App) error) error {
	ctx := context.Background()
	cfg, err := config.Load(configPath(flagConfig))
	if err != nil {
		return fmt.Errorf("config: %w", err)
	}
	app, err := bootstrap.New(ctx, cfg)
	if err != nil {
		return err
	}
	defer app.Close()
	return fn(ctx, app)
}

func healthCmd() *cobra.Command {
	var serverURL string
	cmd := &cobra.Command{
		Use:   "health",
		Short: "Check a running server's readiness endpoint",
		RunE: func(cmd *cobra.Command, args []string) error {
			cl := &http.Client{Timeout: 10 * time.Second}
			resp, err := cl.Get(strings.TrimRight(serverURL, "/") + "/readyz")
			if err != nil {
				return err
			}
			defer resp.Body.Close()
			body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
			if resp.StatusCode != http.StatusOK {
				return fmt.Errorf("not ready: status=%d body=%s", resp.StatusCode, strings.TrimSpace(string(body)))
			}
			fmt.Println("ok")
			return nil
		},
	}
	cmd.Flags().StringVar(&serverURL, "server", envOr("AUTH_SERVER_URL", "http://localhost:8080"),
		"base URL of the running server (env AUTH_SERVER_URL)")
	return cmd
}

func keygenCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "keygen",
		Short: "Generate a fresh signing seed and master key",
		Long:  "Prints env-style lines for jwt.ed25519_seed and security.master_key.",
		RunE: func(cmd *cobra.Command, args []string) error {
			seed, err := jwt.NewSeed()
			if err != nil {
				return err
			}
			master := make([]byte, 32)
			if _, err := rand.Read(master); err != nil {
				return err
			}
			fmt.Printf("JWT_ED25519_SEED=%s\n", seed)
			fmt.Printf("SECRETBOX_MASTER_KEY=%s\n", base64.StdEncoding.EncodeToString(master))
			return nil
		},
	}
}

func migrateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Apply embedded migrations (postgres driver)",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(configPath(flagConfig))
			if err != nil {
				return fmt.Errorf("config: %w", err)
			}
			if cfg.Storage.Driver != "postgres" {
				return fmt.Errorf("storage driver %q has no migrations", cfg.Storage.Driver)
			}
			dal, err := store.Open(context.Background(), store.Config{
				Driver:  cfg.Storage.Driver,
				DSN:     cfg.Storage.DSN,
				Migrate: true,
			})
			if err != nil {
				return err
			}
			dal.Close()
			fmt.Println("migrations applied")
			return nil
		},
	}
}

func sessionsCmd() *cobra.Command {
	group := &cobra.Command{Use: "sessions", Short: "Inspect and revoke sessions"}

	var listUser string
	list := &cobra.Command{
		Use:   "list",
		Short: "List a user's active sessions",
		RunE: func(cmd *cobra.Command, args []string) error {
			if listUser == "" {
				return fmt.Errorf("--user is required")
			}
			return withApp(func(ctx context.Context, app *bootstrap.App) error {
				devices, err := app.Sessions.Devices(ctx, listUser, "")
				if err != nil {
					return err
				}
				w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
				fmt.Fprintln(w, "SESSION\tDEVICE\tIP\tCREATED\tEXPIRES")
				for _, d := range devices {
					fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\n",
						d.SessionID, orDash(d.DeviceInfo), orDash(d.IPAddress),
						d.CreatedAt.Format(time.RFC3339), d.ExpiresAt.Format(time.RFC3339))
				}
				return w.Flush()
			})
		},
	}
	list.Flags().StringVar(&listUser, "user", "", "user id")

	var revokeID, revokeToken, revokeUser string
	revoke := &cobra.Command{
		Use:   "revoke",
		Short: "Revoke one session by id or token, or every session of a user",
		RunE: func(cmd *cobra.Command, args []string) error {
			set := 0
			for _, s := range []string{revokeID, revokeToken, revokeUser} {
				if s != "" {
					set++
				}
			}
			if set != 1 {
				return fmt.Errorf("exactly one of --id, --token, --user is required")
			}
			return withApp(func(ctx context.Context, app *bootstrap.App) error {
				switch {
				case revokeID != "":
					if err := app.Sessions.Revoke(ctx, revokeID); err != nil {
						return err
					}
					fmt.Println("revoked", revokeID)
				case revokeToken != "":
					if err := app.Sessions.RevokeByToken(ctx, revokeToken); err != nil {
						return err
					}
					fmt.Println("revoked session for token")
				default:
					n, err := app.Sessions.RevokeAll(ctx, revokeUser)
					if err != nil {
						return err
					}
					fmt.Printf("revoked %d session(s)\n", n)
				}
				return nil
			})
		},
	}
	revoke.Flags().StringVar(&revokeID, "id", "", "session id")
	revoke.Flags().StringVar(&revokeToken, "token", "", "refresh token (revokes the session it belongs to)")
	revoke.Flags().StringVar(&revokeUser, "user", "", "user id (revokes every session)")

	cleanup := &cobra.Command{
		Use:   "cleanup",
		Short: "Drop expired sessions and dead verification codes now",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(func(ctx context.Context, app *bootstrap.App) error {
				ns, err := app.Sessions.CleanupExpired(ctx)
				if err != nil {
					return err
				}
				nc, err := app.Codes.Sweep(ctx)
				if err != nil {
					return err
				}
				fmt.Printf("dropped %d session(s), %d code(s)\n", ns, nc)
				return nil
			})
		},
	}

	group.AddCommand(list, revoke, cleanup)
	return group
}

func sendCodeCmd() *cobra.Command {
	var target, codeType string
	cmd := &cobra.Command{
		Use:   "send-code",
		Short: "Issue a verification code through the configured delivery channel",
		RunE: func(cmd *cobra.Command, args []string) error {
			if target == "" {
				return fmt.Errorf("--target is required")
			}
			ct := repository.CodeType(strings.ToLower(strings.TrimSpace(codeType)))
			if !ct.Valid() {
				return fmt.Errorf("unknown code type %q", codeType)
			}
			return withApp(func(ctx context.Context, app *bootstrap.App) error {
				issued, err := app.Codes.Issue(ctx, target, ct)
				if err != nil {
					return err
				}
				fmt.Printf("code sent to %s, expires %s\n", issued.Target, issued.ExpiresAt.Format(time.RFC3339))
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&target, "target", "", "email or phone")
	cmd.Flags().StringVar(&codeType, "type", "register", "register | password_reset | login")
	return cmd
}

func seedCmd() *cobra.Command {
	var in bootstrap.SeedInput
	cmd := &cobra.Command{
		Use:   "seed",
		Short: "Create a verified account directly in the store",
		Long:  "With no flags the account details are prompted interactively; the password never echoes.",
		RunE: func(cmd *cobra.Command, args []string) error {
			if in.Username == "" || in.Password == "" {
				prompted, err := bootstrap.PromptSeedAccount()
				if err != nil {
					return err
				}
				if in.Region != "" {
					prompted.Region = in.Region
				}
				in = prompted
			}
			return withApp(func(ctx context.Context, app *bootstrap.App) error {
				user, err := bootstrap.SeedAccount(ctx, app.DAL, in)
				if err != nil {
					return err
				}
				fmt.Printf("account created: id=%s username=%s\n", user.ID, user.Username)
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&in.Username, "username", "", "username (prompted when omitted)")
	cmd.Flags().StringVar(&in.Email, "email", "", "email (optional)")
	cmd.Flags().StringVar(&in.Phone, "phone", "", "phone (optional)")
	cmd.Flags().StringVar(&in.Password, "password", "", "password (prompted when omitted)")
	cmd.Flags().StringVar(&in.Region, "region", "", "region tag (optional)")
	return cmd
}

func configPath(flagValue string) string {
	if flagValue != "" {
		return flagValue
	}
	if v := os.Getenv("AUTH_CONFIG"); v != "" {
		return v
	}
	for _, p := range []string{"configs/config.yaml", "configs/config.example.yaml"} {
		if _, err := os.Stat(p); err == nil {
			return p
		}
	}
	return "configs/config.yaml"
}

func envOr(k, def string) string {
	if v := os.Getenv(k); v != "" {
		return v
	}
	return def
}

func orDash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}
