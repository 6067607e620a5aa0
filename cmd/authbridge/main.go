package main

import (
	"context"
	"crypto"
	"crypto/ecdsa"
	"crypto/elliptic"
	"crypto/rand"
	"crypto/rsa"
	"crypto/x509"
	"encoding/pem"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/adaptor/v2"
	"github.com/gofiber/fiber/v2"
	authbridge "github.com/goliatone/go-authbridge"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"
)

func main() {
	root := &cobra.Command{
		Use:   "authbridge",
		Short: "Redirect-based authentication broker",
	}

	root.PersistentFlags().String("config", "", "path to config file")

	root.AddCommand(serveCommand())
	root.AddCommand(regCodeCommand())
	root.AddCommand(keygenCommand())

	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func loadConfig(cmd *cobra.Command) (*authbridge.AppConfig, error) {
	v := viper.New()

	v.SetDefault("listen_addr", ":3000")
	v.SetDefault("database_dsn", "file:authbridge.db?_fk=1")
	v.SetDefault("signing_key_id", "default")
	v.SetDefault("token_ttl", 60*60*24)
	v.SetDefault("pending_redirect_ttl", 600)
	v.SetDefault("cookie_max_age", 60*60*24*2)
	v.SetDefault("postback_timeout", 5)
	v.SetDefault("sweep_interval", 60)

	v.SetEnvPrefix("AUTHBRIDGE")
	v.AutomaticEnv()

	if path, _ := cmd.Flags().GetString("config"); path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("read config: %w", err)
		}
	}

	cfg := &authbridge.AppConfig{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}

	return cfg, nil
}

// zapLogger adapts a zap sugared logger to the package logging surface.
type zapLogger struct {
	log *zap.SugaredLogger
}

func (z zapLogger) Debug(format string, args ...any) { z.log.Debugf(format, args...) }
func (z zapLogger) Info(format string, args ...any)  { z.log.Infof(format, args...) }
func (z zapLogger) Warn(format string, args ...any)  { z.log.Warnf(format, args...) }
func (z zapLogger) Error(format string, args ...any) { z.log.Errorf(format, args...) }

func serveCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the broker HTTP server",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}

			if err := cfg.Validate(); err != nil {
				return fmt.Errorf("invalid config: %w", err)
			}

			zl, err := zap.NewProduction()
			if err != nil {
				return fmt.Errorf("init logger: %w", err)
			}
			defer zl.Sync()
			logger := zapLogger{log: zl.Sugar()}

			db, err := authbridge.OpenDB(cfg.DatabaseDSN)
			if err != nil {
				return err
			}
			defer db.Close()

			if err := authbridge.Migrate(db); err != nil {
				return err
			}

			// a broker that cannot sign tokens has no reason to start
			key, err := authbridge.LoadSignKey(cfg.SigningKeyPath, cfg.SigningKeyID)
			if err != nil {
				return fmt.Errorf("load signing key: %w", err)
			}
			logger.Info("signing key loaded: kid=%s alg=%s fingerprint=%s", key.KID, key.Algorithm, key.Fingerprint)

			repo := authbridge.NewRepositoryManager(db)
			tokens := authbridge.NewTokenService(key, cfg, repo.Sessions(), logger)
			events := authbridge.NewEventRecorder(db, logger)
			postback := authbridge.NewPostbackClient(time.Duration(cfg.GetPostbackTimeout())*time.Second, logger)
			flow := authbridge.NewFlow(repo, tokens, postback, events, cfg, logger)
			controller := authbridge.NewFlowController(flow, tokens, repo, cfg, logger)

			app := fiber.New(fiber.Config{
				DisableStartupMessage: true,
			})
			authbridge.RegisterRoutes(app, controller)
			app.Get("/metrics", adaptor.HTTPHandler(promhttp.Handler()))

			ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			sweeper := authbridge.NewSweeper(repo.PendingRedirects(), events, logger)
			sweeper.Start(ctx, time.Duration(cfg.GetSweepInterval())*time.Second)

			errCh := make(chan error, 1)
			go func() {
				logger.Info("listening on %s", cfg.ListenAddr)
				errCh <- app.Listen(cfg.ListenAddr)
			}()

			select {
			case <-ctx.Done():
				logger.Info("shutting down")
				return app.ShutdownWithTimeout(10 * time.Second)
			case err := <-errCh:
				return err
			}
		},
	}
}

func regCodeCommand() *cobra.Command {
	var userID string
	var code string

	cmd := &cobra.Command{
		Use:   "regcode",
		Short: "Issue a registration code for a user",
		RunE: func(cmd *cobra.Command, args []string) error {
			if userID == "" {
				return fmt.Errorf("--user is required")
			}

			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}

			db, err := authbridge.OpenDB(cfg.DatabaseDSN)
			if err != nil {
				return err
			}
			defer db.Close()

			if err := authbridge.Migrate(db); err != nil {
				return err
			}

			repo := authbridge.NewRepositoryManager(db)

			id, err := uuid.Parse(userID)
			if err != nil {
				return fmt.Errorf("invalid user id: %w", err)
			}

			user, err := repo.Users().GetUser(cmd.Context(), id)
			if err != nil {
				return fmt.Errorf("resolve user: %w", err)
			}

			var explicit []string
			if code != "" {
				explicit = append(explicit, code)
			}

			issued, err := repo.RegistrationCodes().IssueFor(cmd.Context(), user.ID, explicit...)
			if err != nil {
				return err
			}

			fmt.Println(issued)
			return nil
		},
	}

	cmd.Flags().StringVar(&userID, "user", "", "user id to bind the code to")
	cmd.Flags().StringVar(&code, "code", "", "explicit code instead of a generated one")

	return cmd
}

func keygenCommand() *cobra.Command {
	var out string
	var kind string
	var bits int

	cmd := &cobra.Command{
		Use:   "keygen",
		Short: "Generate a signing keypair and print its analysis",
		RunE: func(cmd *cobra.Command, args []string) error {
			var signer crypto.Signer
			var err error

			switch kind {
			case "ec":
				signer, err = ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
			case "rsa":
				signer, err = rsa.GenerateKey(rand.Reader, bits)
			default:
				return fmt.Errorf("unknown key type %q", kind)
			}
			if err != nil {
				return fmt.Errorf("generate key: %w", err)
			}

			der, err := x509.MarshalPKCS8PrivateKey(signer)
			if err != nil {
				return fmt.Errorf("encode key: %w", err)
			}

			pemBytes := pem.EncodeToMemory(&pem.Block{Type: "PRIVATE KEY", Bytes: der})
			if err := os.WriteFile(out, pemBytes, 0o600); err != nil {
				return fmt.Errorf("write key: %w", err)
			}

			key, err := authbridge.AnalyzeKey(pemBytes)
			if err != nil {
				return err
			}

			fmt.Printf("wrote %s\ntype: %s\nalgorithm: %s\nfingerprint: %s\n", out, key.Type, key.Algorithm, key.Fingerprint)
			return nil
		},
	}

	cmd.Flags().StringVar(&out, "out", "signing-key.pem", "output path for the PEM keypair")
	cmd.Flags().StringVar(&kind, "type", "ec", "key type: ec or rsa")
	cmd.Flags().IntVar(&bits, "bits", 2048, "modulus length for rsa keys")

	return cmd
}
