package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/MarcoPoloResearchLab/cashgame/internal/analysis"
	"github.com/MarcoPoloResearchLab/cashgame/internal/auth"
	"github.com/MarcoPoloResearchLab/cashgame/internal/config"
	"github.com/MarcoPoloResearchLab/cashgame/internal/database"
	"github.com/MarcoPoloResearchLab/cashgame/internal/games"
	"github.com/MarcoPoloResearchLab/cashgame/internal/logging"
	"github.com/MarcoPoloResearchLab/cashgame/internal/reasoning"
	"github.com/MarcoPoloResearchLab/cashgame/internal/server"
	"github.com/MarcoPoloResearchLab/cashgame/internal/users"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"
)

var (
	cfgFile string
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "cashgame-api",
		Short: "Cash game ledger backend service",
		PreRunE: func(cmd *cobra.Command, args []string) error {
			return initConfig()
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServer(cmd.Context())
		},
	}

	setupFlags(rootCmd)

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func setupFlags(cmd *cobra.Command) {
	config.ApplyDefaults(viper.GetViper())
	defaults := config.NewViper()
	cmd.PersistentFlags().StringVar(&cfgFile, "config", "", "Path to configuration file")
	cmd.PersistentFlags().String("http-address", defaults.GetString("http.address"), "HTTP listen address")
	cmd.PersistentFlags().String("database-path", defaults.GetString("database.path"), "SQLite database path")
	cmd.PersistentFlags().String("log-level", defaults.GetString("log.level"), "Log level (debug, info, warn, error)")
	cmd.PersistentFlags().String("signing-secret", "", "TAuth session signing secret (overrides env)")
	cmd.PersistentFlags().String("cookie-name", defaults.GetString("tauth.cookie_name"), "TAuth session cookie name")
	cmd.PersistentFlags().String("bypass-user-id", "", "Authenticate every request as this user (local development only)")
	cmd.PersistentFlags().String("reasoning-model", defaults.GetString("reasoning.model"), "Model used for till discrepancy analysis")

	bindFlag(cmd, "http.address", "http-address")
	bindFlag(cmd, "database.path", "database-path")
	bindFlag(cmd, "log.level", "log-level")
	bindFlag(cmd, "tauth.signing_secret", "signing-secret")
	bindFlag(cmd, "tauth.cookie_name", "cookie-name")
	bindFlag(cmd, "auth.bypass_user_id", "bypass-user-id")
	bindFlag(cmd, "reasoning.model", "reasoning-model")
}

func bindFlag(cmd *cobra.Command, key, flag string) {
	if err := viper.BindPFlag(key, cmd.PersistentFlags().Lookup(flag)); err != nil {
		panic(err)
	}
}

func initConfig() error {
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	}

	if err := viper.ReadInConfig(); err != nil {
		var configNotFound viper.ConfigFileNotFoundError
		if cfgFile != "" && errors.As(err, &configNotFound) {
			return err
		}
	}

	return nil
}

func runServer(ctx context.Context) error {
	appConfig, err := config.Load(viper.GetViper())
	if err != nil {
		return err
	}

	logger, err := logging.NewLogger(appConfig.LogLevel)
	if err != nil {
		return err
	}
	defer logger.Sync() //nolint:errcheck

	db, err := database.OpenSQLite(appConfig.DatabasePath, logger)
	if err != nil {
		return err
	}
	sqlDB, err := db.DB()
	if err != nil {
		return err
	}
	defer sqlDB.Close()

	userService, err := users.NewService(users.ServiceConfig{
		Database: db,
		Clock:    time.Now,
	})
	if err != nil {
		return err
	}

	sessionValidator, err := auth.NewSessionValidator(auth.SessionValidatorConfig{
		SigningSecret: []byte(appConfig.TAuthSigningKey),
		Issuer:        appConfig.TAuthIssuer,
		CookieName:    appConfig.TAuthCookieName,
	})
	if err != nil {
		return err
	}

	dispatcher := server.NewRealtimeDispatcher()

	gamesService, err := games.NewService(games.ServiceConfig{
		Database:   db,
		Clock:      time.Now,
		IDProvider: games.NewUUIDProvider(),
		Counter:    userService,
		Notifier:   dispatcher,
		Logger:     logger,
	})
	if err != nil {
		return err
	}

	reasoner := reasoning.NewClient(reasoning.Config{
		APIKey:  appConfig.Reasoning.APIKey,
		Model:   appConfig.Reasoning.Model,
		BaseURL: appConfig.Reasoning.BaseURL,
		Timeout: appConfig.Reasoning.Timeout,
		Logger:  logger,
	})
	if appConfig.Reasoning.APIKey == "" {
		logger.Warn("reasoning api key not set; discrepancy analysis is unavailable")
	}
	analyzer := analysis.NewAnalyzer(analysis.AnalyzerConfig{
		Reasoner: reasoner,
		Logger:   logger,
	})

	if appConfig.BypassUserID != "" {
		logger.Warn("authentication bypass enabled", zap.String("user_id", appConfig.BypassUserID))
	}

	handler, err := server.NewHTTPHandler(server.Dependencies{
		SessionValidator: sessionValidator,
		Profiles:         userService,
		GamesService:     gamesService,
		Analyzer:         analyzer,
		Realtime:         dispatcher,
		BypassUserID:     appConfig.BypassUserID,
		Logger:           logger,
	})
	if err != nil {
		return err
	}

	httpServer := &http.Server{
		Addr:    appConfig.HTTPAddress,
		Handler: handler,
	}

	signalCtx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	errCh := make(chan error, 1)
	go func() {
		logger.Info("server starting", zap.String("address", appConfig.HTTPAddress))
		err := httpServer.ListenAndServe()
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case <-signalCtx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return httpServer.Shutdown(shutdownCtx)
	case err := <-errCh:
		return err
	}
}
