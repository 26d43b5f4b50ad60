// Blog web server for go-pugblog
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	prof "github.com/go-while/go-cpu-mem-profiler"
	"github.com/go-while/go-pugblog/internal/config"
	"github.com/go-while/go-pugblog/internal/database"
	"github.com/go-while/go-pugblog/internal/web"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
)

var appVersion = "-unset-"

// ServeRequest contains the command line inputs of the web server
type ServeRequest struct {
	ConfigPath string
	WebPort    int
	BasePath   string
	Store      string
	LogLevel   string
	SSL        bool
	CertFile   string
	KeyFile    string
}

func main() {
	config.AppVersion = appVersion
	if err := Command().Execute(); err != nil {
		os.Exit(1)
	}
}

// Command creates the cobra root command of the web server
func Command() *cobra.Command {
	request := &ServeRequest{}
	cmd := &cobra.Command{
		Use:           "pugblog-web",
		Short:         "Serves the blog pages",
		Version:       appVersion,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			mainConfig, err := loadConfig(cmd, request)
			if err != nil {
				fmt.Fprintf(os.Stderr, "[WEB]: %v\n", err)
				return err
			}
			if err := Exec(cmd.Context(), mainConfig); err != nil {
				log.Error().Err(err).Msg("web server failed")
				return err
			}
			return nil
		},
	}
	bindFlags(cmd, request)
	return cmd
}

// bindFlags registers the server flags on cmd
func bindFlags(cmd *cobra.Command, request *ServeRequest) {
	cmd.Flags().StringVar(&request.ConfigPath, "config", "config.toml", "Path to the TOML config file (missing file uses defaults)")
	cmd.Flags().IntVar(&request.WebPort, "webport", 0, "Web server port (default: 11980)")
	cmd.Flags().StringVar(&request.BasePath, "base-path", config.DefaultBasePath, "Path the post pages are mounted under")
	cmd.Flags().StringVar(&request.Store, "store", "", "Post store driver: memory, sqlite, mongo or postgres")
	cmd.Flags().StringVar(&request.LogLevel, "log-level", "", "Log level: debug, info, warn, error")
	cmd.Flags().BoolVar(&request.SSL, "webssl", false, "Enable SSL")
	cmd.Flags().StringVar(&request.CertFile, "websslcert", "", "SSL certificate file (/path/to/fullchain.pem)")
	cmd.Flags().StringVar(&request.KeyFile, "websslkey", "", "SSL key file (/path/to/privkey.pem)")
}

// loadConfig reads the config file and lets flags that were set override it
func loadConfig(cmd *cobra.Command, request *ServeRequest) (*config.MainConfig, error) {
	mainConfig, err := config.Load(request.ConfigPath, !cmd.Flags().Changed("config"))
	if err != nil {
		return nil, err
	}

	flags := cmd.Flags()
	if request.WebPort > 0 {
		mainConfig.Web.ListenPort = request.WebPort
	}
	if flags.Changed("base-path") {
		mainConfig.Web.BasePath = request.BasePath
	}
	if request.Store != "" {
		mainConfig.Store.Driver = request.Store
	}
	if request.LogLevel != "" {
		mainConfig.Log.Level = request.LogLevel
	}
	if request.SSL {
		mainConfig.Web.SSL = true
	}
	if request.CertFile != "" {
		mainConfig.Web.CertFile = request.CertFile
	}
	if request.KeyFile != "" {
		mainConfig.Web.KeyFile = request.KeyFile
	}

	if err := mainConfig.Validate(); err != nil {
		return nil, err
	}
	return mainConfig, nil
}

// Exec opens the post store and runs the web server until SIGINT or SIGTERM
func Exec(ctx context.Context, mainConfig *config.MainConfig) error {
	if ctx == nil {
		ctx = context.Background()
	}
	config.SetupLogging(mainConfig.Log)
	log.Info().Str("version", appVersion).Msg("starting go-pugblog web server")

	if mainConfig.Profile.Enabled {
		profiler := prof.NewProf()
		go profiler.PprofWeb(mainConfig.Profile.Addr)
		profiler.StartMemProfile(mainConfig.Profile.MemProfileEach, mainConfig.Profile.MemProfileFor)
		log.Info().Str("addr", mainConfig.Profile.Addr).Msg("pprof web enabled")
	}

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	store, err := database.Open(ctx, mainConfig.Store)
	if err != nil {
		return fmt.Errorf("failed to open post store: %w", err)
	}
	defer func() {
		if err := store.Close(); err != nil {
			log.Error().Err(err).Msg("failed to close post store")
		} else {
			log.Info().Msg("post store closed")
		}
	}()

	renderer, err := web.NewTemplateRenderer(mainConfig.Web.TemplateDir)
	if err != nil {
		return fmt.Errorf("failed to load templates: %w", err)
	}
	if mainConfig.Web.WatchTemplates {
		if err := renderer.Watch(ctx); err != nil {
			return err
		}
		log.Info().Str("dir", mainConfig.Web.TemplateDir).Msg("watching templates")
	}

	server := web.NewServer(store, &mainConfig.Web, renderer)

	// Start web server in goroutine to make it non-blocking
	webServerErrChan := make(chan error, 1)
	go func() {
		webServerErrChan <- server.Start()
	}()

	select {
	case <-ctx.Done():
		log.Info().Msg("received shutdown signal, initiating graceful shutdown")
	case err := <-webServerErrChan:
		if err != nil {
			return fmt.Errorf("failed to start web server: %w", err)
		}
		return nil
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), mainConfig.Web.ShutdownTimeout)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("graceful shutdown failed: %w", err)
	}
	log.Info().Msg("graceful shutdown completed")
	return nil
}
