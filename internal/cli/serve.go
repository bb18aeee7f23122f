package cli

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/spf13/cobra"

	"go-album-center/internal/api"
	"go-album-center/internal/api/handlers"
	"go-album-center/internal/api/middleware"
	"go-album-center/internal/websocket"
)

const shutdownTimeout = 10 * time.Second

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the album and media collections over HTTP",
	RunE: func(cmd *cobra.Command, args []string) error {
		return serve(cmd.Context())
	},
}

func registerServeCommands() {
	rootCmd.AddCommand(serveCmd)
}

func serve(ctx context.Context) error {
	a, err := bootstrap(ctx)
	if err != nil {
		return err
	}
	defer a.close()

	if a.cfg.Server.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	notifications := websocket.NewManager(a.log)
	go notifications.Run(ctx)

	lib := a.library(notifications)
	router := api.NewRouter(api.Deps{
		Handler:       handlers.New(lib, a.cfg, a.log),
		Authenticator: middleware.NewChain(a.cfg.Auth),
		Metrics:       middleware.NewMetrics(),
		Notifications: notifications,
		Log:           a.log,
	})

	srv := &http.Server{
		Addr:              a.cfg.Server.Addr(),
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}
	errc := make(chan error, 1)
	go func() {
		a.log.Info().Str("addr", srv.Addr).Str("storage", string(a.blobs.Provider())).Msg("listening")
		errc <- srv.ListenAndServe()
	}()

	select {
	case err := <-errc:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	a.log.Info().Msg("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), shutdownTimeout)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}
