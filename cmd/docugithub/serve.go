package main

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	cli "github.com/urfave/cli/v3"
	"go.uber.org/zap"

	"github.com/docugithub/docugithub/internal/metrics"
	"github.com/docugithub/docugithub/internal/ux"
	"github.com/docugithub/docugithub/internal/web"
)

const shutdownTimeout = 10 * time.Second

func serveCmd() *cli.Command {
	return &cli.Command{
		Name:  "serve",
		Usage: "Serve the workflow as web pages",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "host", Usage: "Listen host (default $HOST or 127.0.0.1)"},
			&cli.StringFlag{Name: "port", Usage: "Listen port (default $PORT or 5173)"},
			&cli.DurationFlag{Name: "login-timeout", Value: 15 * time.Minute, Usage: "How long a device login may wait for approval"},
		},
		Action: func(ctx context.Context, cmd *cli.Command) error {
			m := metrics.New()
			ws, err := openWorkspace(m)
			if err != nil {
				return err
			}
			defer ws.Close()
			// The page progress log replaces terminal output.
			ws.Driver.Observer = nil

			srvCfg := ws.Config.Env.Server
			if cmd.IsSet("host") {
				srvCfg.Host = cmd.String("host")
			}
			if cmd.IsSet("port") {
				srvCfg.Port = cmd.String("port")
			}

			s := web.New(web.Options{
				Driver:       ws.Driver,
				Topics:       ws.Config.File.Topics(),
				Metrics:      m,
				Logger:       ws.Logger,
				LoginTimeout: cmd.Duration("login-timeout"),
			})
			defer s.Close()

			ln, err := net.Listen("tcp", srvCfg.Addr())
			if err != nil {
				return fmt.Errorf("listen on %s: %w", srvCfg.Addr(), err)
			}
			httpSrv := &http.Server{
				Handler:           s.Handler(),
				ReadHeaderTimeout: 10 * time.Second,
			}

			errc := make(chan error, 1)
			go func() { errc <- httpSrv.Serve(ln) }()
			ux.Success("Serving on http://" + ln.Addr().String())
			ws.Logger.Info("server started", zap.String("addr", ln.Addr().String()))

			select {
			case err := <-errc:
				if !errors.Is(err, http.ErrServerClosed) {
					return err
				}
				return nil
			case <-ctx.Done():
			}

			shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
			defer cancel()
			ws.Logger.Info("shutting down")
			if err := httpSrv.Shutdown(shutdownCtx); err != nil {
				return fmt.Errorf("shutdown: %w", err)
			}
			return nil
		},
	}
}
