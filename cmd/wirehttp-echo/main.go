// Command wirehttp-echo answers every request with its own body.
package main

import (
	"bytes"
	"context"

	"github.com/caarlos0/env/v11"
	"github.com/pkg/errors"
	"go.uber.org/fx"
	"go.uber.org/zap"

	"github.com/widaT/wirehttp"
)

type echoEnv struct {
	Addr string `env:"WIREHTTP_ADDR" envDefault:":8080"`
}

func main() {
	fx.New(
		fx.Provide(
			wirehttp.ParseConfig,
			parseEchoEnv,
			func(cfg wirehttp.Config) (*zap.Logger, error) { return cfg.NewLogger() },
			newListener,
		),
		fx.Invoke(func(*wirehttp.Listener) {}),
	).Run()
}

func parseEchoEnv() (echoEnv, error) {
	var e echoEnv
	if err := env.Parse(&e); err != nil {
		return e, errors.Wrap(err, "failed to parse environment")
	}
	return e, nil
}

func newListener(lc fx.Lifecycle, cfg wirehttp.Config, e echoEnv, logger *zap.Logger) (*wirehttp.Listener, error) {
	ln, err := wirehttp.Listen(e.Addr,
		wirehttp.WithConfig(cfg),
		wirehttp.WithLogger(logger),
		wirehttp.WithHandler(wirehttp.Dispatch(echo(logger), nil)),
	)
	if err != nil {
		return nil, err
	}

	var bg *wirehttp.Background
	lc.Append(fx.Hook{
		OnStart: func(context.Context) error {
			logger.Info("listening", zap.Stringer("addr", ln.Addr()))
			bg = ln.RunInBackground(context.Background())
			return nil
		},
		OnStop: func(context.Context) error {
			closeErr := ln.Close()
			if err := bg.Stop(); err != nil {
				return err
			}
			return closeErr
		},
	})
	return ln, nil
}

func echo(logger *zap.Logger) func(*wirehttp.Request) {
	return func(req *wirehttp.Request) {
		body, err := req.ReadBody()
		if err != nil {
			logger.Warn("failed to read request body", zap.Error(err))
			req.Connection().Close()
			return
		}

		var framed bytes.Buffer
		if err := wirehttp.WriteChunked(&framed, bytes.NewReader(body)); err != nil {
			logger.Warn("failed to frame response body", zap.Error(err))
			return
		}

		resp := wirehttp.NewResponse("200 OK")
		resp.Header().Set(wirehttp.HeaderTransferEncoding, "chunked")
		resp.Header().Set("content-type", "application/octet-stream")
		resp.SetClose(req.ShouldClose())
		resp.SetBody(framed.Bytes())

		if err := req.Connection().WriteMessage(resp); err != nil {
			logger.Warn("failed to write response", zap.Error(err))
		}
	}
}
