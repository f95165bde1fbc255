package runner

import (
	"context"

	"go.uber.org/fx"
)

var Module = fx.Module("chasing.runner",
	fx.Provide(New),
	fx.Invoke(func(lc fx.Lifecycle, r *Runner) {
		lc.Append(fx.Hook{
			OnStart: func(ctx context.Context) error {
				return r.Start(ctx)
			},
			OnStop: func(ctx context.Context) error {
				return r.Stop(ctx)
			},
		})
	}),
)
