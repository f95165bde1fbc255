package chasing

import (
	"github.com/redis/go-redis/v9"
	"github.com/smallbiznis/collecta/internal/chasing/assign"
	"github.com/smallbiznis/collecta/internal/chasing/balance"
	"github.com/smallbiznis/collecta/internal/chasing/condition"
	"github.com/smallbiznis/collecta/internal/chasing/domain"
	"github.com/smallbiznis/collecta/internal/chasing/listener"
	"github.com/smallbiznis/collecta/internal/chasing/lock"
	"github.com/smallbiznis/collecta/internal/chasing/plan"
	"github.com/smallbiznis/collecta/internal/chasing/repository"
	"github.com/smallbiznis/collecta/internal/chasing/run"
	"github.com/smallbiznis/collecta/internal/chasing/sender"
	"github.com/smallbiznis/collecta/internal/config"
	"github.com/smallbiznis/collecta/internal/events"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

func newRedisClient(cfg config.Config) *redis.Client {
	return redis.NewClient(&redis.Options{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
		DB:       cfg.RedisDB,
	})
}

func newEvaluator(cfg config.Config, log *zap.Logger) *condition.Evaluator {
	return condition.NewEvaluator(log, cfg.Chasing.ConditionCacheTTL)
}

func newSenders(log *zap.Logger) domain.Senders {
	return sender.NewLogSenders(log).Bundle()
}

var Module = fx.Module("chasing",
	fx.Provide(repository.Provide),
	fx.Provide(newRedisClient),
	fx.Provide(newEvaluator),
	fx.Provide(newSenders),
	fx.Provide(lock.NewLocker),
	fx.Provide(balance.New),
	fx.Provide(assign.New),
	fx.Provide(plan.New),
	fx.Provide(run.New),
	fx.Provide(listener.New),
	fx.Invoke(func(l *listener.Listener, bus *events.Bus) {
		l.Register(bus)
	}),
)
