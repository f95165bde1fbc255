package condition

import (
	"time"

	"github.com/smallbiznis/collecta/internal/cache"
	"go.uber.org/zap"
)

type compiled struct {
	program *Program
	invalid bool
}

// Evaluator compiles expressions on first use and caches the result. Parse
// failures are cached too, so a broken cadence condition is reported once per
// TTL instead of on every customer.
type Evaluator struct {
	log      *zap.Logger
	programs cache.Cache[string, compiled]
	ttl      time.Duration
}

// NewEvaluator constructs a caching evaluator.
func NewEvaluator(log *zap.Logger, ttl time.Duration) *Evaluator {
	if ttl <= 0 {
		ttl = 10 * time.Minute
	}
	return &Evaluator{
		log:      log.Named("chasing.condition"),
		programs: cache.NewTTLCache[string, compiled](),
		ttl:      ttl,
	}
}

// Matches evaluates the expression against a customer view. It fails closed:
// parse errors, type errors and missing paths all evaluate to false.
func (e *Evaluator) Matches(expression string, view map[string]any) bool {
	entry, ok := e.programs.Get(expression)
	if !ok {
		program, err := Compile(expression)
		if err != nil {
			e.log.Warn("invalid assignment condition, treating as non-matching",
				zap.String("expression", expression),
				zap.Error(err),
			)
			entry = compiled{invalid: true}
		} else {
			entry = compiled{program: program}
		}
		e.programs.Set(expression, entry, e.ttl)
	}
	if entry.invalid {
		return false
	}
	return entry.program.Evaluate(view)
}
