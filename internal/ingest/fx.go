package ingest

import (
	"github.com/smallbiznis/dormmenu/internal/ingest/domain"
	"github.com/smallbiznis/dormmenu/internal/ingest/service"
	"github.com/smallbiznis/dormmenu/internal/ratelimit"
	"go.uber.org/fx"
)

var Module = fx.Module("ingest.service",
	fx.Provide(provideLocker),
	fx.Provide(service.New),
)

func provideLocker(limiter *ratelimit.Limiter) domain.MonthLocker {
	if limiter == nil {
		return nil
	}
	return limiter
}
