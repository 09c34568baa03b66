package dish

import (
	"github.com/smallbiznis/dormmenu/internal/dish/repository"
	"github.com/smallbiznis/dormmenu/internal/dish/service"
	"go.uber.org/fx"
)

var Module = fx.Module("dish.service",
	fx.Provide(repository.Provide),
	fx.Provide(service.New),
)
