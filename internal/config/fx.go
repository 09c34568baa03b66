package config

import "go.uber.org/fx"

var Module = fx.Module("config",
	fx.Provide(Load),
	fx.Provide(NewMenuPolicyHolder),
	fx.Provide(func(h *MenuPolicyHolder) MenuPolicyProvider { return h }),
)
