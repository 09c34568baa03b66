package identity

import "go.uber.org/fx"

var Module = fx.Module("identity",
	fx.Provide(NewJWTVerifier),
	fx.Provide(func(v *JWTVerifier) Verifier { return v }),
)
