package directory

import "go.uber.org/fx"

var Module = fx.Module("directory",
	fx.Provide(
		fx.Annotate(NewClient, fx.As(new(Directory))),
	),
	fx.Provide(NewWebhookVerifier),
)
