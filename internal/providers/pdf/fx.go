package pdf

import "go.uber.org/fx"

var Module = fx.Module("pdf.provider",
	fx.Provide(NewRenderer),
	fx.Provide(NewService),
)
