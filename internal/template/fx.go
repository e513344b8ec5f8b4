package template

import (
	"github.com/smallbiznis/factura/internal/template/service"
	"go.uber.org/fx"
)

var Module = fx.Module("template.service",
	fx.Provide(service.New),
)
