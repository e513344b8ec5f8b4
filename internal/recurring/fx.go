package recurring

import (
	"github.com/smallbiznis/factura/internal/recurring/repository"
	"github.com/smallbiznis/factura/internal/recurring/service"
	"go.uber.org/fx"
)

var Module = fx.Module("recurring.service",
	fx.Provide(repository.Provide),
	fx.Provide(service.NewService),
)
