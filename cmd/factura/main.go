package main

import (
	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/factura/internal/clock"
	"github.com/smallbiznis/factura/internal/config"
	"github.com/smallbiznis/factura/internal/migration"
	"github.com/smallbiznis/factura/internal/observability"
	"github.com/smallbiznis/factura/internal/scheduler"
	"github.com/smallbiznis/factura/internal/server"
	"github.com/smallbiznis/factura/pkg/db"
	"go.uber.org/fx"
)

func main() {
	app := fx.New(
		config.Module,
		observability.Module,
		fx.Provide(newSnowflakeNode),
		db.Module,
		clock.Module,
		migration.Module,
		server.Module,
		scheduler.Module,
	)
	app.Run()
}

func newSnowflakeNode(cfg config.Config) (*snowflake.Node, error) {
	return snowflake.NewNode(cfg.SnowflakeNode)
}
