package main

import (
	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/creditdesk/internal/clock"
	"github.com/smallbiznis/creditdesk/internal/config"
	"github.com/smallbiznis/creditdesk/internal/migration"
	"github.com/smallbiznis/creditdesk/internal/observability"
	"github.com/smallbiznis/creditdesk/internal/server"
	"github.com/smallbiznis/creditdesk/pkg/db"
	"go.uber.org/fx"
)

func main() {
	app := fx.New(
		// Core Infrastructure
		config.Module,
		observability.Module,
		fx.Provide(RegisterSnowflake),
		db.Module,
		clock.Module,
		migration.Module,

		// HTTP surface and every domain it serves
		server.Module,
	)
	app.Run()
}

func RegisterSnowflake() *snowflake.Node {
	node, err := snowflake.NewNode(1)
	if err != nil {
		panic(err)
	}
	return node
}
