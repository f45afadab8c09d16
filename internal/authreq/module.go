package authreq

import (
	"github.com/pff-protocol/presence-core/internal/config"
	"go.uber.org/fx"
)

// Module provides the broker dependencies
var Module = fx.Module("authreq",
	fx.Provide(
		NewBroker,
		NewMemoryNotifier,
		func(cfg *config.Config) config.BrokerConfig { return cfg.Broker },
	),
)
