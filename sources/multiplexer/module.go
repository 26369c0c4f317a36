package multiplexer

import "go.uber.org/fx"

var Module = fx.Module("multiplexer", fx.Provide(NewMultiplexer))
