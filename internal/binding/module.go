package binding

import "go.uber.org/fx"

// Module provides the device-binding ledger dependencies
var Module = fx.Module("binding",
	fx.Provide(
		NewLedger,
		fx.Annotate(
			NewMemoryLicenseResolver,
			fx.As(new(LicenseResolver)),
		),
	),
)
