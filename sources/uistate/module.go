package uistate

import (
	"babelgram/sources/persistence"
	"babelgram/sources/translation"

	"go.uber.org/fx"
)

var Module = fx.Module("uistate",
	fx.Provide(
		func(vault persistence.Vault, manager *translation.Manager) *StateStore {
			return NewStateStore(vault, manager)
		},
	),
)
