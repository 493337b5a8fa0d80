package cmd

import "go.uber.org/fx"

var Module = fx.Module("cli",
	fx.Provide(
		fx.Annotate(backupCmd, fx.ResultTags(`group:"commands"`)),
		fx.Annotate(dev, fx.ResultTags(`group:"commands"`)),
		fx.Annotate(hba, fx.ResultTags(`group:"commands"`)),
		fx.Annotate(list, fx.ResultTags(`group:"commands"`)),
		fx.Annotate(reassign, fx.ResultTags(`group:"commands"`)),
		fx.Annotate(reload, fx.ResultTags(`group:"commands"`)),
		fx.Annotate(restoreCmd, fx.ResultTags(`group:"commands"`)),
		fx.Annotate(script, fx.ResultTags(`group:"commands"`)),
		fx.Annotate(terminate, fx.ResultTags(`group:"commands"`)),
	),
	fx.Invoke(Run),
)
