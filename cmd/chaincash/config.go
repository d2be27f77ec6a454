package main

import (
	"github.com/urfave/cli/v2"

	"github.com/chaincashlabs/chaincash/config"
)

// resolveConfig layers config.Load's three tiers (default file, local file,
// CHAINCASH_* env) under a fourth and final tier: any CLI flag the operator
// passed explicitly. cli.Context.IsSet reports only flags actually given on
// the command line, so an unset flag never clobbers a value config.Load
// already resolved.
func resolveConfig(cliCtx *cli.Context) (config.Config, error) {
	cfg, err := config.Load(cliCtx.String(configFlag.Name), cliCtx.String(configLocalFlag.Name))
	if err != nil {
		return config.Config{}, err
	}

	if cliCtx.IsSet(serverURLFlag.Name) {
		cfg.Server.URL = cliCtx.String(serverURLFlag.Name)
	}
	if cliCtx.IsSet(serverPortFlag.Name) {
		cfg.Server.Port = cliCtx.Int(serverPortFlag.Name)
	}
	if cliCtx.IsSet(storeURLFlag.Name) {
		cfg.Store.URL = cliCtx.String(storeURLFlag.Name)
	}
	if cliCtx.IsSet(nodeURLFlag.Name) {
		cfg.Node.URL = cliCtx.String(nodeURLFlag.Name)
	}
	if cliCtx.IsSet(nodeAPIKeyFlag.Name) {
		cfg.Node.APIKey = cliCtx.String(nodeAPIKeyFlag.Name)
	}
	if cliCtx.IsSet(acceptancePredicatesFlag.Name) {
		cfg.Acceptance.Predicates = cliCtx.StringSlice(acceptancePredicatesFlag.Name)
	}

	return cfg, nil
}
