package preflight

import (
	"context"

	"vidmint/internal/config"
)

// Result reports the outcome of a single preflight check.
type Result struct {
	Name   string
	Passed bool
	Detail string
}

// RunAll executes the preflight checks for the given config. Network checks
// honour ctx.
func RunAll(ctx context.Context, cfg *config.Config) []Result {
	if cfg == nil {
		return nil
	}

	results := []Result{
		CheckDirectoryAccess("Data directory", cfg.Paths.DataDir),
		CheckDirectoryAccess("Log directory", cfg.Paths.LogDir),
		CheckContract(cfg.Chain.RegistryPath, cfg.Chain.ChainID, cfg.Chain.ContractName),
		CheckRPC(ctx, cfg.Chain.RPCURL, cfg.Chain.ChainID, cfg.CallTimeout()),
		CheckSigner(cfg.Chain.PrivateKey),
		CheckStorage(ctx, cfg.Storage.BaseURL, cfg.Storage.APIToken),
		CheckNtfy(cfg.Notifications.NtfyTopic),
	}
	return results
}

// Failed returns the results that did not pass.
func Failed(results []Result) []Result {
	var out []Result
	for _, r := range results {
		if !r.Passed {
			out = append(out, r)
		}
	}
	return out
}
