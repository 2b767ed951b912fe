package main

import (
	"encoding/json"
	"fmt"
	"io"

	"dndstake/pkg/config"
	"dndstake/pkg/models"
	"dndstake/pkg/network"
	"dndstake/pkg/rpc"
)

// selfTest validates cfg, dials every RPC URL and checks the chain ids they
// report against the configured and supported chain. A missing chain_id is
// filled in from the first healthy endpoint and saved unless dryRun is set.
// ok is false when the configuration is structurally invalid.
func selfTest(cfg config.Config, path string, dryRun, jsonOut bool, out io.Writer) (report models.TestReport, ok bool) {
	printf := func(format string, a ...interface{}) {
		if !jsonOut {
			fmt.Fprintf(out, format, a...)
		}
	}

	report.ConfigPath = path
	report.ValidStructure = true
	report.DryRun = dryRun
	report.Account = cfg.Account
	report.ValidatorCount = len(cfg.Validators)

	printf("Testing configuration at: %s\n", path)

	for _, err := range cfg.Validate() {
		report.ValidStructure = false
		report.StructureErrors = append(report.StructureErrors, err.Error())
		printf("Error: %s\n", err)
	}
	if !report.ValidStructure {
		return report, false
	}

	printf("Found %d named validators and %d RPC URLs.\n", len(cfg.Validators), len(cfg.RPCURLs))

	supported := network.Supported()
	chain := models.ChainResult{
		Name:          supported.ChainName,
		Symbol:        supported.NativeCurrency.Symbol,
		ConfigChainID: cfg.ChainID,
	}
	printf("Testing Chain: %s (%s)\n", chain.Name, chain.Symbol)

	var observed int64
	for _, u := range cfg.RPCURLs {
		res := models.RPCResult{URL: u}
		printf("  RPC: %s ... ", u)

		id, _, err := rpc.FetchChainID([]string{u})
		if err != nil {
			res.Status = "error"
			res.Error = err.Error()
			printf("Failed: %v\n", err)
			chain.RPCs = append(chain.RPCs, res)
			continue
		}
		res.Status = "ok"
		res.ChainID = id
		printf("OK (ChainID: %d)", id)
		if n, err := rpc.FetchBlockNumber([]string{u}); err == nil {
			res.BlockNumber = n.Number
			printf(" block #%d", n.Number)
		}

		if observed == 0 {
			observed = id
			chain.ObservedChainID = id
		} else if observed != id {
			printf(" - WARNING: ChainID mismatch with previous RPC (%d)", observed)
			chain.Inconsistent = true
		}

		switch {
		case id != supported.ID():
			res.Error = fmt.Sprintf("Unsupported network! Expected %d", supported.ID())
			chain.Unsupported = true
			printf(" - UNSUPPORTED (expected %d)", supported.ID())
		case cfg.ChainID != 0 && cfg.ChainID != id:
			res.Error = fmt.Sprintf("Mismatch! Expected %d", cfg.ChainID)
			printf(" - MISMATCH! Expected %d", cfg.ChainID)
		case cfg.ChainID != 0:
			printf(" - Verified")
		default:
			cfg.ChainID = id
			report.ConfigUpdated = true
			printf(" - UPDATED CONFIG")
			if dryRun {
				printf(" (DRY RUN)")
			}
		}
		printf("\n")
		chain.RPCs = append(chain.RPCs, res)
	}
	report.Chain = chain

	if chain.Inconsistent {
		printf("\nWARNING: Inconsistent RPCs detected!\n")
		printf("The configured RPC URLs return conflicting Chain IDs.\n")
	}
	if chain.Unsupported {
		printf("\nWARNING: at least one RPC serves a chain other than %s (%d).\n", supported.ChainName, supported.ID())
	}

	if report.ConfigUpdated {
		printf("\nUpdating configuration with fetched Chain ID...\n")
		if dryRun {
			printf("Dry run enabled: Configuration NOT saved.\n")
		} else if err := config.SaveConfig(cfg, path); err != nil {
			report.SaveError = err.Error()
			printf("Failed to save config: %v\n", err)
		} else {
			printf("Configuration saved successfully.\n")
		}
	}
	return report, true
}

func writeReport(out io.Writer, report models.TestReport) error {
	enc := json.NewEncoder(out)
	enc.SetIndent("", "  ")
	return enc.Encode(report)
}
