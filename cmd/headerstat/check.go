package main

import (
	"context"
	"fmt"
	"os"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/hakim/headerstat/internal/config"
	"github.com/hakim/headerstat/internal/fetch"
	"github.com/hakim/headerstat/internal/loader"
	"github.com/hakim/headerstat/internal/storage"
)

// checkResult is one row of the preflight table.
type checkResult struct {
	Name   string
	OK     bool
	Detail string
}

var checkCmd = &cobra.Command{
	Use:   "check",
	Short: "Verify configuration, input and resolvers before a run",
	Long: `Runs preflight checks: validates the configuration, reads the target list,
opens the run directory and database, and, when dns_servers are configured,
resolves a probe hostname through them.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		if cfg == nil {
			return fmt.Errorf("config not loaded. Run 'headerstat init' first to create config")
		}
		probeHost, _ := cmd.Flags().GetString("probe-host")

		results := runChecks(cmd.Context(), cfg, probeHost)

		w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
		fmt.Fprintln(w, "Check\tStatus\tDetail")
		fmt.Fprintln(w, "-----\t------\t------")

		failed := 0
		for _, r := range results {
			status := "[+]"
			if !r.OK {
				status = "[-]"
				failed++
			}
			fmt.Fprintf(w, "%s\t%s\t%s\n", r.Name, status, r.Detail)
		}
		w.Flush()

		fmt.Println()
		if failed > 0 {
			return fmt.Errorf("%d check(s) failed", failed)
		}
		fmt.Println("[+] All checks passed")
		return nil
	},
}

func runChecks(ctx context.Context, c *config.Config, probeHost string) []checkResult {
	if ctx == nil {
		ctx = context.Background()
	}
	var results []checkResult

	if err := c.Validate(); err != nil {
		results = append(results, checkResult{"config", false, err.Error()})
	} else {
		results = append(results, checkResult{"config", true, "valid"})
	}

	if entries, err := loader.ReadTargetList(c.InputFile, c.NumTargets); err != nil {
		results = append(results, checkResult{"input", false, err.Error()})
	} else {
		results = append(results, checkResult{"input", len(entries) > 0, fmt.Sprintf("%d entries from %s", len(entries), c.InputFile)})
	}

	if err := storage.EnsureDir(c.RunDir); err != nil {
		results = append(results, checkResult{"run_dir", false, err.Error()})
	} else {
		results = append(results, checkResult{"run_dir", true, c.RunDir})
	}

	if store, err := storage.NewStore(c.DBPath); err != nil {
		results = append(results, checkResult{"database", false, err.Error()})
	} else {
		store.Close()
		results = append(results, checkResult{"database", true, c.DBPath})
	}

	if _, err := fetch.ParseFingerprint(c.Fetch.TLSFingerprint); err != nil {
		results = append(results, checkResult{"tls", false, err.Error()})
	} else {
		results = append(results, checkResult{"tls", true, "fingerprint " + c.Fetch.TLSFingerprint})
	}

	results = append(results, checkResolvers(ctx, c, probeHost))
	return results
}

func checkResolvers(ctx context.Context, c *config.Config, probeHost string) checkResult {
	if len(c.Fetch.DNSServers) == 0 {
		return checkResult{"dns", true, "system resolver"}
	}

	fc := c.FetcherConfig()
	r, err := fetch.NewDNSResolver(fc.DNSServers, fc.DNSTimeout, fc.DNSCacheSize, fc.DNSTTL)
	if err != nil {
		return checkResult{"dns", false, err.Error()}
	}
	defer r.Close()

	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	ip, err := r.LookupIP(ctx, probeHost)
	if err != nil {
		return checkResult{"dns", false, err.Error()}
	}
	return checkResult{"dns", true, fmt.Sprintf("%s -> %s", probeHost, ip)}
}

func init() {
	checkCmd.Flags().String("probe-host", "example.com", "hostname resolved to test dns_servers")
	rootCmd.AddCommand(checkCmd)
}
