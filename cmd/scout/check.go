package main

import (
	"fmt"
	"io"
	"sort"
	"strconv"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"memecoin-scout/internal/domain"
	"memecoin-scout/internal/scanner"
)

func newCheckCmd(flags *rootFlags) *cobra.Command {
	var chain string

	cmd := &cobra.Command{
		Use:   "check <address>",
		Short: "Evaluate a single token against the configured filters and weights",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, logger, closeLog, err := loadConfig(flags)
			if err != nil {
				return err
			}
			defer closeLog()

			a := newApp(cfg, logger)
			defer a.Close()

			sc, err := a.scanner(cmd.Context())
			if err != nil {
				return err
			}
			ev, err := sc.Evaluate(cmd.Context(), domain.ParseChain(chain), args[0])
			if err != nil {
				return err
			}
			return printEvaluation(cmd.OutOrStdout(), ev)
		},
	}
	cmd.Flags().StringVar(&chain, "chain", string(domain.ChainSolana), "chain the token lives on")
	return cmd
}

func printEvaluation(w io.Writer, ev *scanner.Evaluation) error {
	c := ev.Candidate
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)

	fmt.Fprintf(tw, "token\t%s %s\n", c.Chain, c.Address)
	if c.Symbol != "" {
		fmt.Fprintf(tw, "symbol\t%s (%s)\n", c.Symbol, c.Name)
	}
	fmt.Fprintf(tw, "listed\t%t\n", ev.Listed)
	fmt.Fprintf(tw, "seen\t%t\n", ev.Seen)

	fmt.Fprintf(tw, "risk\t%d/100\n", ev.Risk.Score)
	fmt.Fprintf(tw, "verdict\t%s\n", strings.ToUpper(string(ev.Risk.Verdict)))
	for _, f := range ev.Risk.Flags {
		fmt.Fprintf(tw, "  [%s]\t%s\n", strings.ToUpper(string(f.Severity)), f.Message)
	}

	if ev.Decision.Accepted {
		fmt.Fprintf(tw, "filter\taccepted\n")
	} else {
		fmt.Fprintf(tw, "filter\trejected: %s (actual %g, limit %g)\n",
			ev.Decision.Reason, ev.Decision.Actual, ev.Decision.Limit)
	}
	if len(ev.Decision.Skipped) > 0 {
		skipped := make([]string, len(ev.Decision.Skipped))
		for i, r := range ev.Decision.Skipped {
			skipped[i] = r.String()
		}
		fmt.Fprintf(tw, "skipped checks\t%s\n", strings.Join(skipped, ", "))
	}

	fmt.Fprintf(tw, "score\t%.2f\n", c.Score())
	if s := c.Scores; s != nil {
		fmt.Fprintf(tw, "  liquidity\t%.3f\n", s.Liquidity)
		fmt.Fprintf(tw, "  volume momentum\t%.3f\n", s.VolumeMomentum)
		fmt.Fprintf(tw, "  trade activity\t%.3f\n", s.TradeActivity)
		fmt.Fprintf(tw, "  holder distribution\t%.3f\n", s.HolderDistribution)
		fmt.Fprintf(tw, "  social trend\t%.3f\n", s.SocialTrend)
		fmt.Fprintf(tw, "  code risk\t%.3f\n", s.CodeRisk)
	}
	if c.MomentumSpike {
		fmt.Fprintf(tw, "momentum spike\tyes\n")
	}

	fmt.Fprintf(tw, "price usd\t%g\n", c.PriceUSD)
	fmt.Fprintf(tw, "liquidity usd\t%.2f\n", c.LiquidityUSD)
	fmt.Fprintf(tw, "fdv usd\t%s\n", optFloat(c.FDVUSD, "%.2f"))
	fmt.Fprintf(tw, "volume usd 1h\t%.2f\n", c.VolumeUSD1h)
	fmt.Fprintf(tw, "trades 5m\t%d (%d buyers, %d sellers)\n", c.Trades5m, c.Buyers5m, c.Sellers5m)
	fmt.Fprintf(tw, "age minutes\t%d\n", c.AgeMinutes)
	fmt.Fprintf(tw, "holders\t%s\n", optInt(c.HolderCount))
	fmt.Fprintf(tw, "top1 holder pct\t%s\n", optFloat(c.Top1HolderPct, "%.2f"))
	fmt.Fprintf(tw, "top5 holder pct\t%s\n", optFloat(c.Top5HolderPct, "%.2f"))
	fmt.Fprintf(tw, "lp lock ratio\t%s\n", optFloat(c.LPLockRatio, "%.2f"))
	fmt.Fprintf(tw, "buy tax bps\t%s\n", optInt(c.BuyTaxBps))
	fmt.Fprintf(tw, "sell tax bps\t%s\n", optInt(c.SellTaxBps))
	fmt.Fprintf(tw, "mint authority revoked\t%s\n", c.MintAuthorityRevoked)
	fmt.Fprintf(tw, "freeze authority revoked\t%s\n", c.FreezeAuthorityRevoked)
	fmt.Fprintf(tw, "owner renounced or timelocked\t%s\n", c.OwnerRenouncedOrTimelocked)
	fmt.Fprintf(tw, "hidden owner\t%s\n", c.HiddenOwner)
	fmt.Fprintf(tw, "ownership reclaimable\t%s\n", c.OwnershipReclaimable)
	fmt.Fprintf(tw, "blacklist or whitelist\t%s\n", c.HasBlacklistOrWhitelist)
	fmt.Fprintf(tw, "honeypot\t%s\n", c.IsHoneypot)
	if c.TwitterHandle != "" {
		fmt.Fprintf(tw, "twitter\t@%s\n", c.TwitterHandle)
	}
	fmt.Fprintf(tw, "twitter followers\t%s\n", optInt(c.TwitterFollowers))
	fmt.Fprintf(tw, "telegram members\t%s\n", optInt(c.TelegramMembers))

	names := make([]string, 0, len(ev.Sources))
	for name := range ev.Sources {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		fmt.Fprintf(tw, "source %s\t%s\n", name, ev.Sources[name])
	}
	return tw.Flush()
}

func optInt(v *int64) string {
	if v == nil {
		return "n/a"
	}
	return strconv.FormatInt(*v, 10)
}

func optFloat(v *float64, format string) string {
	if v == nil {
		return "n/a"
	}
	return fmt.Sprintf(format, *v)
}
