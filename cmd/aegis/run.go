package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"text/tabwriter"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/newthinker/aegis/internal/app"
	"github.com/newthinker/aegis/internal/config"
	"github.com/newthinker/aegis/internal/logger"
)

var runOnce bool

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Start the decision engine",
	RunE:  runEngine,
}

func init() {
	runCmd.Flags().BoolVar(&runOnce, "once", false, "run a single cycle and print the portfolio")
	rootCmd.AddCommand(runCmd)
}

func runEngine(cmd *cobra.Command, args []string) error {
	log := logger.Must(debug)
	defer log.Sync()

	var cfg *config.Config
	var err error

	if cfgFile != "" {
		cfg, err = config.Load(cfgFile)
		if err != nil {
			return fmt.Errorf("loading config: %w", err)
		}
	} else {
		cfg = config.Defaults()
		log.Warn("no config file specified, using defaults")
	}

	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("config validation failed: %w", err)
	}

	engine, err := app.New(cfg, log)
	if err != nil {
		return fmt.Errorf("building engine: %w", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if runOnce {
		engine.RunOnce(ctx)
		printPortfolio(engine)
		return nil
	}

	log.Info("starting engine",
		zap.String("config", cfgFile),
		zap.Bool("debug", debug))

	err = engine.Run(ctx)
	printPortfolio(engine)
	return err
}

func printPortfolio(engine *app.App) {
	view := engine.Ledger().Snapshot()

	fmt.Println("Portfolio Summary")
	fmt.Println("-----------------")
	fmt.Printf("Total Value:  $%.2f\n", view.TotalValue)
	fmt.Printf("Cash:         $%.2f\n", view.CashBalance)
	fmt.Printf("Realized P&L: $%.2f\n", view.Metrics.RealizedPL)
	fmt.Printf("Max Drawdown: %.2f%%\n", view.Metrics.MaxDrawdown)

	if len(view.Positions) > 0 {
		fmt.Println()
		w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
		fmt.Fprintln(w, "SYMBOL\tQTY\tAVG COST\tPRICE\tMKT VALUE\tP&L\t")
		fmt.Fprintln(w, "------\t---\t--------\t-----\t---------\t---\t")
		for _, p := range view.Positions {
			plSign := ""
			if p.UnrealizedPL >= 0 {
				plSign = "+"
			}
			fmt.Fprintf(w, "%s\t%d\t%.2f\t%.2f\t%.2f\t%s%.2f\t\n",
				p.Symbol, p.Quantity, p.AveragePrice, p.CurrentPrice,
				p.MarketValue, plSign, p.UnrealizedPL)
		}
		w.Flush()
	}

	orders := engine.RecentOrders(10)
	if len(orders) > 0 {
		fmt.Println()
		w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
		fmt.Fprintln(w, "ORDER ID\tSYMBOL\tSIDE\tQTY\tPRICE\tSTATUS\t")
		fmt.Fprintln(w, "--------\t------\t----\t---\t-----\t------\t")
		for _, o := range orders {
			fmt.Fprintf(w, "%s\t%s\t%s\t%d\t%.2f\t%s\t\n",
				o.ID, o.Symbol, o.Side, o.Quantity, o.FilledPrice, o.Status)
		}
		w.Flush()
	}
}
