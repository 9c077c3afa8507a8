// Command xstreamctl is a thin demo driver for the scheduler core: it
// wires an execution stream to a BASIC or PRIO scheduler, feeds it a
// batch of synthetic work units, and prints what drained. It is not
// part of the core's contract — it exists only to exercise the core
// end to end the way a real embedder would.
package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"steel-orchestrator/internal/xstreamlog"
	"steel-orchestrator/internal/xstreammetrics"
	"steel-orchestrator/pool"
	"steel-orchestrator/sched"
	"steel-orchestrator/stream"
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "xstreamctl",
		Short: "xstreamctl drives the scheduler core for demonstration and manual testing",
	}

	var logLevel string
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "info", "log level: debug, info, warn, error")
	cobra.OnInitialize(func() {
		xstreamlog.SetLevelFromString(logLevel)
	})

	rootCmd.AddCommand(runCmd(), inspectCmd())

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// runCmd wires up one execution stream and one predef-driven scheduler,
// pushes a batch of units, requests FINISH, and drains.
func runCmd() *cobra.Command {
	var (
		predefName string
		units      int
		metrics    bool
	)

	cmd := &cobra.Command{
		Use:   "run",
		Short: "run a scheduler to completion over a batch of synthetic work units",
		RunE: func(cmd *cobra.Command, args []string) error {
			var collectors *xstreammetrics.Collectors
			if metrics {
				collectors = xstreammetrics.Init("xstream")
				go serveMetrics(collectors)
			}

			dispatched := 0
			dispatch := sched.DispatchFunc(func(u pool.Unit) {
				dispatched++
				xstreamlog.Op().Info("dispatched unit", "id", u.ID())
			})

			var s *sched.Scheduler
			var err error
			switch predefName {
			case "basic":
				s, err = sched.NewBasic(sched.Basic, 1, nil, sched.Config{
					Access: pool.SR_SW, Automatic: true, Extra: dispatch,
				})
			case "prio":
				s, err = sched.NewPrio(nil, sched.Config{
					Access: pool.SR_SW, Automatic: true,
				}, dispatch)
			case "prio-single":
				s, err = sched.NewPrioSingle(pool.SR_SW, dispatch)
			default:
				return fmt.Errorf("unknown predef %q (want basic, prio, or prio-single)", predefName)
			}
			if err != nil {
				return fmt.Errorf("constructing scheduler: %w", err)
			}
			// The scheduler is automatic: es.Run frees it once the
			// drive loop returns, so only the early-error paths below
			// free it by hand.

			pools, err := s.GetPools(-1, 0)
			if err != nil {
				s.Free()
				return fmt.Errorf("reading bound pools: %w", err)
			}
			for i := 0; i < units; i++ {
				target := pools[i%len(pools)]
				if err := target.Push(syntheticUnit(fmt.Sprintf("unit-%d", i)), ""); err != nil {
					s.Free()
					return fmt.Errorf("pushing unit: %w", err)
				}
			}
			s.Finish()
			stopSignals := notifyShutdown(s)
			defer stopSignals()

			es := stream.New(true)
			if err := es.Run(context.Background(), s); err != nil {
				return fmt.Errorf("running scheduler: %w", err)
			}

			if collectors != nil {
				for _, p := range pools {
					collectors.ObservePool(p.ID(), p.AccessMode().String(), p.Size(), p.TotalSize())
				}
			}

			fmt.Printf("dispatched %d/%d units, final state=%s\n", dispatched, units, s.State())
			return nil
		},
	}

	cmd.Flags().StringVar(&predefName, "predef", "basic", "predef scheduling policy: basic, prio, or prio-single")
	cmd.Flags().IntVar(&units, "units", 10, "number of synthetic work units to push before requesting finish")
	cmd.Flags().BoolVar(&metrics, "metrics", false, "serve Prometheus metrics on :9090/metrics while running")
	return cmd
}

func inspectCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "inspect",
		Short: "print the access-mode matrix this build enforces",
		RunE: func(cmd *cobra.Command, args []string) error {
			modes := []pool.AccessMode{pool.PRW, pool.PR_PW, pool.PR_SW, pool.SR_PW, pool.SR_SW}
			fmt.Println("mode      bind-from-other-ES   push-within  push-recursive")
			for _, m := range modes {
				within, recursive := pool.CanPushFromOtherES(m)
				fmt.Printf("%-9s %-20v %-12v %v\n", m, pool.CanBindFromOtherES(m), within, recursive)
			}
			return nil
		},
	}
}

func serveMetrics(c *xstreammetrics.Collectors) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", c.Handler())
	xstreamlog.Op().Info("serving metrics", "addr", ":9090")
	if err := http.ListenAndServe(":9090", mux); err != nil {
		xstreamlog.Op().Error("metrics server failed", "error", err)
	}
}

// notifyShutdown maps OS signals onto the runtime's cancellation
// model: EXIT is the only cancellation mechanism (no forced
// preemption), so a signal requests EXIT on s directly rather than
// cancelling a context the scheduler's run loop doesn't consult. Exit
// is idempotent, so a repeated signal or one arriving after FINISH
// already drained is harmless.
func notifyShutdown(s *sched.Scheduler) (stop func()) {
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	done := make(chan struct{})
	go func() {
		select {
		case sig := <-sigCh:
			xstreamlog.Op().Info("received signal, requesting exit", "signal", sig.String())
			s.Exit()
		case <-done:
		}
	}()
	return func() {
		signal.Stop(sigCh)
		close(done)
	}
}

type syntheticUnit string

func (u syntheticUnit) ID() string { return string(u) }

func (u syntheticUnit) Priority() pool.Priority {
	// Deterministic spread across priority levels, keyed on the ID's
	// length, so `--predef prio-single` has something to demonstrate
	// (its PriorityPool is the only pool here that consults Priority).
	switch len(u) % 3 {
	case 0:
		return pool.High
	case 1:
		return pool.Normal
	default:
		return pool.Low
	}
}
