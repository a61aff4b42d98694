// Command worker drives a messaging-system load test against a driver
// resolved from a config file's driverClass field, reporting latency and
// throughput the way the load engine and worker packages record them.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/gofrs/flock"
	"github.com/spf13/cobra"

	"github.com/torosent/benchworker/internal/dashboard"
	_ "github.com/torosent/benchworker/internal/drivers/grpcloop"
	_ "github.com/torosent/benchworker/internal/drivers/loopback"
	_ "github.com/torosent/benchworker/internal/drivers/wsloop"
	"github.com/torosent/benchworker/internal/feeder"
	"github.com/torosent/benchworker/internal/keydist"
	"github.com/torosent/benchworker/internal/loadengine"
	"github.com/torosent/benchworker/internal/metricsink"
	"github.com/torosent/benchworker/internal/output"
	"github.com/torosent/benchworker/internal/threshold"
	"github.com/torosent/benchworker/internal/tracing"
	"github.com/torosent/benchworker/internal/worker"
)

func main() {
	cmd, f := newRootCommand()
	cmd.RunE = func(_ *cobra.Command, _ []string) error {
		return run(f)
	}
	if err := cmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "worker:", err)
		os.Exit(1)
	}
}

func run(f *runFlags) error {
	if f.DriverConfig == "" {
		return fmt.Errorf("--driver-config is required")
	}

	driverClass, rawConfig, err := loadDriverConfig(f.DriverConfig)
	if err != nil {
		return err
	}

	lockPath := filepath.Join(os.TempDir(), "benchworker-"+filepath.Base(f.DriverConfig)+".lock")
	fileLock := flock.New(lockPath)
	locked, err := fileLock.TryLock()
	if err != nil {
		return fmt.Errorf("acquire pid lock %s: %w", lockPath, err)
	}
	if !locked {
		return fmt.Errorf("another worker already holds %s; is one already running against this driver config?", lockPath)
	}
	defer fileLock.Unlock()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var tracerProvider *tracing.Provider
	var sink metricsink.Sink = metricsink.NoopSink{}
	if f.OTLPEndpoint != "" {
		tracerProvider, err = tracing.Init(ctx, tracing.Config{
			ServiceName: "benchworker",
			Endpoint:    f.OTLPEndpoint,
			Protocol:    f.OTLPProtocol,
			Insecure:    f.OTLPInsecure,
			SampleRate:  1.0,
		})
		if err != nil {
			return fmt.Errorf("init tracing: %w", err)
		}
		defer tracerProvider.Shutdown(context.Background())

		meter, closeMeter, err := newOtelMeter(ctx, f)
		if err != nil {
			return fmt.Errorf("init metrics: %w", err)
		}
		defer closeMeter(context.Background())
		sink = metricsink.NewOtelSink(meter, "benchworker")
	}

	w := worker.New(sink)
	if tracerProvider != nil {
		w.SetTracer(tracerProvider.Tracer())
	}

	if err := w.InitializeDriver(driverClass, rawConfig); err != nil {
		return err
	}
	defer w.StopAll()

	topics, err := w.CreateOrValidateTopics(ctx, worker.TopicsInfo{
		ExistingTopics:     f.Topics,
		NumberOfTopics:     f.NumTopics,
		PartitionsPerTopic: f.Partitions,
	})
	if err != nil {
		return err
	}

	producerTopics := make([]string, 0, len(topics)*f.Producers)
	for _, t := range topics {
		for i := 0; i < f.Producers; i++ {
			producerTopics = append(producerTopics, t)
		}
	}
	if err := w.CreateProducers(ctx, producerTopics); err != nil {
		return err
	}

	var consumerAssignment worker.ConsumerAssignment
	for _, t := range topics {
		for _, sub := range f.Subscriptions {
			consumerAssignment = append(consumerAssignment, worker.ConsumerAssignmentEntry{
				Topic:        t,
				Subscription: sub,
			})
		}
	}
	if len(consumerAssignment) > 0 {
		if err := w.CreateConsumers(ctx, consumerAssignment); err != nil {
			return err
		}
	}

	if f.WarmUp > 0 {
		warmCtx, cancel := context.WithTimeout(ctx, f.WarmUp)
		err := w.ProbeProducers(warmCtx)
		cancel()
		if err != nil {
			return fmt.Errorf("warmup: %w", err)
		}
	}

	payloads, err := resolvePayloads(f)
	if err != nil {
		return err
	}

	keyType := keydist.Type(f.KeyDistributor)

	if err := w.StartLoad(ctx, loadengine.Assignment{
		PublishRate:        f.Rate,
		KeyDistributorType: keyType,
		PayloadData:        payloads,
	}); err != nil {
		return err
	}

	var reporter *output.ProgressReporter
	var dash *dashboard.Dashboard
	if f.Dashboard {
		dash, err = dashboard.New(w, dashboard.Config{
			DriverName:  driverClass,
			TargetRate:  f.Rate,
			Producers:   len(producerTopics),
			Consumers:   len(consumerAssignment),
			PayloadSize: f.PayloadSize,
		}, stop)
		if err != nil {
			return fmt.Errorf("init dashboard: %w", err)
		}
		dash.Start()
	} else {
		reporter = output.NewProgressReporter(w, time.Second, os.Stdout)
		reporter.Start()
	}

	runCtx, cancelRun := context.WithTimeout(ctx, f.Duration)
	<-runCtx.Done()
	cancelRun()

	if dash != nil {
		dash.Stop()
	}
	if reporter != nil {
		reporter.Stop()
		fmt.Fprintln(os.Stdout)
	}

	cumulative := w.GetCumulativeLatencies()
	totals := w.GetCountersStats()

	if err := w.StopAll(); err != nil {
		fmt.Fprintln(os.Stderr, "worker: stop_all:", err)
	}

	if len(f.Assertions) == 0 {
		return nil
	}

	thresholds, err := threshold.ParseMultiple(f.Assertions)
	if err != nil {
		return err
	}

	snap := threshold.Snapshot{
		Publish:          cumulative.Publish,
		Schedule:         cumulative.Schedule,
		PublishDelay:     cumulative.PublishDelay,
		EndToEnd:         cumulative.EndToEnd,
		MessagesSent:     totals.MessagesSent,
		MessagesReceived: totals.MessagesReceived,
		Errors:           totals.Errors,
		ElapsedSeconds:   f.Duration.Seconds(),
	}

	results := threshold.NewEvaluator(thresholds).Evaluate(snap)
	failed := false
	for _, r := range results {
		fmt.Fprintln(os.Stdout, r.Message)
		if !r.Pass {
			failed = true
		}
	}
	if failed {
		return fmt.Errorf("one or more assertions failed")
	}
	return nil
}

func resolvePayloads(f *runFlags) ([][]byte, error) {
	if f.PayloadDir != "" {
		return feeder.LoadAll(f.PayloadDir)
	}
	if f.PayloadSize <= 0 {
		return nil, fmt.Errorf("--payload-size must be positive when --payload-dir is not set")
	}
	return [][]byte{make([]byte, f.PayloadSize)}, nil
}
