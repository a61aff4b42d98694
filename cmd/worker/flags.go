package main

import (
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
)

// runFlags mirrors the shape of the worker CLI's options before they're
// folded into a TopicsInfo / ProducerWorkAssignment / ConsumerAssignment.
type runFlags struct {
	DriverConfig string

	Rate           float64
	Duration       time.Duration
	Topics         []string
	NumTopics      int
	Partitions     int
	Producers      int
	Subscriptions  []string
	PayloadSize    int
	PayloadDir     string
	KeyDistributor string
	WarmUp         time.Duration

	Dashboard    bool
	OTLPEndpoint string
	OTLPProtocol string
	OTLPInsecure bool
	Assertions   []string
}

// newRootCommand builds the cobra command carrying every worker flag.
func newRootCommand() (*cobra.Command, *runFlags) {
	f := &runFlags{}
	cmd := &cobra.Command{
		Use:           "worker",
		Short:         "Drive a messaging-system load test against a pluggable driver",
		SilenceErrors: true,
		SilenceUsage:  true,
	}
	configureFlags(cmd.Flags(), f)
	return cmd, f
}

func configureFlags(flags *pflag.FlagSet, f *runFlags) {
	flags.StringVar(&f.DriverConfig, "driver-config", "", "Path to a YAML/JSON driver config file (must contain driverClass)")

	flags.Float64Var(&f.Rate, "rate", 100, "Target aggregate publish rate, messages/sec")
	flags.DurationVar(&f.Duration, "duration", 30*time.Second, "How long to run the load")
	flags.StringSliceVar(&f.Topics, "topics", nil, "Existing topic names to reuse instead of creating new ones")
	flags.IntVar(&f.NumTopics, "num-topics", 1, "Number of topics to create when --topics is not set")
	flags.IntVar(&f.Partitions, "partitions", 1, "Partitions per created topic")
	flags.IntVar(&f.Producers, "producers", 1, "Producers per topic")
	flags.StringSliceVar(&f.Subscriptions, "subscriptions", []string{"benchworker"}, "Subscription names to create on every topic")
	flags.IntVar(&f.PayloadSize, "payload-size", 1024, "Synthetic payload size in bytes, used when --payload-dir is not set")
	flags.StringVar(&f.PayloadDir, "payload-dir", "", "Directory of payload files to round-robin through instead of a synthetic payload")
	flags.StringVar(&f.KeyDistributor, "key-distributor", "NO_KEY", "Key distribution: NO_KEY, KEY_ROUND_ROBIN, or RANDOM_NANO")
	flags.DurationVar(&f.WarmUp, "warmup", 0, "Probe every producer with a throwaway message before starting the load")

	flags.BoolVar(&f.Dashboard, "dashboard", false, "Show a live terminal dashboard instead of periodic stat lines")
	flags.StringVar(&f.OTLPEndpoint, "otlp-endpoint", "", "OTLP collector endpoint; enables tracing and metrics export when set")
	flags.StringVar(&f.OTLPProtocol, "otlp-protocol", "grpc", "OTLP protocol: grpc or http")
	flags.BoolVar(&f.OTLPInsecure, "otlp-insecure", true, "Skip TLS when dialing the OTLP endpoint")
	flags.StringSliceVar(&f.Assertions, "assert", nil, "Post-run assertion, repeatable (e.g. 'publish_delay:p99 < 500000')")
}
