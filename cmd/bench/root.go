package bench

import (
	"encoding/csv"
	"fmt"
	"math/rand"
	"os"
	"strconv"
	"sync"
	"sync/atomic"
	"time"

	"github.com/ValentinKolb/dIRC/cmd/util"
	"github.com/ValentinKolb/dIRC/irc/reply"
	"github.com/ValentinKolb/dIRC/lib/channel"
	gometrics "github.com/rcrowley/go-metrics"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var (
	BenchCmd = &cobra.Command{
		Use:     "bench",
		Short:   "Benchmark the channel directory in-process",
		Long:    `Simulates users joining, messaging and parting a set of channels concurrently and reports the latency of each operation. No network is involved, every line is discarded.`,
		PreRunE: processBenchConfig,
		RunE:    run,
	}
	benchConfig = Config{}
)

// operations measured by the benchmark
var operations = []string{"join", "message", "part"}

// Config configures a benchmark run
type Config struct {
	Users    int
	Channels int
	Duration time.Duration
}

// Result holds the latency statistics of one operation (times in nanoseconds)
type Result struct {
	Name  string
	Count int64
	Mean  float64
	P50   float64
	P99   float64
	Rate  float64 // operations per second
}

func init() {
	key := "users"
	BenchCmd.Flags().Int(key, 64, util.WrapString("Number of simulated users, each one runs in its own goroutine"))
	key = "channels"
	BenchCmd.Flags().Int(key, 16, util.WrapString("Number of channels the users join and part"))
	key = "duration"
	BenchCmd.Flags().Int(key, 5, util.WrapString("Duration of the benchmark in seconds"))
	key = "csv"
	BenchCmd.Flags().String(key, "", util.WrapString("Optional path to save benchmark results as CSV"))
}

func processBenchConfig(cmd *cobra.Command, _ []string) error {
	if err := viper.BindPFlags(cmd.Flags()); err != nil {
		return err
	}

	benchConfig = Config{
		Users:    viper.GetInt("users"),
		Channels: viper.GetInt("channels"),
		Duration: time.Duration(viper.GetInt("duration")) * time.Second,
	}
	if benchConfig.Users <= 0 || benchConfig.Channels <= 0 || benchConfig.Duration <= 0 {
		return fmt.Errorf("users, channels and duration must be positive")
	}
	return nil
}

func run(_ *cobra.Command, _ []string) error {
	fmt.Println("Benchmark of the channel directory")
	fmt.Printf("Users: %d, Channels: %d, Duration: %s\n\n", benchConfig.Users, benchConfig.Channels, benchConfig.Duration)

	results, info, lines := Run(benchConfig)

	for _, r := range results {
		printResult(r)
	}
	fmt.Println()
	fmt.Printf("Lines delivered: %d\n", lines)
	fmt.Printf("Directory at half time: %d channels (members: %d, mean %.2f, median %.2f, p99 %.0f, max %.0f)\n",
		info.Channels, info.Members, info.Distribution.Mean, info.Distribution.Median, info.P99Members, info.Distribution.Max)

	if path := viper.GetString("csv"); path != "" {
		if err := writeCSV(path, results); err != nil {
			return err
		}
		fmt.Printf("Results saved to %s\n", path)
	}
	return nil
}

// --------------------------------------------------------------------------
// Benchmark
// --------------------------------------------------------------------------

// Run executes the benchmark. It returns one result per operation, the
// directory info sampled at half time and the number of delivered lines.
func Run(config Config) ([]Result, channel.Info, int64) {
	var delivered atomic.Int64

	dir := channel.NewDirectory(reply.NewFormatter("bench.local"), nil)
	defer dir.Close()

	registry := gometrics.NewRegistry()
	timers := make(map[string]gometrics.Timer, len(operations))
	for _, op := range operations {
		timers[op] = gometrics.NewTimer()
		_ = registry.Register(op, timers[op])
	}

	names := make([]string, config.Channels)
	for i := range names {
		names[i] = "#bench" + strconv.Itoa(i)
	}

	deadline := time.Now().Add(config.Duration)

	var info channel.Info
	sampled := make(chan struct{})
	go func() {
		defer close(sampled)
		time.Sleep(config.Duration / 2)
		info = dir.Info()
	}()

	var wg sync.WaitGroup
	for u := 0; u < config.Users; u++ {
		wg.Add(1)
		go func(u int) {
			defer wg.Done()
			user := newBenchUser("user"+strconv.Itoa(u), &delivered)
			rnd := rand.New(rand.NewSource(int64(u)))

			for time.Now().Before(deadline) {
				name := names[rnd.Intn(len(names))]

				timers["join"].Time(func() { _ = dir.Join(user, name) })
				for i := 0; i < 4; i++ {
					timers["message"].Time(func() { _ = dir.Message(user, name, "hello") })
				}
				timers["part"].Time(func() { _ = dir.Part(user, name, "") })
			}
			dir.Quit(user, "done")
		}(u)
	}
	wg.Wait()
	<-sampled

	results := make([]Result, 0, len(operations))
	for _, op := range operations {
		snapshot := timers[op].Snapshot()
		ps := snapshot.Percentiles([]float64{0.5, 0.99})
		results = append(results, Result{
			Name:  op,
			Count: snapshot.Count(),
			Mean:  snapshot.Mean(),
			P50:   ps[0],
			P99:   ps[1],
			Rate:  snapshot.RateMean(),
		})
	}
	return results, info, delivered.Load()
}

func printResult(r Result) {
	fmt.Printf("%-10s\t%10d ops\tmean %-12s\tp50 %-12s\tp99 %-12s\t%.2f ops/sec\n",
		r.Name, r.Count, formatNanos(r.Mean), formatNanos(r.P50), formatNanos(r.P99), r.Rate)
}

func formatNanos(ns float64) string {
	switch {
	case ns < 1000:
		return fmt.Sprintf("%.2f ns", ns)
	case ns < 1000000:
		return fmt.Sprintf("%.2f µs", ns/1000)
	default:
		return fmt.Sprintf("%.2f ms", ns/1000000)
	}
}

func writeCSV(path string, results []Result) error {
	file, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create csv file: %w", err)
	}
	defer file.Close()

	w := csv.NewWriter(file)
	_ = w.Write([]string{"operation", "count", "mean_ns", "p50_ns", "p99_ns", "ops_per_sec"})
	for _, r := range results {
		_ = w.Write([]string{
			r.Name,
			strconv.FormatInt(r.Count, 10),
			strconv.FormatFloat(r.Mean, 'f', 2, 64),
			strconv.FormatFloat(r.P50, 'f', 2, 64),
			strconv.FormatFloat(r.P99, 'f', 2, 64),
			strconv.FormatFloat(r.Rate, 'f', 2, 64),
		})
	}
	w.Flush()
	return w.Error()
}
