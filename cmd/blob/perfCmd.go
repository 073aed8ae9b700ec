package blob

import (
	"context"
	"encoding/csv"
	"fmt"
	"log"
	"os"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/ValentinKolb/dBlob/cmd/util"
	"github.com/ValentinKolb/dBlob/rpc/common"
	"github.com/rcrowley/go-metrics"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var (
	perfTestCmd = &cobra.Command{
		Use:     "perf",
		Short:   "Performance testing tool for dBlob servers",
		Long:    "",
		RunE:    runPerf,
		PreRunE: processPerfConfig,
	}
	perfBlobPrefix       = "__test"
	perfLargeValueSizeKB = 1000
	perfNumThreads       = 10
	perfBlobSpread       = 100
	perfDuration         = 10 * time.Second
	perfSkip             = make([]string, 0)
)

func init() {
	// add flags
	key := "skip"
	perfTestCmd.Flags().String(key, "", util.WrapString("Benchmarks to skip (comma separated - e.g. put,get)"))
	key = "threads"
	perfTestCmd.Flags().Int(key, 10, util.WrapString("Number of threads to use for the benchmark"))
	key = "large-value-size"
	perfTestCmd.Flags().Int(key, 1000, util.WrapString("How large the value for the put-large test should be (in KB)"))
	key = "blobs"
	perfTestCmd.Flags().Int(key, 100, util.WrapString("How many different blob ids to use for the tests"))
	key = "duration"
	perfTestCmd.Flags().Duration(key, 10*time.Second, util.WrapString("How long to run each benchmark"))
	key = "csv"
	perfTestCmd.Flags().String(key, "", util.WrapString("Optional path to save benchmark results as CSV"))
}

func processPerfConfig(cmd *cobra.Command, _ []string) error {
	if err := viper.BindPFlags(cmd.Flags()); err != nil {
		return err
	}

	// Read the configuration from the command line flags and environment variables
	perfLargeValueSizeKB = viper.GetInt("large-value-size")
	perfBlobSpread = viper.GetInt("blobs")
	perfNumThreads = viper.GetInt("threads")
	perfDuration = viper.GetDuration("duration")
	perfSkip = strings.Split(viper.GetString("skip"), ",")

	return nil
}

func runPerf(_ *cobra.Command, _ []string) error {
	ctx := context.Background()

	fmt.Println("Performance testing tool for dBlob servers")

	// Print configuration
	fmt.Println()
	fmt.Println("Configuration:")
	fmt.Println(util.GetClientConfig().String())
	fmt.Printf("Threads: %d\n", perfNumThreads)
	fmt.Printf("Duration per test: %s\n", perfDuration)
	fmt.Println()

	fmt.Println("starting tests...")

	// Create results map
	results := make(map[string]metrics.Timer)

	putResult := runBenchmark("put", func(counter int) error {
		return blobStore.Put(ctx, blobKey("put", counter), []byte("test"), 0)
	})
	cleanupBlobs(ctx, "put")
	results["put"] = putResult
	printResult("put", putResult)

	largeValue := make([]byte, perfLargeValueSizeKB*1024)
	putLargeResult := runBenchmark("put-large", func(counter int) error {
		return blobStore.Put(ctx, blobKey("put-large", counter), largeValue, 0)
	})
	cleanupBlobs(ctx, "put-large")
	results["put-large"] = putLargeResult
	printResult("put-large", putLargeResult)

	// seed blobs for the read benchmarks
	seedBlobs(ctx, "get")
	getResult := runBenchmark("get", func(counter int) error {
		_, _, err := blobStore.Get(ctx, blobKey("get", counter))
		return err
	})
	cleanupBlobs(ctx, "get")
	results["get"] = getResult
	printResult("get", getResult)

	getNotResult := runBenchmark("get-not", func(counter int) error {
		_, _, err := blobStore.Get(ctx, blobKey("get-not", counter))
		return err
	})
	results["get-not"] = getNotResult
	printResult("get-not", getNotResult)

	seedBlobs(ctx, "delete")
	deleteResult := runBenchmark("delete", func(counter int) error {
		_, err := blobStore.Delete(ctx, blobKey("delete", counter))
		return err
	})
	results["delete"] = deleteResult
	printResult("delete", deleteResult)

	seedBlobs(ctx, "mixed")
	mixedResult := runBenchmark("mixed", func(counter int) error {
		id := blobKey("mixed", counter)
		switch counter % 4 {
		case 0:
			return blobStore.Put(ctx, id, []byte("test"), 0)
		case 1:
			_, _, err := blobStore.Get(ctx, id)
			return err
		case 2:
			_, err := blobStore.UpdateTTL(ctx, id, 60)
			return err
		default:
			_, err := blobStore.Delete(ctx, id)
			return err
		}
	})
	cleanupBlobs(ctx, "mixed")
	results["mixed"] = mixedResult
	printResult("mixed", mixedResult)

	// Write results to csv if specified
	if csvPath := viper.GetString("csv"); csvPath != "" {
		fmt.Printf("\nExporting results to CSV: %s\n", csvPath)
		if err := writeResultsToCSV(csvPath, results, util.GetClientConfig()); err != nil {
			return fmt.Errorf("failed to export results to CSV: %v", err)
		}
		fmt.Println("Export complete")
	}

	return nil
}

// --------------------------------------------------------------------------
// Helper
// --------------------------------------------------------------------------

func shouldSkip(test string) bool {
	// Check if the test is in the skip list
	for _, skip := range perfSkip {
		if test == skip {
			return true
		}
	}
	return false
}

// blobKey returns the i-th blob id for a benchmark (with wraparound)
func blobKey(prefix string, i int) string {
	return fmt.Sprintf("%s-%s-%d", perfBlobPrefix, prefix, i%perfBlobSpread)
}

// seedBlobs stores one small blob per id so read benchmarks hit existing data
func seedBlobs(ctx context.Context, prefix string) {
	if shouldSkip(prefix) {
		return
	}
	for i := 0; i < perfBlobSpread; i++ {
		if err := blobStore.Put(ctx, blobKey(prefix, i), []byte("test"), 0); err != nil {
			log.Printf("(%s) - error seeding blob: %v\n", prefix, err)
		}
	}
}

// cleanupBlobs removes the blobs a benchmark created
func cleanupBlobs(ctx context.Context, prefix string) {
	if shouldSkip(prefix) {
		return
	}
	for i := 0; i < perfBlobSpread; i++ {
		if _, err := blobStore.Delete(ctx, blobKey(prefix, i)); err != nil {
			log.Printf("(%s) - error deleting blob: %v\n", prefix, err)
		}
	}
}

// runBenchmark runs op concurrently for the configured duration and records
// every call in a timer histogram
func runBenchmark(test string, op func(counter int) error) metrics.Timer {
	timer := metrics.NewTimer()
	if shouldSkip(test) {
		return timer
	}

	deadline := time.Now().Add(perfDuration)

	var wg sync.WaitGroup
	for t := 0; t < perfNumThreads; t++ {
		wg.Add(1)
		go func(thread int) {
			defer wg.Done()
			counter := thread
			for time.Now().Before(deadline) {
				start := time.Now()
				if err := op(counter); err != nil {
					log.Printf("(%s) - error performing operation: %v\n", test, err)
				}
				timer.UpdateSince(start)
				counter += perfNumThreads
			}
		}(t)
	}
	wg.Wait()

	return timer
}

// printResult prints the result of a benchmark test in a formatted way
func printResult(test string, timer metrics.Timer) {
	if timer.Count() == 0 {
		fmt.Printf("%-20sskipped\n", test)
		return
	}

	mean := time.Duration(timer.Mean())
	p95 := time.Duration(timer.Percentile(0.95))
	p99 := time.Duration(timer.Percentile(0.99))

	// Print the formatted result
	fmt.Printf("%-20s%d ops\t%.0f ops/sec\tmean=%s\tp95=%s\tp99=%s\n",
		test, timer.Count(), timer.RateMean(), mean, p95, p99)
}

// writeResultsToCSV writes benchmark results to a CSV file
func writeResultsToCSV(csvPath string, results map[string]metrics.Timer, config *common.ClientConfig) error {
	file, err := os.Create(csvPath)
	if err != nil {
		return fmt.Errorf("failed to create CSV file: %v", err)
	}
	defer file.Close()

	writer := csv.NewWriter(file)
	defer writer.Flush()

	// Write header
	header := []string{
		"Test", "Ops", "OpsPerSec", "MeanNs", "P95Ns", "P99Ns", "Skipped",
		"Endpoints", "TimeoutSec", "ConnectionsPerEndpoint", "Serializer",
		"Threads", "LargeValueSizeKB", "Blobs Count",
	}
	if err := writer.Write(header); err != nil {
		return fmt.Errorf("failed to write CSV header: %v", err)
	}

	// Write test results
	for test, timer := range results {
		row := []string{
			test,
			strconv.FormatInt(timer.Count(), 10),
			fmt.Sprintf("%.0f", timer.RateMean()),
			fmt.Sprintf("%.0f", timer.Mean()),
			fmt.Sprintf("%.0f", timer.Percentile(0.95)),
			fmt.Sprintf("%.0f", timer.Percentile(0.99)),
			strconv.FormatBool(timer.Count() == 0),
			strings.Join(config.Endpoints, ";"),
			strconv.Itoa(config.TimeoutSecond),
			strconv.Itoa(config.Network.MaxConnectionsPerEndpoint),
			viper.GetString("serializer"),
			strconv.Itoa(perfNumThreads),
			strconv.Itoa(perfLargeValueSizeKB),
			strconv.Itoa(perfBlobSpread),
		}

		if err := writer.Write(row); err != nil {
			return fmt.Errorf("failed to write row for test %s: %v", test, err)
		}
	}

	return nil
}
