// Load generator posting bulk-ingest batches at the API.
package main

import (
	"bytes"
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"math/rand"
	"net/http"
	"os"
	"sync"
	"sync/atomic"
	"time"
)

var (
	targetURL   string
	concurrency int
	duration    time.Duration
	batchSize   int
	workload    string
)

var (
	totalRequests uint64
	successOK     uint64
	fail409       uint64
	failOther     uint64
)

func init() {
	flag.StringVar(&targetURL, "url", "http://localhost:8080", "API Base URL")
	flag.IntVar(&concurrency, "workers", 10, "Number of concurrent workers")
	flag.DurationVar(&duration, "duration", 30*time.Second, "Test duration")
	flag.IntVar(&batchSize, "batch", 20, "Candidates per bulk upload")
	flag.StringVar(&workload, "workload", "mixed", "Workload type: mixed | transfers | replay")
}

func main() {
	flag.Parse()
	log.Printf("Starting Benchmark: %s | Workers: %d | Duration: %s | Batch: %d", workload, concurrency, duration, batchSize)

	start := time.Now()
	var wg sync.WaitGroup
	wg.Add(concurrency)

	for i := 0; i < concurrency; i++ {
		go worker(&wg, i, start)
	}

	wg.Wait()
	printResults(time.Since(start))
}

func worker(wg *sync.WaitGroup, id int, start time.Time) {
	defer wg.Done()
	client := &http.Client{Timeout: 10 * time.Second}

	batch := 0
	for time.Since(start) < duration {
		batch++
		owner := int64(rand.Intn(50) + 1)
		payload := map[string]interface{}{
			"owner_id":     owner,
			"transactions": buildBatch(id, batch, owner),
		}
		body, _ := json.Marshal(payload)

		req, _ := http.NewRequest("POST", targetURL+"/api/v1/transactions/bulk", bytes.NewBuffer(body))
		req.Header.Set("Content-Type", "application/json")

		resp, err := client.Do(req)
		if err != nil {
			atomic.AddUint64(&failOther, 1)
			continue
		}

		atomic.AddUint64(&totalRequests, 1)
		switch resp.StatusCode {
		case 200:
			atomic.AddUint64(&successOK, 1)
		case 409:
			atomic.AddUint64(&fail409, 1)
		default:
			atomic.AddUint64(&failOther, 1)
		}
		resp.Body.Close()

		// Replay workload re-sends every batch once to exercise the
		// idempotency filter.
		if workload == "replay" && batch%2 == 0 {
			batch--
		}
	}
}

func buildBatch(worker, batch int, owner int64) []map[string]interface{} {
	day := fmt.Sprintf("2026-%02d-%02d", rand.Intn(12)+1, rand.Intn(28)+1)
	rows := make([]map[string]interface{}, 0, batchSize)
	for i := 0; i < batchSize; i++ {
		amount := int64(rand.Intn(50000) + 100)
		row := map[string]interface{}{
			"owner_id":     owner,
			"date":         day,
			"kind":         "EXPENSE",
			"account_name": fmt.Sprintf("seed-%d-0", owner),
			"amount":       fmt.Sprintf("-%d.00", amount),
			"currency":     "KRW",
			"external_key": fmt.Sprintf("bench-%d-%d-%d", worker, batch, i),
			"memo":         "benchmark row",
		}
		if workload == "transfers" || (workload == "mixed" && i%4 == 0) {
			// Two legs of one transfer; the pipeline should pair them.
			row["kind"] = "TRANSFER"
			row["time"] = "12:00:00"
			row["counter_account_name"] = fmt.Sprintf("seed-%d-1", owner)
		}
		rows = append(rows, row)
	}
	return rows
}

func printResults(d time.Duration) {
	total := atomic.LoadUint64(&totalRequests)
	ok := atomic.LoadUint64(&successOK)
	f409 := atomic.LoadUint64(&fail409)
	fErr := atomic.LoadUint64(&failOther)

	results := map[string]interface{}{
		"workload":       workload,
		"duration_sec":   d.Seconds(),
		"total_requests": total,
		"throughput_rps": float64(total) / d.Seconds(),
		"success":        ok,
		"conflicts":      f409,
		"errors":         fErr,
	}

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	enc.Encode(results)

	filename := fmt.Sprintf("results_%s.json", workload)
	file, _ := os.Create(filename)
	defer file.Close()
	json.NewEncoder(file).Encode(results)
}
