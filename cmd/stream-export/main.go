// Command stream-export replays one of the append logs from its first
// offset and writes it out as NDJSON for ad-hoc analysis.
package main

import (
	"bufio"
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"os"
	"strings"
	"sync"
	"time"

	ikafka "disaster-alerts/internal/kafka"
	"disaster-alerts/pkg/batcher"
)

func main() {
	var (
		brokers = flag.String("brokers", "localhost:9092", "comma-separated kafka brokers")
		topic   = flag.String("topic", "alerts.events", "log topic to replay")
		out     = flag.String("out", "-", "output file, - for stdout")
		idle    = flag.Duration("idle-timeout", 5*time.Second, "stop after this long without a new message")
	)
	flag.Parse()

	dest := os.Stdout
	if *out != "-" {
		f, err := os.Create(*out)
		if err != nil {
			log.Fatalf("create %s: %v", *out, err)
		}
		defer f.Close()
		dest = f
	}
	writer := bufio.NewWriter(dest)
	defer writer.Flush()

	// Ticker flushes and size flushes run on different goroutines; the
	// buffered writer needs serialized access.
	var writeMu sync.Mutex
	lines := batcher.New(1000, time.Second, func(batch []string) error {
		writeMu.Lock()
		defer writeMu.Unlock()
		for _, line := range batch {
			if _, err := writer.WriteString(line + "\n"); err != nil {
				return err
			}
		}
		return writer.Flush()
	}, func(err error) {
		log.Printf("flush export batch: %v", err)
	})

	reader := ikafka.NewReplayReader(strings.Split(*brokers, ","), *topic)
	defer reader.Close()

	exported := 0
	for {
		ctx, cancel := context.WithTimeout(context.Background(), *idle)
		msg, err := reader.ReadMessage(ctx)
		cancel()
		if err != nil {
			if errors.Is(err, context.DeadlineExceeded) {
				break
			}
			log.Fatalf("read %s: %v", *topic, err)
		}
		if err := lines.Add(string(msg.Value)); err != nil {
			log.Fatalf("write export line: %v", err)
		}
		exported++
	}

	if err := lines.Close(); err != nil {
		log.Fatalf("final flush: %v", err)
	}
	fmt.Fprintf(os.Stderr, "exported %d records from %s\n", exported, *topic)
}
