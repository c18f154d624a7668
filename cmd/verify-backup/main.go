// Licensed to Wholesale Dashboard under one or more agreements.
// Wholesale Dashboard licenses this file to you under the Apache 2.0 License.
// See the LICENSE file in the project root for more information.

// Package main implements verify-backup, an offline utility that reads a
// local JSON export of Wholecell inventory and prints a breakdown of item
// statuses. It is used to sanity-check dashboard data against a backup
// without touching the live API.
package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"os"
	"sort"
)

// backup mirrors the relevant slice of the export file.
type backup struct {
	Items []struct {
		Status string `json:"status"`
	} `json:"items"`
}

// statusCount pairs a status value with its number of occurrences.
type statusCount struct {
	Status string
	Count  int
}

// countStatuses tallies item statuses from a backup export. Items without a
// status count as "Unknown". Results are ordered by descending count, then
// by status name for stable output.
func countStatuses(r io.Reader) ([]statusCount, error) {
	var b backup
	if err := json.NewDecoder(r).Decode(&b); err != nil {
		return nil, fmt.Errorf("parsing backup: %w", err)
	}

	tally := make(map[string]int)
	for _, item := range b.Items {
		status := item.Status
		if status == "" {
			status = "Unknown"
		}
		tally[status]++
	}

	counts := make([]statusCount, 0, len(tally))
	for status, n := range tally {
		counts = append(counts, statusCount{Status: status, Count: n})
	}
	sort.Slice(counts, func(i, j int) bool {
		if counts[i].Count != counts[j].Count {
			return counts[i].Count > counts[j].Count
		}
		return counts[i].Status < counts[j].Status
	})

	return counts, nil
}

func run(path string, out io.Writer) error {
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("opening backup: %w", err)
	}
	defer f.Close()

	counts, err := countStatuses(f)
	if err != nil {
		return err
	}

	total := 0
	fmt.Fprintln(out, "Status Breakdown:")
	for _, c := range counts {
		fmt.Fprintf(out, "%s: %d\n", c.Status, c.Count)
		total += c.Count
	}
	fmt.Fprintf(out, "Total items: %d\n", total)

	return nil
}

func main() {
	file := flag.String("file", "", "path to the JSON inventory export (required)")
	flag.Parse()

	if *file == "" {
		fmt.Fprintln(os.Stderr, "Error: -file is required")
		flag.Usage()
		os.Exit(1)
	}

	if err := run(*file, os.Stdout); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
