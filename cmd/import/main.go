// Command import converts a material-list text table into an items
// file the server can load.
//
// The input is the pipe-delimited table produced by schematic tools:
//
//	| Item | Total | Missing | Available |
//	| Oak Planks | 64 | 52 | 12 |
//
// Total becomes the target and Available the gathered count. Claims
// start empty.
package main

import (
	"bufio"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"strconv"
	"strings"

	"tally/internal/store"
)

func main() {
	var (
		in  = flag.String("in", "", "material list table (default stdin)")
		out = flag.String("out", "items.json", "output items file")
	)
	flag.Parse()

	var reader io.Reader = os.Stdin
	if *in != "" {
		file, err := os.Open(*in)
		if err != nil {
			log.Fatalf("open input: %v", err)
		}
		defer file.Close()
		reader = file
	}

	items, err := parseTable(reader)
	if err != nil {
		log.Fatalf("parse table: %v", err)
	}
	if len(items) == 0 {
		log.Fatal("no items found in input")
	}

	data, err := json.MarshalIndent(items, "", "  ")
	if err != nil {
		log.Fatalf("encode items: %v", err)
	}
	if err := os.WriteFile(*out, data, 0o644); err != nil {
		log.Fatalf("write %s: %v", *out, err)
	}
	log.Printf("wrote %d items to %s", len(items), *out)
}

// parseTable reads pipe-delimited rows, skipping headers, separators,
// and anything that is not a data row.
func parseTable(r io.Reader) (store.Snapshot, error) {
	var items store.Snapshot
	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if !strings.HasPrefix(line, "|") {
			continue
		}

		cells := splitRow(line)
		if len(cells) < 4 {
			continue
		}
		name := cells[0]
		if name == "" || strings.EqualFold(name, "Item") || isSeparator(name) {
			continue
		}

		total, err := strconv.Atoi(cells[1])
		if err != nil {
			continue
		}
		available, err := strconv.Atoi(cells[3])
		if err != nil {
			continue
		}
		if available > total {
			available = total
		}
		if available < 0 {
			available = 0
		}

		items = append(items, store.Item{
			Name:     name,
			Target:   total,
			Gathered: available,
		})
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("read input: %w", err)
	}
	return items, nil
}

func splitRow(line string) []string {
	parts := strings.Split(strings.Trim(line, "|"), "|")
	cells := make([]string, len(parts))
	for i, p := range parts {
		cells[i] = strings.TrimSpace(p)
	}
	return cells
}

func isSeparator(cell string) bool {
	return strings.Trim(cell, "-+: ") == ""
}
