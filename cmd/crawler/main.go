// crawler runs the docs-crawler CLI.
//
// Usage:
//
//	go run ./cmd/crawler --seed-url https://example.com/docs
package main

import (
	cmd "github.com/rohmanhakim/docs-crawler/internal/cli"
)

func main() {
	cmd.Execute()
}
