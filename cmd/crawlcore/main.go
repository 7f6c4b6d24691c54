// Command crawlcore runs a single polite crawl session from the command
// line.
package main

import (
	cmd "github.com/crawlcore/crawlcore/internal/cli"
)

func main() {
	cmd.Execute()
}
