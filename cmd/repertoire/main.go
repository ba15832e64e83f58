// Package main provides the repertoire CLI: spreadsheet import into the
// people/pieces graph, search with snapshot fallback, and the HTTP API.
package main

import "github.com/mesh-intelligence/repertoire/internal/cli"

func main() {
	cli.Execute()
}
