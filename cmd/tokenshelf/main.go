// Command tokenshelf manages token customizations from the command line.
package main

import "github.com/mesh-intelligence/tokenshelf/internal/cli"

func main() {
	cli.Execute()
}
