// Command pinagent runs one Pinterest publishing pass.
package main

import "github.com/mesh-intelligence/pinagent/internal/cli"

func main() {
	cli.Execute()
}
