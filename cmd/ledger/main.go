// Command ledger manages the record store behind the waste-management
// console.
package main

import "github.com/mesh-intelligence/wasteledger/internal/cli"

func main() {
	cli.Execute()
}
