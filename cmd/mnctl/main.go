package main

import "github.com/odyssey-erp/mnledger/cmd/mnctl/cli"

func main() {
	cli.Execute()
}
