package main

import "github.com/NFTX-project/accounting/cmd"

func main() {
	cmd.Execute()
}
