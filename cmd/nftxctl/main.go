package main

import (
	"fmt"
	"os"

	"github.com/kaifufi/nftx-exchange-go/cmd/nftxctl/commands"
)

func main() {
	if err := commands.RootCommand().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}
