package main

import (
	"os"

	"github.com/danielNg25/solana-anchor-uniswapv2-like-amm/cmd/amm/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
