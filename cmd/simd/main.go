package main

import (
	"os"

	"equity_sim/cmd/simd/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
