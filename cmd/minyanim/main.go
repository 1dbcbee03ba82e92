package main

import (
	"fmt"
	"os"

	// distrolessイメージにはタイムゾーンデータがないため埋め込む
	_ "time/tzdata"

	"github.com/hitoshi/minyanim/internal/app"
)

func main() {
	if err := app.Run(os.Stdout, os.Args[1:]); err != nil {
		fmt.Fprintf(os.Stderr, "minyanim: %v\n", err)
		os.Exit(1)
	}
}
