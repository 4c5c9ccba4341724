package main

import (
	"fmt"
	"os"
	_ "time/tzdata" // BROADCAST_TZ をタイムゾーンデータのないイメージでも解決する

	"github.com/hitoshi/newscast/internal/app"
)

func main() {
	if err := app.Run(os.Stdout, os.Args[1:]); err != nil {
		fmt.Fprintf(os.Stderr, "newscast: %v\n", err)
		os.Exit(1)
	}
}
