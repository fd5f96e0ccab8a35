// Command coachlink はコーチングアプリのAPIサーバー・ワーカー・マイグレーションを起動する。
//
//	coachlink [serve|worker|migrate|healthcheck]
package main

import (
	"fmt"
	"os"

	"github.com/hitoshi/coachlink/internal/app"
)

func main() {
	if err := app.Run(os.Stdout, os.Args[1:]); err != nil {
		fmt.Fprintf(os.Stderr, "coachlink: %v\n", err)
		os.Exit(1)
	}
}
