package main

import (
	"os"

	"horse.fit/webnovels/internal/app"
)

func main() {
	os.Exit(app.Run(os.Args[1:]))
}
