package main

import "github.com/rustyeddy/execfeed/internal/cli"

func main() {
	cli.Execute()
}
