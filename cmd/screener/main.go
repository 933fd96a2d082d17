package main

import "github.com/erictidmore/stock-screener/internal/cli"

func main() {
	cli.Execute()
}
