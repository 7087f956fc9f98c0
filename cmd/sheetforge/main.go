package main

import "sheetforge/internal/cli"

func main() {
	cli.Execute()
}
