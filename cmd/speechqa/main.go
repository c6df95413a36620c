package main

import "speechqa/internal/cli"

func main() {
	cli.Execute()
}
