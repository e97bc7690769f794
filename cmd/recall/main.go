package main

import "github.com/recallkit/recallkit/cmd/recall/cli"

func main() {
	cli.Execute()
}
