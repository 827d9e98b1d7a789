package main

import "github.com/emerjence/billctl/pkg/cli"

func main() {
	cli.Execute()
}
