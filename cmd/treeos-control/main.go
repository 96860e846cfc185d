package main

import "github.com/treeos-project/treeos-control/cmd/treeos-control/cmd"

func main() {
	cmd.Execute()
}
