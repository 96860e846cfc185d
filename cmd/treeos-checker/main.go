package main

import "github.com/treeos-project/treeos-control/cmd/treeos-checker/cmd"

func main() {
	cmd.Execute()
}
