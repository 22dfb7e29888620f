package main

import "github.com/serayd61/stacks-tx-runner/cmd/txrunner/cmd"

func main() {
	cmd.Execute()
}
