package main

import (
	"github.com/nac-codes/blockbard/app/tooling/storyctl/cmd"
)

func main() {
	cmd.Execute()
}
