package main

import "github.com/wkalt/colq/cli/cmd"

func main() {
	cmd.Execute()
}
