package main

import (
	"github.com/metal-toolbox/powerctl/cmd"
)

func main() {
	cmd.Execute()
}
