package main

import (
	"github.com/AzielCF/az-speed/cmd"
)

func main() {
	cmd.Execute()
}
