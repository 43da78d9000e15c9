package main

import "github.com/meysamhadeli/verilite/cmd"

func main() {
	cmd.Execute()
}
