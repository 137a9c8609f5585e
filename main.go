package main

import "github.com/papapumpkin/stripes/cmd"

func main() {
	cmd.Execute()
}
