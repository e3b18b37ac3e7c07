package main

import "github.com/lemolatoon/lemola-os/cmd"

func main() {
	cmd.Execute()
}
