package main

import "github.com/markb/spaauth/cmd"

func main() {
	cmd.Execute()
}
