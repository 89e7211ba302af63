package main

import "github.com/Rikhin/ragversate/cmd"

func main() {
	cmd.Execute()
}
