package main

import "github.com/mpapenbr/iracelog-stewarding-go/cmd"

func main() {
	cmd.Execute()
}
