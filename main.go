package main

import "github.com/mpapenbr/racetiming-analytics/cmd"

func main() {
	cmd.Execute()
}
