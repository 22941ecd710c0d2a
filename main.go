/*
	Copyright 2023 Markus Papenbrock
*/

package main

import "github.com/mpapenbr/f1-race-engineer/cmd"

func main() {
	cmd.Execute()
}
