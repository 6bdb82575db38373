package main

import "github.com/bouyassine11/AnalytIQ/cmd"

func main() {
	cmd.Execute()
}
