package main

import "github.com/ValentinKolb/dIRC/cmd"

func main() {
	cmd.Execute()
}
