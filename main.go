package main

import "github.com/ValentinKolb/stash/cmd"

func main() {
	cmd.Execute()
}
