package main

import "github.com/ValentinKolb/dBlob/cmd"

func main() {
	cmd.Execute()
}
