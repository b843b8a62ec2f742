package main

import "github.com/chrissteinbach/geotiles/cmd/geotiles/cmd"

func main() {
	cmd.Execute()
}
