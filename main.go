package main

import "github.com/kozaktomas/photo-publisher/cmd"

func main() {
	cmd.Execute()
}
