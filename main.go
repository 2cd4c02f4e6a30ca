package main

import "songplaydw/cmd"

func main() {
	cmd.Execute()
}
