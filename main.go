package main

import "reqsender/cmd"

func main() {
	cmd.Execute()
}
