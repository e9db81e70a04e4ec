package main

import "sagitta/cmd"

func main() {
	cmd.Execute()
}
