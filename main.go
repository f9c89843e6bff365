package main

import "github.com/jsphweid/singviz/cmd"

func main() {
	cmd.Execute()
}
