package main

import "github.com/audiolibrelab/trackdeck/cmd"

func main() {
	cmd.Execute()
}
