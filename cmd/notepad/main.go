// Command notepad is the command-line front end of the notes store.
package main

import "github.com/mesh-intelligence/notepad/internal/cli"

func main() {
	cli.Execute()
}
