// Command owlseer is a terminal driver for the OwlSeer content advisor.
//
//	owlseer chat "Give me hooks for a tea unboxing video"
//	owlseer stream --conversation 5f0c... "Now turn the best one into a script"
//	owlseer tools
//	owlseer quota
//
// Settings are read from --config and OWLSEER_ environment variables; a .env
// file in the working directory is loaded first.
package main

import (
	"fmt"
	"os"

	_ "github.com/joho/godotenv/autoload"
)

func main() {
	root := newRootCommand()
	if err := root.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		if hint := hintFor(err); hint != "" {
			fmt.Fprintln(os.Stderr, hint)
		}
		os.Exit(1)
	}
}
