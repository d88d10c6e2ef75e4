// md2tool is a CLI utility for inspecting MD2 models and action descriptors.
package main

import (
	"fmt"
	"os"
)

func main() {
	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}

	command := os.Args[1]
	args := os.Args[2:]

	var err error
	switch command {
	case "info":
		err = cmdInfo(os.Stdout, args)
	case "frames", "ls":
		err = cmdFrames(os.Stdout, args)
	case "actions":
		err = cmdActions(os.Stdout, args)
	case "check":
		err = cmdCheck(os.Stdout, args)
	case "dump":
		err = cmdDump(os.Stdout, args)
	case "help", "-h", "--help":
		printUsage()
		return
	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n", command)
		printUsage()
		os.Exit(1)
	}

	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func printUsage() {
	fmt.Println(`md2tool - MD2 model and action descriptor utility

Usage:
  md2tool <command> [options]

Commands:
  info <file.md2>                 Show header counts and skins
  frames <file.md2> [pattern]     List frame names (optional glob pattern)
  actions <file.act>              List actions and their frame ranges
  check <file.act>                Load a descriptor, its model and skin, and
                                  build every frame looking for bad indices
  dump [-depth N] <file>          Dump a parsed .md2 or .act with go-spew

Examples:
  md2tool info data/knight.md2
  md2tool frames data/knight.md2 "run*"
  md2tool check data/knight.act
  md2tool dump -depth 3 data/orgo.md2`)
}
