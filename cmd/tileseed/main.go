package main

import (
	"fmt"
	"os"
)

// Exit codes
const (
	ExitSuccess         = 0
	ExitGeneralError    = 1
	ExitInvalidArgs     = 2
	ExitConfigError     = 3
	ExitStorageError    = 4
	ExitSeedFailed      = 5
	ExitCancelled       = 6
	ExitIntegrityFailed = 7
)

func main() {
	os.Exit(run(os.Args[1:]))
}

func run(args []string) int {
	if len(args) == 0 {
		printUsage()
		return ExitInvalidArgs
	}

	command := args[0]
	cmdArgs := args[1:]

	switch command {
	case "seed":
		return runSeed(cmdArgs)
	case "check":
		return runCheck(cmdArgs)
	case "vacuum":
		return runVacuum(cmdArgs)
	case "export":
		return runExport(cmdArgs)
	case "help", "-h", "--help":
		printUsage()
		return ExitSuccess
	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n", command)
		printUsage()
		return ExitInvalidArgs
	}
}

func printUsage() {
	fmt.Fprintln(os.Stderr, `Usage: tileseed <command> [options]

Commands:
  seed     Download missing tiles for a zoom range into the cache
  check    Report cache statistics and run an integrity check
  vacuum   Evict stale tiles and compact the cache
  export   Upload the cache file to object storage

Run 'tileseed <command> -h' for command-specific help.`)
}
