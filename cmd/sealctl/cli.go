package main

import (
	"fmt"
	"os"
	"path/filepath"
)

func run(args []string) int {
	if len(args) < 2 {
		usage(args)
		return 1
	}

	switch args[1] {
	case "seal":
		return runSeal(args[2:])
	case "verify":
		return runVerify(args[2:])
	case "proof":
		return runProof(args[2:])
	case "delete":
		return runDelete(args[2:])
	case "fingerprint":
		return runFingerprint(args[2:])
	}

	usage(args)
	return 1
}

func usage(args []string) {
	name := "sealctl"
	if len(args) > 0 && args[0] != "" {
		name = filepath.Base(args[0])
	}
	fmt.Fprintf(os.Stderr, "usage:\n")
	fmt.Fprintf(os.Stderr, "  %s seal --server <url> --in <file> [--content-type <type>] [--actor <id>]\n", name)
	fmt.Fprintf(os.Stderr, "  %s verify --server <url> --id <artifact-id> [--in <file>]\n", name)
	fmt.Fprintf(os.Stderr, "  %s proof --server <url> --id <artifact-id>\n", name)
	fmt.Fprintf(os.Stderr, "  %s delete --server <url> --id <artifact-id> [--reason <text>] [--actor <id>]\n", name)
	fmt.Fprintf(os.Stderr, "  %s fingerprint --in <file>\n", name)
}
