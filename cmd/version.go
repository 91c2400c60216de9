package cmd

import (
	"fmt"
	"os"
)

// Version information (injected at build time via ldflags).
var (
	Version   = "development"
	BuildTime = "unknown"
	GitCommit = "unknown"
)

// runVersion displays version and key configuration status.
func runVersion() {
	fmt.Printf("nbagent %s\n", Version)
	fmt.Printf("Build Time: %s\n", BuildTime)
	fmt.Printf("Git Commit: %s\n", GitCommit)
	fmt.Println()

	fmt.Println("Provider API keys:")
	printKeyStatus("GEMINI_API_KEY")
	printKeyStatus("OPENAI_API_KEY")
}

// printKeyStatus prints whether an API key is set without revealing it.
func printKeyStatus(name string) {
	key := os.Getenv(name)
	if key == "" {
		fmt.Printf("  %s: not set\n", name)
		return
	}
	if len(key) < 8 {
		fmt.Printf("  %s: configured\n", name)
		return
	}
	fmt.Printf("  %s: %s...%s (configured)\n", name, key[:4], key[len(key)-4:])
}
