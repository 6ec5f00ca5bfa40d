package main

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"
)

// version is set at build time via ldflags.
var version = "dev"

type command struct {
	name  string
	usage string
	run   func(args []string) error
}

var commands = []command{
	{"serve", "serve [--config file]", runServe},
	{"login", "login <email>", runLogin},
	{"register", "register <name> <email>", runRegister},
	{"logout", "logout", runLogout},
	{"whoami", "whoami", runWhoami},
	{"blogs", "blogs [--q text] [--category name]", runBlogs},
	{"saved", "saved", runSaved},
	{"save", "save <blog-id>", runSave},
	{"publish", "publish --title t --description d --category c [--image file] <post.md>", runPublish},
	{"export", "export [-o saved.xlsx]", runExport},
}

func main() {
	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}

	// A missing .env file is fine; the environment may be set otherwise.
	_ = godotenv.Load()

	switch os.Args[1] {
	case "version":
		fmt.Printf("retreat %s\n", version)
		return
	case "help", "-h", "--help":
		printUsage()
		return
	}

	for _, cmd := range commands {
		if cmd.name != os.Args[1] {
			continue
		}
		if err := cmd.run(os.Args[2:]); err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
		return
	}
	fmt.Fprintf(os.Stderr, "Unknown command: %s\n\n", os.Args[1])
	printUsage()
	os.Exit(1)
}

func printUsage() {
	fmt.Println(`retreat - A blog platform frontend built with Go, Echo, templ and datastar

Usage:
  retreat <command> [arguments]

Commands:`)
	for _, cmd := range commands {
		fmt.Printf("  %s\n", cmd.usage)
	}
	fmt.Println(`  version
  help

Every command except serve accepts --profile to keep several signed-in
accounts side by side, and --config to read a YAML config file.

Examples:
  retreat serve
  retreat login a@b.com
  retreat blogs --category Travel`)
}
