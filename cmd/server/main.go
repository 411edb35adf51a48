package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
)

var configDir string

func init() {
	flag.Usage = helpMessage
	flag.StringVar(&configDir, "config", ".", "Directory that contains config.toml")
}

func helpMessage() {
	output := flag.CommandLine.Output()
	fmt.Fprintf(output, "Usage of %s:\n\n", os.Args[0])
	fmt.Fprintln(output, "This runs the socialauth server, which logs users in through their social accounts.")
	fmt.Fprintln(output, "Flags:")
	flag.PrintDefaults()
}

func main() {
	flag.Parse()
	if err := run(context.Background()); err != nil {
		log.Fatal(err)
	}
}
