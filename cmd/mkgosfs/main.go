// Command mkgosfs formats a disk image file as a fresh GOSFS volume,
// without needing a running gosfsd instance.
package main

import (
	"flag"
	"fmt"
	"os"

	"github.com/fatih/color"
	"github.com/gosfs/server/internal/gosfs/vfs"
)

func main() {
	devicePath := flag.String("device", "", "path to the disk image to format (created if missing)")
	numBlocks := flag.Int64("blocks", 4096, "number of filesystem blocks to format")
	flag.Parse()

	if *devicePath == "" {
		fmt.Fprintln(os.Stderr, color.RedString("mkgosfs: -device is required"))
		os.Exit(2)
	}

	fmt.Printf("formatting %s with %d blocks...\n", *devicePath, *numBlocks)

	if err := vfs.Format(*devicePath, *numBlocks); err != nil {
		fmt.Fprintln(os.Stderr, color.RedString("mkgosfs: format failed: %v", err))
		os.Exit(1)
	}

	fmt.Println(color.GreenString("mkgosfs: %s formatted successfully", *devicePath))
}
