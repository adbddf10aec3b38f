// Command emberpack builds a flash image holding a model store from a
// list of model binaries, for use with the host flash backend or for
// flashing to a board.
package main

import (
	"flag"
	"fmt"
	"os"
	"path/filepath"

	"ember/emberos/services/mlcoord"
)

func main() {
	out := flag.String("out", "ember.flash", "Output flash image path.")
	size := flag.Uint("size", 2*1024*1024, "Total flash image size in bytes.")
	block := flag.Uint("block", 4096, "Erase block size in bytes.")
	flag.Parse()

	if flag.NArg() == 0 {
		fmt.Fprintln(os.Stderr, "usage: emberpack [-out img] [-size n] [-block n] model.bin ...")
		os.Exit(2)
	}

	var entries []mlcoord.PackEntry
	for _, path := range flag.Args() {
		data, err := os.ReadFile(path)
		if err != nil {
			fmt.Fprintf(os.Stderr, "emberpack: %v\n", err)
			os.Exit(1)
		}
		name := filepath.Base(path)
		entries = append(entries, mlcoord.PackEntry{Name: name, Data: data})
	}

	store, err := mlcoord.PackStore(entries, uint32(*block))
	if err != nil {
		fmt.Fprintf(os.Stderr, "emberpack: %v\n", err)
		os.Exit(1)
	}
	if uint(len(store)) > *size {
		fmt.Fprintf(os.Stderr, "emberpack: models need %d bytes, image is %d\n", len(store), *size)
		os.Exit(1)
	}

	img := make([]byte, *size)
	for i := range img {
		img[i] = 0xFF
	}
	copy(img, store)

	if err := os.WriteFile(*out, img, 0o644); err != nil {
		fmt.Fprintf(os.Stderr, "emberpack: %v\n", err)
		os.Exit(1)
	}
	fmt.Printf("%s: %d models, %d bytes\n", *out, len(entries), len(img))
}
