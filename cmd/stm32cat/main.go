// Copyright 2024 The stm32boot Authors.
// Use of this source code is governed by a GPL license that can be found in the LICENSE file.

// Device catalog to YAML format converter.
package main

import (
	"flag"
	"fmt"
	"os"

	"github.com/hexstub/stm32boot/catalog"
)

func main() {
	out := flag.String("out", "", "write YAML to this path instead of stdout")
	id := flag.Int("id", -1, "print only the entry with this product id (decimal) instead of the whole table")
	flag.Parse()

	table := catalog.Table
	if *id >= 0 {
		dev, ok := catalog.Lookup(uint16(*id))
		if !ok {
			fmt.Fprintf(os.Stderr, "no device with id %#03x\n", *id)
			os.Exit(1)
		}
		table = []catalog.Device{dev}
	}

	w := os.Stdout
	if *out != "" {
		f, err := os.Create(*out)
		if err != nil {
			fmt.Fprintln(os.Stderr, err)
			os.Exit(1)
		}
		defer f.Close()
		w = f
	}

	if err := catalog.Export(w, table); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
