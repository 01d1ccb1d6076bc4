// Copyright 2024 The stm32boot Authors.
// Use of this source code is governed by a GPL license that can be found in the LICENSE file.

// stm32flash is a reference command-line client for the stm32boot
// protocol engine.
package main

import (
	"flag"
	"fmt"
	"os"
	"runtime"

	"github.com/hexstub/stm32boot"
	"github.com/hexstub/stm32boot/transport"
	"github.com/hexstub/stm32boot/transport/transporttest"
)

func main() {
	fmt.Println("stm32flash reference client")
	fmt.Printf("Built with %s on %s (%s)\n\n", runtime.Version(), runtime.GOOS, runtime.GOARCH)

	port := flag.String("port", "/dev/ttyUSB0", "serial device the bootloader is attached to")
	baud := flag.Int("baud", 115200, "baud rate")
	fake := flag.Bool("fake", false, "use an in-memory loopback transport instead of a real port (for smoke-testing this binary)")
	readAddr := flag.String("read", "", "read memory at ADDR:LEN (hex addr, decimal len) into -out")
	writeAddr := flag.String("write", "", "write -in's contents to memory at ADDR (hex)")
	inFile := flag.String("in", "", "raw binary file to read from for -write")
	outFile := flag.String("out", "", "raw binary file to write to for -read")
	crc := flag.Bool("crc", false, "compute and print the CRC of flash")
	eraseAll := flag.Bool("erase", false, "mass-erase flash before any other operation")
	goAddr := flag.String("go", "", "jump to ADDR (hex) after any read/erase/crc")
	flag.Parse()

	var p transport.Port
	var err error
	if *fake {
		p = fakePort()
	} else {
		p, err = transport.OpenSerial(*port, *baud, transport.Byte|transport.CmdInit|transport.Retry)
	}
	if err != nil {
		fmt.Println(err)
		os.Exit(1)
	}
	defer p.Close()

	sess, err := stm32boot.Establish(p, stm32boot.EstablishOptions{
		SendInit: true,
		Diagnostics: func(d stm32boot.Diagnostic) {
			fmt.Fprintf(os.Stderr, "[%s] %s: %s\n", d.Level, d.Op, d.Message)
		},
	})
	if err != nil {
		fmt.Println(err)
		os.Exit(1)
	}

	fmt.Printf("bootloader v%x, device %s (id %#03x)\n", sess.BLVersion, sess.Device.Name, sess.ProductID)

	if *eraseAll {
		if err := sess.EraseAll(); err != nil {
			fmt.Println(err)
			os.Exit(1)
		}
		fmt.Println("flash erased")
	}

	if *crc {
		value, err := sess.ComputeCRC(sess.Device.Flash.Start, sess.Device.Flash.End-sess.Device.Flash.Start)
		if err != nil {
			fmt.Println(err)
			os.Exit(1)
		}
		fmt.Printf("crc: %#08x\n", value)
	}

	if *readAddr != "" {
		var addr uint32
		var length int
		if _, err := fmt.Sscanf(*readAddr, "%x:%d", &addr, &length); err != nil {
			fmt.Println("invalid -read syntax, want ADDR:LEN")
			os.Exit(1)
		}
		if *outFile == "" {
			fmt.Println("-read requires -out to name the file to write")
			os.Exit(1)
		}
		buf := make([]byte, length)
		if err := readChunked(sess, addr, buf); err != nil {
			fmt.Println(err)
			os.Exit(1)
		}
		if err := os.WriteFile(*outFile, buf, 0o644); err != nil {
			fmt.Println(err)
			os.Exit(1)
		}
		fmt.Printf("wrote %d bytes to %s\n", len(buf), *outFile)
	}

	if *writeAddr != "" {
		var addr uint32
		if _, err := fmt.Sscanf(*writeAddr, "%x", &addr); err != nil {
			fmt.Println("invalid -write syntax, want ADDR in hex")
			os.Exit(1)
		}
		if *inFile == "" {
			fmt.Println("-write requires -in to name the file to read")
			os.Exit(1)
		}
		data, err := os.ReadFile(*inFile)
		if err != nil {
			fmt.Println(err)
			os.Exit(1)
		}
		if err := writeChunked(sess, addr, data); err != nil {
			fmt.Println(err)
			os.Exit(1)
		}
		fmt.Printf("wrote %d bytes from %s\n", len(data), *inFile)
	}

	if *goAddr != "" {
		var addr uint32
		if _, err := fmt.Sscanf(*goAddr, "%x", &addr); err != nil {
			fmt.Println("invalid -go syntax, want ADDR in hex")
			os.Exit(1)
		}
		if err := sess.Go(addr); err != nil {
			fmt.Println(err)
			os.Exit(1)
		}
	}
}

// readChunked splits a read across the 256-byte-per-command limit the
// protocol imposes.
func readChunked(sess *stm32boot.Session, addr uint32, buf []byte) error {
	for len(buf) > 0 {
		n := len(buf)
		if n > 256 {
			n = 256
		}
		if err := sess.ReadMemory(addr, buf[:n]); err != nil {
			return err
		}
		addr += uint32(n)
		buf = buf[n:]
	}
	return nil
}

// writeChunked splits a write across the 256-byte-per-command limit the
// protocol imposes.
func writeChunked(sess *stm32boot.Session, addr uint32, data []byte) error {
	for len(data) > 0 {
		n := len(data)
		if n > 256 {
			n = 256
		}
		if err := sess.WriteMemory(addr, data[:n]); err != nil {
			return err
		}
		addr += uint32(n)
		data = data[n:]
	}
	return nil
}

// fakePort returns a Loopback pre-scripted with exactly the S1 scenario's
// establishment trace, so -fake lets this binary be smoke-tested without
// hardware.
func fakePort() transport.Port {
	lb := transporttest.NewLoopback(transport.Byte | transport.GVRExtra | transport.CmdInit | transport.Retry)
	lb.QueueReply(0x79)
	lb.QueueReply(0x79, 0x22, 0x00, 0x00, 0x79)
	lb.QueueReply(0x79, 0x0B, 0x22, 0x00, 0x01, 0x02, 0x11, 0x21, 0x31, 0x43, 0x63, 0x73, 0x82, 0x92, 0x79)
	lb.QueueReply(0x79, 0x01, 0x04, 0x10, 0x79)
	lb.OnWrite(func(written []byte) {
		// Every subsequent command gets an immediate ACK so the demo
		// flows through read/erase/crc/go without hanging.
		if len(written) > 0 {
			lb.QueueReply(0x79)
		}
	})
	return lb
}
