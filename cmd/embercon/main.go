// Command embercon attaches the local terminal to a board running Ember
// over its UART console: a raw byte bridge in both directions.
package main

import (
	"flag"
	"fmt"
	"io"
	"os"

	"github.com/tarm/serial"
)

func main() {
	device := flag.String("dev", "/dev/ttyACM0", "Serial device of the board.")
	baud := flag.Int("baud", 115200, "Baud rate.")
	flag.Parse()

	port, err := serial.OpenPort(&serial.Config{Name: *device, Baud: *baud})
	if err != nil {
		fmt.Fprintf(os.Stderr, "embercon: open %s: %v\n", *device, err)
		os.Exit(1)
	}
	defer port.Close()

	fmt.Fprintf(os.Stderr, "embercon: connected to %s @ %d (Ctrl-C to exit)\n", *device, *baud)

	errCh := make(chan error, 2)
	go func() {
		_, err := io.Copy(os.Stdout, port)
		errCh <- err
	}()
	go func() {
		_, err := io.Copy(port, os.Stdin)
		errCh <- err
	}()

	if err := <-errCh; err != nil && err != io.EOF {
		fmt.Fprintf(os.Stderr, "embercon: %v\n", err)
		os.Exit(1)
	}
}
