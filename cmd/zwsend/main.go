// zwsend delivers command-class commands to Z-Wave nodes through a serial
// controller and prints the replies.
//
// Usage:
//
//	zwsend [--config zwave.hcl] [--port /dev/ttyACM0] <command> [args]
//
// Commands:
//
//	basic-set <node> <value>         Set a node's basic value
//	basic-get <node>                 Read a node's basic value
//	association-get <node> <group>   List an association group
//	ping <node>                      Send a NoOperation and report the status
//	monitor                          Print unsolicited messages until interrupted
//	config                           Print the effective configuration
//
// With --simulate the commands run against an in-memory controller instead
// of a serial device.
package main

import (
	"fmt"
	"os"
)

func main() {
	if err := Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "zwsend: %v\n", err)
		os.Exit(1)
	}
}
