// Command sysid prints the resolved system identity for this machine, the
// value that binds vault ciphertext to the host. Exits non-zero on an
// unsupported platform.
package main

import (
	"fmt"
	"os"

	"github.com/bdds-tools/connvault/internal/adapter/driven/hostid"
)

func main() {
	os.Exit(run())
}

func run() int {
	id, err := hostid.New().SystemID()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 1
	}
	fmt.Println(id)
	return 0
}
