// SPDX-License-Identifier: MPL-2.0

package main

import cmd "github.com/pmake/pmake/cmd/pmake"

func main() {
	cmd.Execute()
}
