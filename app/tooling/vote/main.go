// This program is the command line client for a voting node.
package main

import "github.com/ardanlabs/votechain/app/tooling/vote/cmd"

func main() {
	cmd.Execute()
}
