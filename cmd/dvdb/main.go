// Command dvdb compiles vocabulary declarations, runs editing scenarios
// and reads back change journals.
package main

import (
	"fmt"
	"os"

	"github.com/databrary/datavyu-ffmpegplugin-sub001/internal/cli"
)

func main() {
	if err := cli.NewRootCommand().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(cli.GetExitCode(err))
	}
}
