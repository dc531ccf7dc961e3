// Command slicec-cs generates C# source from Slice definitions.
package main

import (
	"fmt"
	"os"

	"github.com/IvanVnn/icerpc-csharp/internal/cli"
)

func main() {
	cmd := cli.NewRootCommand()
	if err := cmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(cli.GetExitCode(err))
	}
}
