// Command fixtool inspects test fixtures and loads them into test databases.
package main

import (
	"os"

	"testhelper/internal/cli"
)

func main() {
	os.Exit(cli.Execute())
}
