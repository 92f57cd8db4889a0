package seeding

import (
	"flag"
	"fmt"
	"io"
)

// Usage prints usage information for the seed tool and its flags.
func Usage(w io.Writer, fs *flag.FlagSet) func() {
	return func() {
		fmt.Fprint(w, `farbklang seed tool

Posts random ratings to a running farbklang server, waits until they are
stored and checks that a random similarity query comes back ordered and
bounded by -k.

Usage:
  seed [options]

Options:
`)
		fs.SetOutput(w)
		fs.PrintDefaults()
		fmt.Fprint(w, `
Environment:
  Variables from a .env file in the working directory are loaded first;
  FARBKLANG_SEED_URL overrides the default -url.

Examples:
  seed -n 200 -workers 8
  seed -url http://localhost:9080 -k 10 -seed 42
`)
	}
}
