// Command astrocoords serves and prints Julian Dates, Greenwich Mean
// Sidereal Time and angle conversions.
package main

import (
	"context"
	"fmt"
	"os"
)

func main() {
	if err := newRootCmd().ExecuteContext(context.Background()); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
