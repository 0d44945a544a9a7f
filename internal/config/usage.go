package config

import (
	"fmt"
	"io"
)

// Usage writes the list of recognized keywords and their defaults.
func Usage(w io.Writer) {
	lines := []string{
		"List of keywords for sddsbeam",
		"&sddsbeam",
		" string file = <empty>",
		" double charge = 0",
		" double slicewidth = 0.01",
		" bool output = false",
		" bool center = false",
		" double gamma0 = gammaref",
		" double x0 = 0",
		" double y0 = 0",
		" double px0 = 0",
		" double py0 = 0",
		" bool match = false",
		" double betax = 15 / matched",
		" double alphax = 0 / matched",
		" double betay = 15 / matched",
		" double alphay = 0 / matched",
		" double match_start = 0",
		" double match_end = 1",
		" int align = 0",
		" double align_start = 0",
		" double align_end = 1",
		"&end",
	}
	for _, l := range lines {
		fmt.Fprintln(w, l)
	}
	fmt.Fprintln(w)
}
