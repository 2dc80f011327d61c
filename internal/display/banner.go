package display

import (
	"fmt"
	"io"

	"github.com/backmassage/texmaster/internal/term"
)

// PrintBanner prints the ASCII art banner; uses Magenta if colors are enabled.
func PrintBanner(w io.Writer) {
	if term.Magenta != "" {
		fmt.Fprint(w, term.Magenta)
	}
	fmt.Fprint(w, ` _                                _
| |_ _____  ___ __ ___   __ _ ___| |_ ___ _ __
| __/ _ \ \/ / '_ `+"`"+` _ \ / _`+"`"+` / __| __/ _ \ '__|
| ||  __/>  <| | | | | | (_| \__ \ ||  __/ |
 \__\___/_/\_\_| |_| |_|\__,_|___/\__\___|_|
`)
	if term.Magenta != "" {
		fmt.Fprintln(w, term.NC)
	}
}
