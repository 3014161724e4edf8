package glucoplate

import (
	"fmt"
	"io"
	"os"
	"runtime"

	"github.com/davecgh/go-spew/spew"
)

// dumpConfig keeps debug output stable between runs so two dumps of the same
// analysis can be diffed.
var dumpConfig = spew.ConfigState{
	Indent:                  "  ",
	SortKeys:                true,
	DisablePointerAddresses: true,
	DisableCapacities:       true,
	MaxDepth:                8,
}

// Dump writes v to stderr, prefixed with the caller's file and line.
func Dump(v ...any) {
	fdump(os.Stderr, 2, v...)
}

// Sdump is Dump into a string.
func Sdump(v ...any) string {
	_, file, line, _ := runtime.Caller(1)
	return dumpConfig.Sdump(append([]any{fmt.Sprintf("%s:%d:", file, line)}, v...)...)
}

func fdump(w io.Writer, skip int, v ...any) {
	_, file, line, _ := runtime.Caller(skip)
	dumpConfig.Fdump(w, append([]any{fmt.Sprintf("%s:%d:", file, line)}, v...)...)
}
