package check

import (
	"path/filepath"
	"runtime"
	"strings"

	"github.com/ethereum-optimism/infra/op-harness/types"
)

const packagePrefix = "github.com/ethereum-optimism/infra/op-harness/check."

// callerLocation returns the first stack frame outside this package.
func callerLocation() types.SourceLocation {
	pcs := make([]uintptr, 16)
	n := runtime.Callers(2, pcs)
	frames := runtime.CallersFrames(pcs[:n])
	for {
		frame, more := frames.Next()
		if !strings.HasPrefix(frame.Function, packagePrefix) || strings.HasSuffix(frame.File, "_test.go") {
			return types.SourceLocation{
				File:     filepath.Base(frame.File),
				Line:     frame.Line,
				Function: frame.Function,
			}
		}
		if !more {
			return types.SourceLocation{}
		}
	}
}

// Here captures the location of its caller.
func Here() types.SourceLocation {
	return Caller(1)
}

// Caller captures the location skip frames above its caller, so Caller(0)
// is the function calling Caller. Registration helpers use it to fill
// TestDescriptor.Location with the declaring line.
func Caller(skip int) types.SourceLocation {
	pc, file, line, ok := runtime.Caller(skip + 1)
	if !ok {
		return types.SourceLocation{}
	}
	loc := types.SourceLocation{File: filepath.Base(file), Line: line}
	if fn := runtime.FuncForPC(pc); fn != nil {
		loc.Function = fn.Name()
	}
	return loc
}
