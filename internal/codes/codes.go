// Package codes interprets WiX Toolset diagnostics. The tools tag
// their output with stable identifiers (HEATnnnn, CNDLnnnn, LGHTnnnn);
// the well-known ones map to operator hints that are appended to step
// failures.
package codes

import "regexp"

// idPattern matches WiX diagnostic identifiers in captured tool output.
var idPattern = regexp.MustCompile(`\b(HEAT|CNDL|LGHT)\d{4}\b`)

// Hints maps well-known WiX diagnostic identifiers to operator hints.
var Hints = map[string]string{
	"HEAT1057": "heat could not create the output file; check the work directory permissions",
	"HEAT5150": "heat could not inspect a harvested file for self-registration; the file may be in use",
	"HEAT5151": "heat could not inspect a harvested assembly; the file may be corrupt",
	"CNDL0001": "unexpected candle failure",
	"CNDL0103": "a source file passed to candle does not exist",
	"CNDL0104": "input is not a valid WiX source file",
	"CNDL0150": "the authoring references an undefined preprocessor variable",
	"LGHT0001": "unexpected light failure",
	"LGHT0094": "unresolved symbol; check that ComponentGroupRef and Directory ids match the harvest output",
	"LGHT0103": "an object file passed to light does not exist",
	"LGHT0204": "ICE validation rejected the package",
	"LGHT0216": "MSI validation could not run in this environment; it requires a working Windows Installer service",
	"LGHT1076": "ICE validation reported warnings",
}

// IsSuccess reports whether a tool exit status indicates success. The
// WiX tools have no success-with-warnings status: zero is the only
// success.
func IsSuccess(code int) bool {
	return code == 0
}

// Hint returns the operator hint for a diagnostic identifier.
func Hint(id string) string {
	if hint, ok := Hints[id]; ok {
		return hint
	}
	return "unknown diagnostic; see the WiX Toolset documentation"
}

// Scan finds the first WiX diagnostic identifier in captured tool
// output. ok is false when the output carries none.
func Scan(output string) (id, hint string, ok bool) {
	id = idPattern.FindString(output)
	if id == "" {
		return "", "", false
	}
	return id, Hint(id), true
}
