package app

import "strings"

// connectedMarker is the substring the tunnel CLI prints once a remote
// client has attached to the tunnel.
const connectedMarker = "Connection established"

// userPrefixes open lines carrying the interactive authorization URL the
// operator needs to see.
var userPrefixes = []string{
	"Open this link",
	"To grant access",
}

// lineClass is the surfacing classification of a single stdout line.
type lineClass int

const (
	classDiagnostic lineClass = iota
	classUserVisible
	classConnected
)

// splitLines appends chunk to the buffered remainder and returns the
// complete lines found plus the new remainder. Both "\n" and "\r\n"
// terminate a line; empty lines are dropped.
func splitLines(rem string, chunk []byte) ([]string, string) {
	buf := rem + string(chunk)
	var lines []string
	for {
		i := strings.IndexByte(buf, '\n')
		if i < 0 {
			break
		}
		line := strings.TrimSuffix(buf[:i], "\r")
		buf = buf[i+1:]
		if line != "" {
			lines = append(lines, line)
		}
	}
	return lines, buf
}

// classifyLine maps a stdout line to its surfacing level. Connection
// detection wins over the user-visible prefixes.
func classifyLine(line string) lineClass {
	if strings.Contains(line, connectedMarker) {
		return classConnected
	}
	for _, p := range userPrefixes {
		if strings.HasPrefix(line, p) {
			return classUserVisible
		}
	}
	return classDiagnostic
}
