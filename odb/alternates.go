package odb

import (
	"bufio"
	"bytes"
	"strconv"
	"strings"

	. "github.com/warpfork/go-errcat"

	"go.polydawn.net/scry"
	"go.polydawn.net/scry/fs"
)

const alternatesFile = "info/alternates"

/*
	Parse the body of an `objects/info/alternates` file.

	One objects dir per line.  Blank lines and lines starting with `#`
	are skipped.  Lines starting with a double quote are C-style quoted.
	Relative paths are relative to objectsDir (the dir holding the file).

	Errors are of category `scry.ErrAlternateInvalid`.
*/
func ParseAlternates(body []byte, objectsDir fs.AbsolutePath) ([]fs.AbsolutePath, error) {
	var result []fs.AbsolutePath
	scanner := bufio.NewScanner(bytes.NewReader(body))
	for lineNum := 1; scanner.Scan(); lineNum++ {
		line := strings.TrimRight(scanner.Text(), "\r")
		if line == "" || line[0] == '#' {
			continue
		}
		if line[0] == '"' {
			unquoted, err := strconv.Unquote(line)
			if err != nil {
				return nil, alternateInvalid(objectsDir, lineNum, "bad quoting")
			}
			line = unquoted
		}
		dir, ok := fs.Absolutize(line, objectsDir)
		if !ok {
			return nil, alternateInvalid(objectsDir, lineNum, "path climbs above the filesystem root")
		}
		result = append(result, dir)
	}
	if err := scanner.Err(); err != nil {
		return nil, alternateInvalid(objectsDir, 0, err.Error())
	}
	return result, nil
}

func alternateInvalid(objectsDir fs.AbsolutePath, lineNum int, reason string) error {
	return ErrorDetailed(scry.ErrAlternateInvalid,
		"invalid alternates entry: "+reason,
		map[string]string{
			"path": objectsDir.Join(fs.MustRelPath(alternatesFile)).String(),
			"line": strconv.Itoa(lineNum),
		})
}
