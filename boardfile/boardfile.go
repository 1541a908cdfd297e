// Package boardfile lexes and parses the on-disk board file format (spec
// §6): a dimension header followed by row-major cell contents, one per
// line, blank lines ignored.
package boardfile

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"scramble-server/boarderrors"
)

// Parsed is the decoded contents of a board file, ready to hand to
// board.New.
type Parsed struct {
	Rows, Cols int
	Contents   []string
}

// Load reads and parses the board file at path.
func Load(path string) (*Parsed, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, boarderrors.NewBoardFileError(boarderrors.CategoryMissingFile, err.Error())
	}
	defer f.Close()
	return Parse(f)
}

// Parse decodes the board file format from r. Leading/trailing whitespace
// on each line is stripped and blank lines are skipped before the
// dimension header and before each content line.
func Parse(r io.Reader) (*Parsed, error) {
	scanner := bufio.NewScanner(r)
	nonBlank := nonBlankLineReader(scanner)

	header, ok := nonBlank()
	if !ok {
		return nil, boarderrors.NewBoardFileError(boarderrors.CategoryMalformedDimensions, "file has no dimension line")
	}
	rows, cols, err := parseDimensions(header)
	if err != nil {
		return nil, err
	}

	want := rows * cols
	contents := make([]string, 0, want)
	for len(contents) < want {
		line, ok := nonBlank()
		if !ok {
			return nil, boarderrors.NewBoardFileError(boarderrors.CategoryWrongCardCount,
				fmt.Sprintf("expected %d cells for a %dx%d board, found %d", want, rows, cols, len(contents)))
		}
		if strings.ContainsAny(line, " \t") {
			return nil, boarderrors.NewBoardFileError(boarderrors.CategoryIllegalContent,
				fmt.Sprintf("cell content %q contains whitespace", line))
		}
		contents = append(contents, line)
	}

	// Any further non-blank line is one cell too many.
	if _, ok := nonBlank(); ok {
		return nil, boarderrors.NewBoardFileError(boarderrors.CategoryWrongCardCount,
			fmt.Sprintf("expected exactly %d cells for a %dx%d board, found more", want, rows, cols))
	}
	if err := scanner.Err(); err != nil {
		return nil, boarderrors.NewBoardFileError(boarderrors.CategoryMissingFile, err.Error())
	}

	return &Parsed{Rows: rows, Cols: cols, Contents: contents}, nil
}

// nonBlankLineReader returns a closure yielding the next trimmed non-blank
// line from scanner, or ok=false at EOF. Trimming handles both LF and CRLF
// sources since bufio.Scanner's default split already strips the
// terminator; TrimSpace additionally strips a stray trailing '\r' plus any
// leading/trailing spaces.
func nonBlankLineReader(scanner *bufio.Scanner) func() (string, bool) {
	return func() (string, bool) {
		for scanner.Scan() {
			line := strings.TrimSpace(scanner.Text())
			if line != "" {
				return line, true
			}
		}
		return "", false
	}
}

// parseDimensions parses a header of the form "R" "x" "C".
func parseDimensions(header string) (rows, cols int, err error) {
	parts := strings.SplitN(header, "x", 2)
	if len(parts) != 2 {
		return 0, 0, boarderrors.NewBoardFileError(boarderrors.CategoryMalformedDimensions,
			fmt.Sprintf("dimension line %q is not of the form RxC", header))
	}
	rows, err = strconv.Atoi(strings.TrimSpace(parts[0]))
	if err != nil || rows < 1 {
		return 0, 0, boarderrors.NewBoardFileError(boarderrors.CategoryMalformedDimensions,
			fmt.Sprintf("row count %q is not a positive integer", parts[0]))
	}
	cols, err = strconv.Atoi(strings.TrimSpace(parts[1]))
	if err != nil || cols < 1 {
		return 0, 0, boarderrors.NewBoardFileError(boarderrors.CategoryMalformedDimensions,
			fmt.Sprintf("column count %q is not a positive integer", parts[1]))
	}
	return rows, cols, nil
}
