package utils

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
)

// PromptDates asks for whichever of start and end is empty, reading one line
// per answer from in.
func PromptDates(in io.Reader, out io.Writer, start, end string) (string, string, error) {
	reader := bufio.NewReader(in)

	var err error
	if start == "" {
		if start, err = prompt(reader, out, "Enter start date (DD-MM-YYYY): "); err != nil {
			return "", "", fmt.Errorf("reading start date: %w", err)
		}
	}
	if end == "" {
		if end, err = prompt(reader, out, "Enter end date (DD-MM-YYYY): "); err != nil {
			return "", "", fmt.Errorf("reading end date: %w", err)
		}
	}
	return start, end, nil
}

func prompt(reader *bufio.Reader, out io.Writer, label string) (string, error) {
	fmt.Fprint(out, label)
	line, err := reader.ReadString('\n')
	if err != nil && !(errors.Is(err, io.EOF) && line != "") {
		return "", err
	}
	return strings.TrimSpace(line), nil
}

// EnsureParentDir creates the directory that will hold path.
func EnsureParentDir(path string) error {
	dir := filepath.Dir(path)
	if dir == "." {
		return nil
	}
	return os.MkdirAll(dir, 0755)
}
