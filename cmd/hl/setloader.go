package main

import (
	"bufio"
	"io"
	"os"
)

// fileSetLoader implements query.SetLoader by reading newline-delimited
// set members from a file or from stdin (spec §4.5: "@file pre-loads the
// set as a hashed set of strings... @- reads stdin before opening
// sources").
type fileSetLoader struct {
	stdin io.Reader
}

func (l *fileSetLoader) LoadFile(path string) (map[string]struct{}, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return readSet(f)
}

func (l *fileSetLoader) LoadStdin() (map[string]struct{}, error) {
	return readSet(l.stdin)
}

func readSet(r io.Reader) (map[string]struct{}, error) {
	set := make(map[string]struct{})
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 64*1024), 4*1024*1024)
	for sc.Scan() {
		line := sc.Text()
		if line == "" {
			continue
		}
		set[line] = struct{}{}
	}
	if err := sc.Err(); err != nil {
		return nil, err
	}
	return set, nil
}
