package engine

import (
	"bufio"
	"errors"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
)

// ReadDeps reads a compiler-generated dependency file and returns the headers it lists.
// A missing file yields no headers and no error.
func ReadDeps(path string) ([]string, error) {
	f, err := os.Open(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, nil
		}
		return nil, err
	}
	defer f.Close()
	return ParseDeps(bufio.NewReader(f))
}

// ParseDeps parses a makefile dependency fragment. The first rule (`obj: src hdr...`, possibly
// continued with backslash-newline) is skipped; every remaining path is returned in order.
// `\ ` and `\#` stand for a space and a hash, `$$` for a dollar sign.
// With -MP the remainder is one phony `header:` rule per header.
func ParseDeps(r io.Reader) ([]string, error) {
	br, ok := r.(io.ByteReader)
	if !ok {
		br = bufio.NewReader(r)
	}

	if err := skipRuleHead(br); err != nil {
		if errors.Is(err, io.EOF) {
			return nil, nil
		}
		return nil, err
	}

	var (
		deps []string
		tok  strings.Builder
	)
	flush := func() {
		if tok.Len() > 0 {
			deps = append(deps, tok.String())
			tok.Reset()
		}
	}

	pending := -1 // one byte of lookahead
	next := func() (byte, error) {
		if pending >= 0 {
			c := byte(pending)
			pending = -1
			return c, nil
		}
		return br.ReadByte()
	}

	for {
		c, err := next()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, err
		}

		switch c {
		case '\r':
		case ' ', '\t', '\n':
			flush()
		case '\\':
			n, err := next()
			if err == io.EOF {
				flush()
				return deps, nil
			}
			if err != nil {
				return nil, err
			}
			switch n {
			case '\n', '\r':
				flush() // continuation
			case ' ', '#':
				tok.WriteByte(n)
			default:
				tok.WriteByte('\\')
				pending = int(n)
			}
		case '$':
			n, err := next()
			if err == nil && n == '$' {
				tok.WriteByte('$')
				continue
			}
			tok.WriteByte('$')
			if err == nil {
				pending = int(n)
			}
		case ':':
			n, err := next()
			if err == io.EOF {
				flush()
				return deps, nil
			}
			if err != nil {
				return nil, err
			}
			switch n {
			case ' ', '\t', '\n', '\r':
				flush() // rule separator
			default:
				tok.WriteByte(':')
				pending = int(n)
			}
		default:
			tok.WriteByte(c)
		}
	}
	flush()
	return deps, nil
}

// skipRuleHead consumes the first logical line.
func skipRuleHead(br io.ByteReader) error {
	escaped := false
	for {
		c, err := br.ReadByte()
		if err != nil {
			return err
		}
		switch {
		case c == '\\':
			escaped = !escaped
		case c == '\r' && escaped:
			// \r\n continuation, keep the escape for the \n
		case c == '\n' && !escaped:
			return nil
		default:
			escaped = false
		}
	}
}

// DepReader reads dependency files relative to a root directory.
type DepReader struct {
	Root string
}

func (r DepReader) ReadDeps(path string) ([]string, error) {
	if r.Root != "" && !filepath.IsAbs(path) {
		path = filepath.Join(r.Root, path)
	}
	return ReadDeps(path)
}
