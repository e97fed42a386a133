package fetch

import (
	"bufio"
	"io"
	"strings"

	"golang.org/x/text/encoding/charmap"
	"golang.org/x/text/transform"

	"github.com/hakim/headerstat/internal/models"
)

// BuildRequest returns the HEAD request for t, encoded as ISO-8859-1.
func BuildRequest(t models.Target) ([]byte, error) {
	host := t.Host
	if strings.Contains(host, ":") {
		host = "[" + host + "]"
	}
	path := t.Path
	if path == "" {
		path = "/"
	}

	req := "HEAD " + path + " HTTP/1.0\r\n" +
		"Host: " + host + "\r\n" +
		"\r\n"

	encoded, err := charmap.ISO8859_1.NewEncoder().String(req)
	if err != nil {
		return nil, err
	}
	return []byte(encoded), nil
}

// ReadHeaders reads header lines from r until a blank line or end of stream.
//
// Bytes are decoded as ISO-8859-1 so arbitrary header bytes survive. Each line
// is split on its first colon into a trimmed name and value; a line without a
// colon is stored with an empty value. Repeated names keep the last value.
// Nothing past the blank line is interpreted.
//
// When maxBytes > 0 and the header section is not terminated within that many
// bytes, ErrHeaderTooLarge is returned. When skipStatusLine is set a first
// line starting with "HTTP/" is dropped instead of being stored.
func ReadHeaders(r io.Reader, maxBytes int64, skipStatusLine bool) (*models.HeaderMap, error) {
	var limited *io.LimitedReader
	if maxBytes > 0 {
		limited = &io.LimitedReader{R: r, N: maxBytes}
		r = limited
	}
	br := bufio.NewReader(transform.NewReader(r, charmap.ISO8859_1.NewDecoder()))

	headers := models.NewHeaderMap()
	first := true

	for {
		line, err := br.ReadString('\n')
		if len(line) > 0 {
			trimmed := strings.TrimRight(line, " \t\r\n")
			if trimmed == "" {
				return headers, nil
			}
			statusLine := first && skipStatusLine && strings.HasPrefix(trimmed, "HTTP/")
			first = false
			if !statusLine {
				storeLine(headers, trimmed)
			}
		}

		if err == io.EOF {
			if limited != nil && limited.N <= 0 {
				return nil, ErrHeaderTooLarge
			}
			return headers, nil
		}
		if err != nil {
			return nil, err
		}
	}
}

func storeLine(headers *models.HeaderMap, line string) {
	name, value, found := strings.Cut(line, ":")
	name = strings.TrimSpace(name)
	if !found {
		headers.Set(name, "")
		return
	}
	headers.Set(name, strings.TrimSpace(value))
}
