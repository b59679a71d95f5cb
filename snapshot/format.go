/*
Copyright © 2024 Acronis International GmbH.

Released under MIT license.
*/

package snapshot

import (
	"errors"
	"strings"
)

const recordDelimiter = ':'

var (
	errNoDelimiter   = errors.New("no key/value delimiter")
	errInvalidEscape = errors.New("invalid escape sequence")
)

var recordEscaper = strings.NewReplacer(`\`, `\\`, `:`, `\:`, "\n", `\n`, "\r", `\r`)

func encodeRecord(sb *strings.Builder, key, value string) {
	_, _ = recordEscaper.WriteString(sb, key)
	sb.WriteByte(recordDelimiter)
	_, _ = recordEscaper.WriteString(sb, value)
	sb.WriteByte('\n')
}

// decodeRecord splits a line at the first unescaped delimiter and unescapes both parts.
func decodeRecord(line string) (key, value string, err error) {
	delimPos := -1
	for i := 0; i < len(line); i++ {
		if line[i] == '\\' {
			i++
			continue
		}
		if line[i] == recordDelimiter {
			delimPos = i
			break
		}
	}
	if delimPos < 0 {
		return "", "", errNoDelimiter
	}
	if key, err = unescape(line[:delimPos]); err != nil {
		return "", "", err
	}
	if value, err = unescape(line[delimPos+1:]); err != nil {
		return "", "", err
	}
	return key, value, nil
}

func unescape(s string) (string, error) {
	if strings.IndexByte(s, '\\') < 0 {
		return s, nil
	}
	var sb strings.Builder
	sb.Grow(len(s))
	for i := 0; i < len(s); i++ {
		if s[i] != '\\' {
			sb.WriteByte(s[i])
			continue
		}
		i++
		if i == len(s) {
			return "", errInvalidEscape
		}
		switch s[i] {
		case '\\', recordDelimiter:
			sb.WriteByte(s[i])
		case 'n':
			sb.WriteByte('\n')
		case 'r':
			sb.WriteByte('\r')
		default:
			return "", errInvalidEscape
		}
	}
	return sb.String(), nil
}
