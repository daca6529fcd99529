// Package sniffer identifies uploaded scans by extension and magic bytes.
package sniffer

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
)

type Format string

const (
	FormatDICOM  Format = "dcm"
	FormatNIfTI  Format = "nii"
	FormatNIfTIZ Format = "nii.gz"
	FormatJPEG   Format = "jpeg"
	FormatPNG    Format = "png"
)

var (
	ErrUnsupportedExtension = errors.New("unsupported file extension")
	ErrUnknownType          = errors.New("unknown media type")
	ErrContentMismatch      = errors.New("content does not match extension")
)

// HeadSize is enough to cover the DICOM preamble and the NIfTI-1 header.
const HeadSize = 512

var mimeTypes = map[Format]string{
	FormatDICOM:  "application/dicom",
	FormatNIfTI:  "application/octet-stream",
	FormatNIfTIZ: "application/gzip",
	FormatJPEG:   "image/jpeg",
	FormatPNG:    "image/png",
}

func (f Format) MIME() string {
	return mimeTypes[f]
}

// FromFileName maps a file name to its scan format. The check is case
// insensitive and knows the double extension nii.gz.
func FromFileName(name string) (Format, error) {
	lower := strings.ToLower(name)
	if strings.HasSuffix(lower, ".nii.gz") {
		return FormatNIfTIZ, nil
	}

	idx := strings.LastIndex(lower, ".")
	if idx < 0 {
		return "", ErrUnsupportedExtension
	}
	switch lower[idx+1:] {
	case "dcm", "dicom":
		return FormatDICOM, nil
	case "nii":
		return FormatNIfTI, nil
	case "jpg", "jpeg":
		return FormatJPEG, nil
	case "png":
		return FormatPNG, nil
	}
	return "", ErrUnsupportedExtension
}

func Detect(r io.Reader) (Format, []byte, error) {
	head := make([]byte, HeadSize)
	n, err := io.ReadFull(r, head)
	if err != nil && !errors.Is(err, io.ErrUnexpectedEOF) && !errors.Is(err, io.EOF) {
		return "", nil, err
	}
	head = head[:n]

	format, err := DetectHead(head)
	return format, head, err
}

func DetectHead(head []byte) (Format, error) {
	switch {
	case isJPEG(head):
		return FormatJPEG, nil
	case isPNG(head):
		return FormatPNG, nil
	case isGzip(head):
		return FormatNIfTIZ, nil
	case isDICOM(head):
		return FormatDICOM, nil
	case isNIfTI(head):
		return FormatNIfTI, nil
	}
	return "", ErrUnknownType
}

// Verify checks head against the format claimed by the file name. DICOM
// files without a preamble and raw NIfTI volumes have no reliable magic, so
// for those an unrecognized head is accepted.
func Verify(claimed Format, head []byte) error {
	detected, err := DetectHead(head)
	if err != nil {
		if claimed == FormatDICOM || claimed == FormatNIfTI {
			return nil
		}
		return fmt.Errorf("%w: expected %s", ErrContentMismatch, claimed)
	}
	if detected != claimed {
		return fmt.Errorf("%w: expected %s, found %s", ErrContentMismatch, claimed, detected)
	}
	return nil
}

func isJPEG(head []byte) bool {
	return len(head) > 3 &&
		head[0] == 0xff &&
		head[1] == 0xd8 &&
		head[2] == 0xff
}

func isPNG(head []byte) bool {
	pngMagic := []byte{0x89, 'P', 'N', 'G', '\r', '\n', 0x1a, '\n'}
	return len(head) >= len(pngMagic) && bytes.Equal(head[:len(pngMagic)], pngMagic)
}

func isGzip(head []byte) bool {
	return len(head) >= 2 && head[0] == 0x1f && head[1] == 0x8b
}

// DICOM part 10: 128 byte preamble followed by "DICM".
func isDICOM(head []byte) bool {
	return len(head) >= 132 && bytes.Equal(head[128:132], []byte("DICM"))
}

func isNIfTI(head []byte) bool {
	if len(head) >= 348 {
		magic := head[344:348]
		if bytes.Equal(magic, []byte("n+1\x00")) || bytes.Equal(magic, []byte("ni1\x00")) {
			return true
		}
	}
	if len(head) >= 8 {
		magic := head[4:8]
		return bytes.Equal(magic, []byte("n+2\x00")) || bytes.Equal(magic, []byte("ni2\x00"))
	}
	return false
}

func MimeTypeFromHTTP(header http.Header) string {
	contentType := header.Get("Content-Type")
	if contentType == "" {
		return ""
	}
	if idx := strings.Index(contentType, ";"); idx >= 0 {
		return strings.TrimSpace(contentType[:idx])
	}
	return strings.TrimSpace(contentType)
}
