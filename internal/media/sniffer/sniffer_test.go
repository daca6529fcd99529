package sniffer

import (
	"bytes"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func dicomHead() []byte {
	head := make([]byte, 200)
	copy(head[128:], "DICM")
	return head
}

func niftiHead() []byte {
	head := make([]byte, 352)
	head[0] = 0x5c
	head[1] = 0x01
	copy(head[344:], "n+1\x00")
	return head
}

func TestFromFileName(t *testing.T) {
	cases := map[string]Format{
		"scan.dcm":        FormatDICOM,
		"SCAN.DICOM":      FormatDICOM,
		"brain.nii":       FormatNIfTI,
		"brain.NII.GZ":    FormatNIfTIZ,
		"slice.jpg":       FormatJPEG,
		"slice.jpeg":      FormatJPEG,
		"mask.png":        FormatPNG,
		"archive.tar.png": FormatPNG,
	}
	for name, want := range cases {
		got, err := FromFileName(name)
		require.NoError(t, err, name)
		assert.Equal(t, want, got, name)
	}

	for _, name := range []string{"notes.txt", "noext", "archive.gz", "image.gif", ""} {
		_, err := FromFileName(name)
		assert.ErrorIs(t, err, ErrUnsupportedExtension, name)
	}
}

func TestDetectHead(t *testing.T) {
	cases := []struct {
		name string
		head []byte
		want Format
	}{
		{"jpeg", []byte{0xff, 0xd8, 0xff, 0xe0, 0x00}, FormatJPEG},
		{"png", []byte{0x89, 'P', 'N', 'G', '\r', '\n', 0x1a, '\n', 0}, FormatPNG},
		{"gzip", []byte{0x1f, 0x8b, 0x08, 0x00}, FormatNIfTIZ},
		{"dicom", dicomHead(), FormatDICOM},
		{"nifti-1", niftiHead(), FormatNIfTI},
		{"nifti-2", []byte{0x1c, 0x02, 0, 0, 'n', '+', '2', 0}, FormatNIfTI},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got, err := DetectHead(tc.head)
			require.NoError(t, err)
			assert.Equal(t, tc.want, got)
		})
	}

	_, err := DetectHead([]byte("plain text"))
	assert.ErrorIs(t, err, ErrUnknownType)
	_, err = DetectHead(nil)
	assert.ErrorIs(t, err, ErrUnknownType)
}

func TestDetectReadsHead(t *testing.T) {
	data := append(dicomHead(), bytes.Repeat([]byte{1}, 1024)...)
	format, head, err := Detect(bytes.NewReader(data))
	require.NoError(t, err)
	assert.Equal(t, FormatDICOM, format)
	assert.Len(t, head, HeadSize)
}

func TestVerify(t *testing.T) {
	jpeg := []byte{0xff, 0xd8, 0xff, 0xe0}

	assert.NoError(t, Verify(FormatJPEG, jpeg))
	assert.ErrorIs(t, Verify(FormatPNG, jpeg), ErrContentMismatch)
	assert.ErrorIs(t, Verify(FormatNIfTIZ, []byte("not gzip")), ErrContentMismatch)
	assert.NoError(t, Verify(FormatDICOM, []byte("raw dataset without preamble")))
	assert.NoError(t, Verify(FormatNIfTI, []byte("raw")))
	assert.ErrorIs(t, Verify(FormatDICOM, jpeg), ErrContentMismatch)
}

func TestMimeTypeFromHTTP(t *testing.T) {
	h := http.Header{}
	assert.Equal(t, "", MimeTypeFromHTTP(h))
	h.Set("Content-Type", "image/png; charset=binary")
	assert.Equal(t, "image/png", MimeTypeFromHTTP(h))
	assert.Equal(t, "application/dicom", FormatDICOM.MIME())
}
