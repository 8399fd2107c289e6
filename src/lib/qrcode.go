package lib

import (
	"bytes"

	"github.com/yeqown/go-qrcode"
)

// RenderQR encodes content into a QR image and returns the raw bytes.
func RenderQR(content string) ([]byte, error) {
	qrc, err := qrcode.New(content)
	if err != nil {
		return nil, err
	}
	var buf bytes.Buffer
	if err := qrc.SaveTo(&buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
