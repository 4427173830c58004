package util

import (
	qrcode "github.com/skip2/go-qrcode"
)

// QRText renders content as a terminal QR code made of half-block runes.
func QRText(content string) (string, error) {
	qr, err := qrcode.New(content, qrcode.Medium)
	if err != nil {
		return "", err
	}
	return qr.ToSmallString(false), nil
}

// QRPNG renders content as a PNG image of size x size pixels.
func QRPNG(content string, size int) ([]byte, error) {
	return qrcode.Encode(content, qrcode.Medium, size)
}
