package model

import (
	"errors"
	"strings"
	"unicode"
)

// qrSeparator splits customer and vendor ids inside a QR payload.
const qrSeparator = ":"

// maxQRIDLength bounds each id inside a payload.
const maxQRIDLength = 64

// ErrInvalidQRPayload indicates a scanned code could not be decoded.
var ErrInvalidQRPayload = errors.New("invalid QR payload")

// QRPayload is the text encoded in a customer's QR code: "<customerID>:<vendorID>".
type QRPayload struct {
	CustomerID string
	VendorID   string
}

// String encodes the payload.
func (p QRPayload) String() string {
	return p.CustomerID + qrSeparator + p.VendorID
}

// ParseQRPayload decodes a scanned payload.
func ParseQRPayload(raw string) (QRPayload, error) {
	parts := strings.Split(strings.TrimSpace(raw), qrSeparator)
	if len(parts) != 2 {
		return QRPayload{}, ErrInvalidQRPayload
	}
	for _, part := range parts {
		if !validQRID(part) {
			return QRPayload{}, ErrInvalidQRPayload
		}
	}
	return QRPayload{CustomerID: parts[0], VendorID: parts[1]}, nil
}

func validQRID(id string) bool {
	if id == "" || len(id) > maxQRIDLength {
		return false
	}
	for _, r := range id {
		if unicode.IsSpace(r) || r > unicode.MaxASCII {
			return false
		}
	}
	return true
}
