// Package pass renders attendance passes: a QR code wrapping an encrypted
// {eventId, email, issuedAt} payload that the event's creator decrypts at
// check-in.
package pass

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/skip2/go-qrcode"
)

var ErrInvalidPass = errors.New("invalid pass")

// PNGSize is the edge length of the rendered code in pixels.
const PNGSize = 256

type Payload struct {
	EventID  int64     `json:"eventId"`
	Email    string    `json:"email"`
	IssuedAt time.Time `json:"issuedAt"`
}

type Generator struct {
	aead cipher.AEAD
	now  func() time.Time
}

func NewGenerator(secret string) (*Generator, error) {
	hashed := sha256.Sum256([]byte(secret)) // normalize to 32 bytes
	block, err := aes.NewCipher(hashed[:])
	if err != nil {
		return nil, err
	}
	aead, err := cipher.NewGCM(block)
	if err != nil {
		return nil, err
	}
	return &Generator{aead: aead, now: time.Now}, nil
}

// Encrypt seals the payload for (eventID, email) into a URL-safe string.
func (g *Generator) Encrypt(eventID int64, email string) (string, error) {
	data, err := json.Marshal(Payload{EventID: eventID, Email: email, IssuedAt: g.now().UTC()})
	if err != nil {
		return "", err
	}

	nonce := make([]byte, g.aead.NonceSize())
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return "", err
	}

	sealed := g.aead.Seal(nonce, nonce, data, nil)
	return base64.RawURLEncoding.EncodeToString(sealed), nil
}

// Decrypt opens a scanned pass. Any tampering or foreign key yields ErrInvalidPass.
func (g *Generator) Decrypt(token string) (*Payload, error) {
	raw, err := base64.RawURLEncoding.DecodeString(token)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidPass, err)
	}
	n := g.aead.NonceSize()
	if len(raw) < n {
		return nil, ErrInvalidPass
	}

	plain, err := g.aead.Open(nil, raw[:n], raw[n:], nil)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidPass, err)
	}

	var p Payload
	if err := json.Unmarshal(plain, &p); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidPass, err)
	}
	return &p, nil
}

// PNG renders the encrypted pass as a QR code image.
func (g *Generator) PNG(eventID int64, email string) ([]byte, error) {
	encrypted, err := g.Encrypt(eventID, email)
	if err != nil {
		return nil, err
	}
	return qrcode.Encode(encrypted, qrcode.Medium, PNGSize)
}
