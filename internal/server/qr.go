package server

import (
	"net/http"

	"github.com/skip2/go-qrcode"
)

const qrSize = 256

// qrHandler serves a PNG QR code pointing at the game URL
func qrHandler(publicURL string) http.Handler {
	var (
		png []byte
		err error
	)
	if publicURL != "" {
		png, err = qrcode.Encode(publicURL, qrcode.Medium, qrSize)
	}
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if publicURL == "" {
			http.Error(w, "public url not configured", http.StatusNotFound)
			return
		}
		if err != nil {
			http.Error(w, "qr encode failed", http.StatusInternalServerError)
			return
		}
		w.Header().Set("Content-Type", "image/png")
		w.Header().Set("Cache-Control", "public, max-age=3600")
		w.Write(png)
	})
}
