package server

import (
	"fmt"
	"net/http"
	"time"
)

const streamInterval = 66 * time.Millisecond // ~15 FPS

// Preview hands out the most recent camera frame as JPEG.
type Preview interface {
	// LatestJPEG returns the encoded frame and a counter that changes with
	// every new frame. A nil slice means no frame is available yet.
	LatestJPEG() ([]byte, uint64)
}

// StreamHandler serves MJPEG frames from the camera preview.
type StreamHandler struct {
	preview Preview
}

// NewStreamHandler creates a new StreamHandler with the given preview.
func NewStreamHandler(p Preview) *StreamHandler {
	return &StreamHandler{preview: p}
}

// ServeHTTP streams MJPEG frames to connected clients.
func (h *StreamHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	w.Header().Set("Content-Type", "multipart/x-mixed-replace; boundary=frame")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")

	ticker := time.NewTicker(streamInterval)
	defer ticker.Stop()

	var last uint64
	for {
		buf, n := h.preview.LatestJPEG()
		if buf != nil && n != last {
			last = n
			fmt.Fprintf(w, "--frame\r\n")
			fmt.Fprintf(w, "Content-Type: image/jpeg\r\n")
			fmt.Fprintf(w, "Content-Length: %d\r\n\r\n", len(buf))
			if _, err := w.Write(buf); err != nil {
				return
			}
			fmt.Fprintf(w, "\r\n")

			if f, ok := w.(http.Flusher); ok {
				f.Flush()
			}
		}

		select {
		case <-r.Context().Done():
			return
		case <-ticker.C:
		}
	}
}
