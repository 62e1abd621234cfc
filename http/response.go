package http

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/sagarc03/s3proxy"
)

// ErrorResponse represents a JSON error response
type ErrorResponse struct {
	Message string `json:"message"`
}

// Response is a fully buffered HTTP response.
type Response struct {
	Status int
	Header http.Header
	Body   []byte
}

// BuildResponse assembles the response for an object request:
//   - not found: 404 with "Not found: <uri>", whatever the decision
//   - rejected: 403 with "Content type not permitted: <mime>", no object bytes
//   - inline: 200 with the body and its Content-Type
//   - attachment: 200 with the body, its Content-Type and Content-Disposition: attachment
func BuildResponse(d s3proxy.Decision, r s3proxy.FetchResult, uri string) Response {
	if !r.Found {
		return messageResponse(http.StatusNotFound, "Not found: "+uri)
	}

	if d.IsRejected() {
		return RejectedResponse(d.MimeType)
	}

	resp := Response{
		Status: http.StatusOK,
		Header: http.Header{},
		Body:   r.Data,
	}
	resp.Header.Set("Content-Type", d.MimeType)
	if d.Disposition == s3proxy.DispositionAttachment {
		resp.Header.Set("Content-Disposition", "attachment")
	}
	return resp
}

// RejectedResponse is the 403 answer for a content type refused by policy.
func RejectedResponse(mimeType string) Response {
	return messageResponse(http.StatusForbidden, "Content type not permitted: "+mimeType)
}

func messageResponse(code int, message string) Response {
	header := http.Header{}
	header.Set("Content-Type", "application/json")
	return Response{
		Status: code,
		Header: header,
		Body:   encodeJSON(ErrorResponse{Message: message}),
	}
}

// Write sends resp, setting Content-Length from the body size.
func (resp Response) Write(w http.ResponseWriter) {
	for k, v := range resp.Header {
		w.Header()[k] = v
	}
	w.Header().Set("Content-Length", strconv.Itoa(len(resp.Body)))
	w.WriteHeader(resp.Status)
	if _, err := w.Write(resp.Body); err != nil {
		slog.Debug("failed to write response body", "error", err)
	}
}

func encodeJSON(v any) []byte {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(v); err != nil {
		slog.Error("failed to encode response", "error", err)
		return []byte("{}")
	}
	return bytes.TrimRight(buf.Bytes(), "\n")
}

// WriteError writes a JSON error response
func WriteError(w http.ResponseWriter, code int, message string) {
	messageResponse(code, message).Write(w)
}

// HandleError writes appropriate error response based on error type
func HandleError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, s3proxy.ErrInvalidInput):
		slog.Debug("invalid request", "error", err)
		WriteError(w, http.StatusBadRequest, "Invalid bucket or key")
	case errors.Is(err, s3proxy.ErrNotFound):
		WriteError(w, http.StatusNotFound, "Not found")
	case errors.Is(err, ErrUnauthorized):
		slog.Debug("request rejected", "error", err)
		WriteError(w, http.StatusUnauthorized, "Not authenticated")
	case errors.Is(err, s3proxy.ErrForbidden):
		WriteError(w, http.StatusForbidden, "Forbidden")
	case errors.Is(err, s3proxy.ErrBackend):
		slog.Error("storage backend error", "error", err)
		WriteError(w, http.StatusBadGateway, "Storage backend error")
	case errors.Is(err, context.Canceled):
		slog.Debug("request canceled", "error", err)
		WriteError(w, http.StatusServiceUnavailable, "Request canceled")
	case errors.Is(err, context.DeadlineExceeded):
		slog.Warn("request timed out", "error", err)
		WriteError(w, http.StatusGatewayTimeout, "Request timed out")
	default:
		slog.Error("request error", "error", err)
		WriteError(w, http.StatusInternalServerError, "Internal server error")
	}
}

// WriteJSON writes a JSON response
func WriteJSON(w http.ResponseWriter, code int, data any) error {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	return json.NewEncoder(w).Encode(data)
}
