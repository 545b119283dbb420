package client

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
)

const envelopeSuccess = "success"

// envelope is the wrapper the backend puts around every reply. Failures are
// reported with HTTP 200 and a status such as "401 Unauthorized".
type envelope struct {
	Status  string          `json:"status"`
	Data    json.RawMessage `json:"data,omitempty"`
	Message string          `json:"message,omitempty"`
	Error   string          `json:"error,omitempty"`
}

// decodeResponse interprets a 2xx body. It returns the effective status code
// (the envelope's when it reports a failure) and decodes the payload into out.
// A nil out accepts any body that is not a failure envelope.
func decodeResponse(httpStatus int, body []byte, out any) (int, error) {
	body = bytes.TrimSpace(body)
	if len(body) == 0 {
		if out != nil {
			return httpStatus, ErrEmptyResponse
		}
		return httpStatus, nil
	}

	if body[0] != '{' {
		if out == nil {
			return httpStatus, nil
		}
		if err := json.Unmarshal(body, out); err != nil {
			return httpStatus, fmt.Errorf("decode response: %w", err)
		}
		return httpStatus, nil
	}

	var env envelope
	if err := json.Unmarshal(body, &env); err != nil {
		return httpStatus, fmt.Errorf("decode response: %w", err)
	}

	if env.Status != "" && env.Status != envelopeSuccess {
		return envelopeStatusCode(env.Status), fmt.Errorf("%w: %s%s", ErrBackendFailure, env.Status, detail(env))
	}

	if out == nil {
		return httpStatus, nil
	}
	if env.Status == "" {
		return httpStatus, fmt.Errorf("decode response: missing envelope status")
	}
	if len(env.Data) == 0 || bytes.Equal(env.Data, []byte("null")) {
		return httpStatus, nil
	}
	if err := json.Unmarshal(env.Data, out); err != nil {
		return httpStatus, fmt.Errorf("decode response data: %w", err)
	}
	return httpStatus, nil
}

// envelopeStatusCode extracts the numeric prefix of an envelope status.
// Statuses without one map to 0.
func envelopeStatusCode(status string) int {
	fields := strings.Fields(status)
	if len(fields) == 0 {
		return 0
	}
	code, err := strconv.Atoi(fields[0])
	if err != nil {
		return 0
	}
	return code
}

// errorDetail pulls a server-provided message out of a non-2xx body.
func errorDetail(body []byte) string {
	var env envelope
	if err := json.Unmarshal(bytes.TrimSpace(body), &env); err != nil {
		return ""
	}
	return detail(env)
}

func detail(env envelope) string {
	switch {
	case env.Message != "":
		return ": " + env.Message
	case env.Error != "":
		return ": " + env.Error
	default:
		return ""
	}
}
