package http

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"

	"subtrack/internal/services"
)

const msgInvalidJSON = "invalid JSON body"

// errBodyTooLarge is returned when the body exceeds maxBodyBytes.
var errBodyTooLarge = errors.New("request body too large")

// decodeSubscriptionInput reads a JSON subscription from the body. An empty
// body decodes to the zero input so it fails validation rather than parsing.
// Unknown fields, including "id", are ignored.
func decodeSubscriptionInput(r *http.Request) (services.SubscriptionInput, error) {
	var in services.SubscriptionInput
	if r.Body == nil {
		return in, nil
	}

	err := json.NewDecoder(r.Body).Decode(&in)
	switch {
	case err == nil, errors.Is(err, io.EOF):
		return in, nil
	default:
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			return services.SubscriptionInput{}, errBodyTooLarge
		}
		return services.SubscriptionInput{}, fmt.Errorf("decode subscription: %w", err)
	}
}

func writeDecodeError(w http.ResponseWriter, err error) {
	if errors.Is(err, errBodyTooLarge) {
		writeError(w, http.StatusRequestEntityTooLarge, errBodyTooLarge.Error())
		return
	}
	writeError(w, http.StatusBadRequest, msgInvalidJSON)
}
