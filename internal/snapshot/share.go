package snapshot

import (
	"encoding/base64"
	"fmt"
	"log"
	"net/url"
	"strings"
	"time"

	"pomodoroplaza/internal/model"
)

const ShareQueryParam = "state"

// EncodeShare produces the link token: base64 over the percent-escaped JSON
// document, readable by decodeURIComponent(atob(token)) in the browser.
func EncodeShare(state model.State) (string, error) {
	payload, err := Marshal(state)
	if err != nil {
		return "", err
	}
	return base64.StdEncoding.EncodeToString([]byte(escapeComponent(string(payload)))), nil
}

// escapeComponent percent-escapes like encodeURIComponent: spaces become %20,
// never '+'.
func escapeComponent(s string) string {
	return strings.ReplaceAll(url.QueryEscape(s), "+", "%20")
}

// DecodeShare reverses EncodeShare. Any malformed token yields ok=false.
func DecodeShare(token string, now time.Time) (model.State, bool) {
	token = strings.TrimSpace(token)
	if token == "" {
		return model.State{}, false
	}
	raw, err := base64.StdEncoding.DecodeString(token)
	if err != nil {
		// url.Values decoding turns '+' into ' ' when the token was not escaped
		raw, err = base64.StdEncoding.DecodeString(strings.ReplaceAll(token, " ", "+"))
		if err != nil {
			log.Printf("decode share token: %v", err)
			return model.State{}, false
		}
	}
	// encodeURIComponent never emits a bare '+', so one here is a space from an
	// older token.
	unescaped, err := url.QueryUnescape(string(raw))
	if err != nil {
		log.Printf("unescape share token: %v", err)
		return model.State{}, false
	}
	state, err := Unmarshal([]byte(unescaped), now)
	if err != nil {
		log.Printf("parse share token: %v", err)
		return model.State{}, false
	}
	return state, true
}

// ShareURL sets the state parameter on base.
func ShareURL(base string, state model.State) (string, error) {
	parsed, err := url.Parse(base)
	if err != nil {
		return "", fmt.Errorf("parse share base url: %w", err)
	}
	token, err := EncodeShare(state)
	if err != nil {
		return "", err
	}
	query := parsed.Query()
	query.Set(ShareQueryParam, token)
	parsed.RawQuery = query.Encode()
	return parsed.String(), nil
}

// StateFromURL extracts and decodes the state parameter of a shared link.
func StateFromURL(raw string, now time.Time) (model.State, bool) {
	parsed, err := url.Parse(raw)
	if err != nil {
		return model.State{}, false
	}
	return DecodeShare(parsed.Query().Get(ShareQueryParam), now)
}
