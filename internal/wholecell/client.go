// Licensed to Wholesale Dashboard under one or more agreements.
// Wholesale Dashboard licenses this file to you under the Apache 2.0 License.
// See the LICENSE file in the project root for more information.

// Package wholecell provides an authenticated client for the Wholecell
// inventory API. Response payloads are treated as opaque JSON; the upstream
// controls their shape.
package wholecell

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"net/url"
)

// Sentinel errors for Wholecell API operations.
var (
	ErrUnauthorized = errors.New("wholecell: authentication failed (check credentials)")
	ErrNotFound     = errors.New("wholecell: resource not found")
	ErrTimeout      = errors.New("wholecell: request timed out")
	ErrConnection   = errors.New("wholecell: could not connect to upstream")
)

// Credentials is the application id/secret pair issued by Wholecell.
// It is loaded once at process start and never changes afterwards.
type Credentials struct {
	AppID     string
	AppSecret string
}

// basicAuth returns the Basic auth token derived from the credential pair.
func (c Credentials) basicAuth() string {
	return base64.StdEncoding.EncodeToString([]byte(c.AppID + ":" + c.AppSecret))
}

// Client defines the interface for fetching inventory data from Wholecell.
type Client interface {
	// Fetch performs a single authenticated GET against the configured base
	// URL with the given query parameters and returns the raw JSON body.
	// Failures are classified into the sentinel errors above where possible;
	// each call is attempted exactly once.
	Fetch(ctx context.Context, params url.Values) (json.RawMessage, error)
}
