// SPDX-License-Identifier: AGPL-3.0-or-later
// Copyright (c) Lothar May

package webclient

import (
	"fmt"
	"io"
	"mime"
	"net/http"

	json "github.com/goccy/go-json"
)

// Error reply format of the Binance REST api.
type apiError struct {
	Code int    `json:"code"`
	Msg  string `json:"msg"`
}

func ParseJsonResponse(resp *http.Response, v any) error {
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		b, _ := io.ReadAll(resp.Body)
		var e apiError
		if json.Unmarshal(b, &e) == nil && len(e.Msg) > 0 {
			return fmt.Errorf("query returned error code %d: %s (%d)", resp.StatusCode, e.Msg, e.Code)
		}
		return fmt.Errorf("query returned error code %d (%s)", resp.StatusCode, b)
	}

	m, _, err := mime.ParseMediaType(resp.Header.Get("Content-Type"))
	if err != nil || m != "application/json" {
		return fmt.Errorf("invalid content type %s", resp.Header.Get("Content-Type"))
	}

	if err = json.NewDecoder(resp.Body).Decode(v); err != nil {
		return err
	}
	return nil
}
