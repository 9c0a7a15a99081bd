// Package http exposes the ledger engine as a JSON API.
//
// This file holds the request parsing helpers shared by the handlers:
// identity, scope and mode, path ids, dates and JSON bodies.

package http

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"

	"familyledger/internal/core"
	"familyledger/internal/services"
)

// HeaderMemberID carries the authenticated member id set by the upstream proxy.
const HeaderMemberID = "X-Member-ID"

const maxBodyBytes = 64 << 10

// errUnauthenticated is returned when the identity header is absent or malformed.
var errUnauthenticated = errors.New("missing or invalid " + HeaderMemberID + " header")

// badRequest marks request-shape errors: malformed JSON, ids, query values.
type badRequest struct {
	msg string
}

func (e *badRequest) Error() string { return e.msg }

func badRequestf(format string, args ...any) error {
	return &badRequest{msg: fmt.Sprintf(format, args...)}
}

func memberID(r *http.Request) (int64, error) {
	id, err := strconv.ParseInt(strings.TrimSpace(r.Header.Get(HeaderMemberID)), 10, 64)
	if err != nil || id <= 0 {
		return 0, errUnauthenticated
	}
	return id, nil
}

// resolveView reads the member and the scope query parameter and resolves
// the visibility for this request.
func (s *Server) resolveView(r *http.Request) (services.View, error) {
	id, err := memberID(r)
	if err != nil {
		return services.View{}, err
	}
	scope, err := core.ParseScope(r.URL.Query().Get("scope"))
	if err != nil {
		return services.View{}, err
	}
	return s.engine.Resolve(r.Context(), id, scope)
}

func pathID(r *http.Request, name string) (int64, error) {
	id, err := strconv.ParseInt(r.PathValue(name), 10, 64)
	if err != nil || id <= 0 {
		return 0, badRequestf("invalid %s '%s'", name, r.PathValue(name))
	}
	return id, nil
}

// queryDate parses an optional YYYY-MM-DD query value; absent means zero.
func queryDate(q url.Values, key string) (core.Date, error) {
	v := strings.TrimSpace(q.Get(key))
	if v == "" {
		return core.Date{}, nil
	}
	d, err := core.ParseDate(v)
	if err != nil {
		return core.Date{}, badRequestf("invalid %s '%s': want YYYY-MM-DD", key, v)
	}
	return d, nil
}

// queryMonth parses optional year and month values into the first of that
// month. Both absent means zero; a month without a year uses today's year.
func queryMonth(q url.Values, today core.Date) (core.Date, error) {
	ys, ms := strings.TrimSpace(q.Get("year")), strings.TrimSpace(q.Get("month"))
	if ys == "" && ms == "" {
		return core.Date{}, nil
	}
	year := today.Year()
	if ys != "" {
		y, err := strconv.Atoi(ys)
		if err != nil || y < 1 || y > 9999 {
			return core.Date{}, badRequestf("invalid year '%s'", ys)
		}
		year = y
	}
	month := today.Month()
	if ms != "" {
		m, err := strconv.Atoi(ms)
		if err != nil || m < 1 || m > 12 {
			return core.Date{}, badRequestf("invalid month '%s'", ms)
		}
		month = m
	}
	return core.NewDate(year, month, 1), nil
}

// decodeJSON reads one JSON object into dst, rejecting unknown fields and
// trailing data.
func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) error {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		if errors.Is(err, io.EOF) {
			return badRequestf("request body is empty")
		}
		var typeErr *json.UnmarshalTypeError
		if errors.As(err, &typeErr) {
			return badRequestf("invalid value for field '%s'", typeErr.Field)
		}
		if errors.Is(err, core.ErrInvalidDate) {
			return err
		}
		return badRequestf("malformed JSON body: %v", err)
	}
	if dec.More() {
		return badRequestf("request body must contain a single JSON object")
	}
	return nil
}

// parseAmount accepts "12.34" or "12,34" and requires a positive value.
func parseAmount(field, s string) (decimal.Decimal, error) {
	d, err := core.ParseAmount(s)
	if err != nil {
		return decimal.Zero, fmt.Errorf("%s: %w", field, err)
	}
	return d, nil
}

func orToday(d, today core.Date) core.Date {
	if d.IsZero() {
		return today
	}
	return d
}
