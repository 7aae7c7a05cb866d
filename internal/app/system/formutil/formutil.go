// Package formutil reads request bodies that arrive either as an HTML form
// or as a JSON object, so one handler serves browsers and API callers.
//
// Example usage:
//
//	in, err := formutil.Parse(r)
//	if err != nil {
//		respond.Error(w, http.StatusBadRequest, "invalid request body")
//		return
//	}
//	title := in.String("title")
//	devs := in.Strings("developer_ids")
package formutil

import (
	"encoding/json"
	"fmt"
	"io"
	"mime"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/dalemusser/weblivery/internal/app/system/limits"
	"github.com/dalemusser/weblivery/internal/domain/errs"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// DateLayout is the accepted format of date fields.
const DateLayout = "2006-01-02"

// Input is a parsed request body.
type Input struct {
	form url.Values
	json map[string]any
}

// Parse reads the body of r. A Content-Type of application/json is decoded
// as a JSON object; anything else goes through ParseForm, which also covers
// query parameters.
func Parse(r *http.Request) (Input, error) {
	ct, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))
	if ct == "application/json" {
		m := map[string]any{}
		dec := json.NewDecoder(io.LimitReader(r.Body, limits.MaxJSONBodySize))
		if err := dec.Decode(&m); err != nil && err != io.EOF {
			return Input{}, fmt.Errorf("decode json body: %w", err)
		}
		return Input{json: m}, nil
	}
	if r.Body != nil {
		r.Body = http.MaxBytesReader(nil, r.Body, limits.MaxFormBodySize)
	}
	if err := r.ParseForm(); err != nil {
		return Input{}, fmt.Errorf("parse form: %w", err)
	}
	return Input{form: r.Form}, nil
}

// String returns the value for key, or "" when absent. JSON numbers and
// booleans are formatted as text.
func (in Input) String(key string) string {
	if in.json == nil {
		return in.form.Get(key)
	}
	switch v := in.json[key].(type) {
	case nil:
		return ""
	case string:
		return v
	default:
		return fmt.Sprint(v)
	}
}

// Strings returns every value for key. A form may repeat the key or send a
// comma-separated list; JSON may send an array or a single string.
func (in Input) Strings(key string) []string {
	var raw []string
	if in.json == nil {
		raw = in.form[key]
	} else {
		switch v := in.json[key].(type) {
		case string:
			raw = []string{v}
		case []any:
			for _, item := range v {
				if s, ok := item.(string); ok {
					raw = append(raw, s)
				}
			}
		}
	}

	var out []string
	for _, s := range raw {
		for _, part := range strings.Split(s, ",") {
			if part = strings.TrimSpace(part); part != "" {
				out = append(out, part)
			}
		}
	}
	return out
}

// ObjectID parses key as a hex ObjectID. A missing or malformed value is
// reported on v and returns the zero id.
func (in Input) ObjectID(key string, v *errs.ValidationError) primitive.ObjectID {
	s := strings.TrimSpace(in.String(key))
	if s == "" {
		v.Add(key, "is required")
		return primitive.NilObjectID
	}
	oid, err := primitive.ObjectIDFromHex(s)
	if err != nil {
		v.Add(key, "is not a valid id")
		return primitive.NilObjectID
	}
	return oid
}

// ObjectIDs parses every value of key as a hex ObjectID.
func (in Input) ObjectIDs(key string, v *errs.ValidationError) []primitive.ObjectID {
	vals := in.Strings(key)
	out := make([]primitive.ObjectID, 0, len(vals))
	for _, s := range vals {
		oid, err := primitive.ObjectIDFromHex(s)
		if err != nil {
			v.Add(key, fmt.Sprintf("%q is not a valid id", s))
			continue
		}
		out = append(out, oid)
	}
	return out
}

// Date parses key with DateLayout (or RFC 3339). An empty value returns nil.
func (in Input) Date(key string, v *errs.ValidationError) *time.Time {
	s := strings.TrimSpace(in.String(key))
	if s == "" {
		return nil
	}
	for _, layout := range []string{DateLayout, time.RFC3339} {
		if t, err := time.Parse(layout, s); err == nil {
			t = t.UTC()
			return &t
		}
	}
	v.Add(key, "must be a date (YYYY-MM-DD)")
	return nil
}
