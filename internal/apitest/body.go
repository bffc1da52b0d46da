package apitest

import (
	"encoding/json"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/agentstation/utc"
	"github.com/go-chi/chi/v5"

	"github.com/agentstation/evently/pkg/types"
)

const maxUpload = 8 << 20

// body is a request body flattened to text fields plus uploaded file names,
// whether it arrived as JSON or as multipart.
type body struct {
	fields map[string]string
	files  map[string][]string
}

func (b body) has(key string) bool {
	_, ok := b.fields[key]
	return ok
}

func readBody(r *http.Request) (body, error) {
	b := body{fields: map[string]string{}, files: map[string][]string{}}

	if strings.HasPrefix(r.Header.Get("Content-Type"), "multipart/") {
		if err := r.ParseMultipartForm(maxUpload); err != nil {
			return b, err
		}
		for k, v := range r.MultipartForm.Value {
			if len(v) > 0 {
				b.fields[k] = v[0]
			}
		}
		for k, fhs := range r.MultipartForm.File {
			for _, fh := range fhs {
				b.files[k] = append(b.files[k], fh.Filename)
			}
		}
		return b, nil
	}

	var raw map[string]any
	if err := json.NewDecoder(r.Body).Decode(&raw); err != nil && err != io.EOF {
		return b, err
	}
	for k, v := range raw {
		switch x := v.(type) {
		case string:
			b.fields[k] = x
		case float64:
			b.fields[k] = strconv.FormatFloat(x, 'f', -1, 64)
		case bool:
			b.fields[k] = strconv.FormatBool(x)
		}
	}
	return b, nil
}

// applyEvent copies the fields present in b onto ev.
func applyEvent(ev *types.Event, b body) map[string][]string {
	invalid := map[string][]string{}
	str := map[string]*string{
		"title":       &ev.Title,
		"description": &ev.Description,
		"address":     &ev.Address,
		"city":        &ev.City,
		"state":       &ev.State,
		"country":     &ev.Country,
		"postalCode":  &ev.PostalCode,
	}
	for k, p := range str {
		if v, ok := b.fields[k]; ok {
			*p = v
		}
	}
	num := map[string]*float64{"latitude": &ev.Latitude, "longitude": &ev.Longitude}
	for k, p := range num {
		v, ok := b.fields[k]
		if !ok {
			continue
		}
		f, err := strconv.ParseFloat(v, 64)
		if err != nil {
			invalid[k] = append(invalid[k], "must be a number")
			continue
		}
		*p = f
	}
	if v, ok := b.fields["date"]; ok {
		t, err := time.Parse(time.RFC3339, v)
		if err != nil {
			invalid["date"] = append(invalid["date"], "must be an RFC3339 date")
		} else {
			ev.Date = utc.New(t)
		}
	}
	if names := b.files["images"]; len(names) > 0 {
		ev.Images = make(types.ImageList, 0, len(names))
		for _, n := range names {
			ev.Images = append(ev.Images, CDN+n)
		}
	}
	return invalid
}

// CDN prefixes the URL of every uploaded file.
const CDN = "https://cdn.evently.test/"

func pathID(r *http.Request) (int, bool) {
	id, err := strconv.Atoi(chi.URLParam(r, "id"))
	return id, err == nil
}

func queryInt(r *http.Request, key string, fallback int) int {
	if n, err := strconv.Atoi(r.URL.Query().Get(key)); err == nil {
		return n
	}
	return fallback
}
