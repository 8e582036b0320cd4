// Copyright (C) 2019-2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package friendli

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/url"
	"path"
	"sort"
)

// HeaderRequestID carries the per-call correlation id.
const HeaderRequestID = "X-Request-ID"

const dedicatedPrefix = "dedicated"

// formFile is one multipart part. It never has a filename.
type formFile struct {
	name  string
	value any
}

// buildURL resolves the call path against the base URL. Dedicated calls are
// always routed under the dedicated prefix.
func buildURL(base *url.URL, target Target, ep Endpoint) *url.URL {
	prefix := ""
	if target.Dedicated() {
		prefix = dedicatedPrefix
	}
	ref := &url.URL{Path: path.Join(prefix, ep.APIPath())}
	return base.ResolveReference(ref)
}

// injectModel sets data["model"] to the endpoint id for dedicated calls and
// to the caller's model otherwise.
func injectModel(data map[string]any, target Target, model string) {
	if target.Dedicated() {
		data["model"] = target.EndpointID
		return
	}
	data["model"] = model
}

// buildContent returns the JSON or binary body. It returns nil for multipart
// calls, whose payload travels in the parts built by buildFiles.
func buildContent(target Target, ep Endpoint, data map[string]any) ([]byte, string, error) {
	switch encodingFor(ep.ContentType(), target.UseProtobuf) {
	case EncodingMultipart:
		return nil, ep.ContentType(), nil
	case EncodingBinary:
		codec, err := NewBinaryCodec(ep.Schema())
		if err != nil {
			return nil, "", err
		}
		b, err := codec.Encode(data)
		if err != nil {
			return nil, "", err
		}
		return b, codec.ContentType(), nil
	default:
		b, err := JSONCodec{}.Encode(data)
		if err != nil {
			return nil, "", fmt.Errorf("encode payload: %w", err)
		}
		return b, ep.ContentType(), nil
	}
}

// buildFiles returns one part per non-nil field for multipart calls, sorted by
// field name, and nil for every other content type.
func buildFiles(ep Endpoint, data map[string]any) []formFile {
	if encodingFor(ep.ContentType(), false) != EncodingMultipart {
		return nil
	}
	files := make([]formFile, 0, len(data))
	for name, value := range data {
		if value == nil {
			continue
		}
		files = append(files, formFile{name: name, value: value})
	}
	sort.Slice(files, func(i, j int) bool { return files[i].name < files[j].name })
	return files
}

// writeMultipart renders the parts and returns the body and its content type
// with boundary.
func writeMultipart(files []formFile) (*bytes.Buffer, string, error) {
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	for _, f := range files {
		part, err := w.CreateFormField(f.name)
		if err != nil {
			return nil, "", err
		}
		if err := writeFormValue(part, f.value); err != nil {
			return nil, "", fmt.Errorf("form field %q: %w", f.name, err)
		}
	}
	if err := w.Close(); err != nil {
		return nil, "", err
	}
	return &buf, w.FormDataContentType(), nil
}

func writeFormValue(w io.Writer, v any) error {
	switch x := v.(type) {
	case []byte:
		_, err := w.Write(x)
		return err
	case string:
		_, err := io.WriteString(w, x)
		return err
	case io.Reader:
		_, err := io.Copy(w, x)
		return err
	default:
		b, err := json.Marshal(x)
		if err != nil {
			return err
		}
		_, err = w.Write(b)
		return err
	}
}

// buildRequest turns one logical call into a fresh *http.Request.
func (e *executor) buildRequest(ctx context.Context, ep Endpoint, data map[string]any, model string) (*http.Request, error) {
	injectModel(data, e.target, model)

	content, contentType, err := buildContent(e.target, ep, data)
	if err != nil {
		return nil, err
	}

	var body io.Reader
	if files := buildFiles(ep, data); files != nil {
		buf, ct, err := writeMultipart(files)
		if err != nil {
			return nil, fmt.Errorf("failed to encode form: %w", err)
		}
		body, contentType = buf, ct
	} else {
		body = bytes.NewReader(content)
	}

	u := buildURL(e.base, e.target, ep)
	req, err := http.NewRequestWithContext(ctx, ep.Method(), u.String(), body)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set("Content-Type", contentType)
	headers, err := e.auth.Headers()
	if err != nil {
		return nil, err
	}
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	if e.userAgent != "" {
		req.Header.Set("User-Agent", e.userAgent)
	}
	if id := e.requestID(); id != "" {
		req.Header.Set(HeaderRequestID, id)
	}
	return req, nil
}

// DescribeRequest builds the body a call would send and decodes it back into
// a map, without touching the network. Binary bodies go through the schema,
// so the result shows exactly what survives the wire form. Multipart calls
// report their form fields.
func DescribeRequest(target Target, ep Endpoint, data map[string]any, model string) (map[string]any, Encoding, error) {
	enc := encodingFor(ep.ContentType(), target.UseProtobuf)
	if err := checkModel(target, model); err != nil {
		return nil, enc, err
	}
	payload := make(map[string]any, len(data)+1)
	for k, v := range data {
		payload[k] = v
	}
	injectModel(payload, target, model)

	content, _, err := buildContent(target, ep, payload)
	if err != nil {
		return nil, enc, err
	}
	switch enc {
	case EncodingMultipart:
		out := make(map[string]any)
		for _, f := range buildFiles(ep, payload) {
			out[f.name] = f.value
		}
		return out, enc, nil
	case EncodingBinary:
		out, err := DecodeBinaryRequest(ep.Schema(), content)
		return out, enc, err
	default:
		out, err := JSONCodec{}.Decode(content)
		return out, enc, err
	}
}
