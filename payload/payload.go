// Package payload reads event payloads from disk for replay.
package payload

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"reflect"
	"strings"

	"github.com/fxamacker/cbor/v2"
	"github.com/klauspost/compress/gzip"
	"github.com/klauspost/compress/zstd"
	"github.com/tidwall/gjson"
	"github.com/tidwall/sjson"
)

// SeqField is the field Stamp writes into object payloads.
const SeqField = "_seq"

// Payload file formats
const (
	FormatJSON = "json"
	FormatCBOR = "cbor"
)

var cborDecMode, _ = cbor.DecOptions{
	DefaultMapType: reflect.TypeOf(map[string]any(nil)),
}.DecMode()

// Read returns the JSON documents held in path. A JSON array yields one
// document per element, a CBOR sequence one document per item. Files ending
// in .gz or .zst are decompressed first.
func Read(path, format string) ([][]byte, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer file.Close()

	r, closer, err := decompress(file, filepath.Ext(path))
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	defer closer()

	var docs [][]byte
	switch format {
	case FormatJSON:
		docs, err = readJSON(r)
	case FormatCBOR:
		docs, err = readCBOR(r)
	default:
		err = fmt.Errorf("unknown payload format %q", format)
	}
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return docs, nil
}

func decompress(r io.Reader, ext string) (io.Reader, func(), error) {
	switch strings.ToLower(ext) {
	case ".gz":
		gz, err := gzip.NewReader(r)
		if err != nil {
			return nil, nil, err
		}
		return gz, func() { gz.Close() }, nil
	case ".zst":
		dec, err := zstd.NewReader(r)
		if err != nil {
			return nil, nil, err
		}
		return dec, dec.Close, nil
	default:
		return r, func() {}, nil
	}
}

func readJSON(r io.Reader) ([][]byte, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, err
	}
	if !gjson.ValidBytes(data) {
		return nil, fmt.Errorf("invalid json")
	}

	parsed := gjson.ParseBytes(data)
	if !parsed.IsArray() {
		return [][]byte{[]byte(strings.TrimSpace(parsed.Raw))}, nil
	}

	var docs [][]byte
	parsed.ForEach(func(_, value gjson.Result) bool {
		docs = append(docs, []byte(value.Raw))
		return true
	})
	return docs, nil
}

func readCBOR(r io.Reader) ([][]byte, error) {
	var docs [][]byte
	dec := cborDecMode.NewDecoder(r)
	for {
		var item any
		if err := dec.Decode(&item); err != nil {
			if errors.Is(err, io.EOF) {
				return docs, nil
			}
			return nil, fmt.Errorf("decoding cbor item %d: %w", len(docs)+1, err)
		}

		doc, err := json.Marshal(item)
		if err != nil {
			return nil, fmt.Errorf("converting cbor item %d: %w", len(docs)+1, err)
		}
		docs = append(docs, doc)
	}
}

// Stamp sets SeqField on an object payload. Other payloads are returned as is.
func Stamp(doc []byte, seq int) ([]byte, error) {
	if !gjson.ParseBytes(doc).IsObject() {
		return doc, nil
	}
	return sjson.SetBytes(doc, SeqField, seq)
}
