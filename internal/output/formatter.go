// Package output renders command results for the terminal.
package output

import (
	"bytes"
	"encoding/json"
	"fmt"
	"sort"
	"strings"
	"text/tabwriter"

	"gopkg.in/yaml.v3"

	"github.com/danmuck/dicewire/proto"
)

// Formatter renders one value as a complete block of text.
type Formatter interface {
	Format(data any) string
}

// NewFormatter returns a Formatter for format: "text" (default), "json" or "yaml".
func NewFormatter(format string) (Formatter, error) {
	switch strings.ToLower(strings.TrimSpace(format)) {
	case "", "text":
		return TextFormatter{}, nil
	case "json":
		return JSONFormatter{}, nil
	case "yaml":
		return YAMLFormatter{}, nil
	default:
		return nil, fmt.Errorf("unknown output format %q (want text, json or yaml)", format)
	}
}

// Status is a bare server acknowledgement, printed unquoted.
type Status string

const StatusOK Status = "OK"

// View flattens a response payload into plain data that every formatter handles.
func View(res proto.Response) any {
	switch r := res.(type) {
	case nil:
		return nil
	case *proto.PingRes:
		return r.Message
	case *proto.EchoRes:
		return r.Message
	case *proto.TypeRes:
		return r.Type
	case *proto.GetRes:
		return r.Value
	case *proto.GetSetRes:
		return r.Value
	case *proto.HGetRes:
		return r.Value
	case *proto.GetDelRes:
		return optional(r.Value, r.Found)
	case *proto.GetExRes:
		return optional(r.Value, r.Found)
	case *proto.KeysRes:
		return r.Keys
	case *proto.HGetAllRes:
		return r.Map()
	case *proto.ZRangeRes:
		return r.Elements
	case *proto.ZPopMaxRes:
		return r.Elements
	case *proto.ZPopMinRes:
		return r.Elements
	case *proto.ZRankRes:
		if !r.Found {
			return nil
		}
		return r.Element
	case *proto.ExistsRes:
		return r.Count
	case *proto.DelRes:
		return r.Count
	case *proto.HSetRes:
		return r.Count
	case *proto.ZAddRes:
		return r.Count
	case *proto.ZCountRes:
		return r.Count
	case *proto.ZRemRes:
		return r.Count
	case *proto.ZCardRes:
		return r.Count
	case *proto.IncrRes:
		return r.Value
	case *proto.DecrRes:
		return r.Value
	case *proto.IncrByRes:
		return r.Value
	case *proto.DecrByRes:
		return r.Value
	case *proto.ExpireRes:
		return r.IsChanged
	case *proto.ExpireAtRes:
		return r.IsChanged
	case *proto.ExpireTimeRes:
		return r.UnixSec
	case *proto.TTLRes:
		return r.Seconds
	case *proto.SetRes, *proto.FlushDBRes, *proto.UnwatchRes, *proto.HandshakeRes:
		return StatusOK
	default:
		return res
	}
}

func optional(v string, found bool) any {
	if !found {
		return nil
	}
	return v
}

// TextFormatter prints scalars bare, lists one per line, maps as sorted key/value
// pairs and sorted-set elements as a table.
type TextFormatter struct{}

func (TextFormatter) Format(data any) string {
	var buf bytes.Buffer
	w := tabwriter.NewWriter(&buf, 0, 4, 2, ' ', 0)
	switch v := data.(type) {
	case nil:
		fmt.Fprintln(w, "(nil)")
	case Status:
		fmt.Fprintln(w, string(v))
	case string:
		fmt.Fprintf(w, "%q\n", v)
	case int64:
		fmt.Fprintf(w, "(integer) %d\n", v)
	case bool:
		fmt.Fprintf(w, "(boolean) %t\n", v)
	case []string:
		if len(v) == 0 {
			fmt.Fprintln(w, "(empty)")
		}
		for i, s := range v {
			fmt.Fprintf(w, "%d)\t%q\n", i+1, s)
		}
	case map[string]string:
		if len(v) == 0 {
			fmt.Fprintln(w, "(empty)")
		}
		keys := make([]string, 0, len(v))
		for k := range v {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, k := range keys {
			fmt.Fprintf(w, "%s\t%q\n", k, v[k])
		}
	case []proto.ZElement:
		if len(v) == 0 {
			fmt.Fprintln(w, "(empty)")
			break
		}
		fmt.Fprintln(w, "RANK\tMEMBER\tSCORE")
		for _, e := range v {
			fmt.Fprintf(w, "%d\t%s\t%d\n", e.Rank, e.Member, e.Score)
		}
	case proto.ZElement:
		fmt.Fprintln(w, "RANK\tMEMBER\tSCORE")
		fmt.Fprintf(w, "%d\t%s\t%d\n", v.Rank, v.Member, v.Score)
	case fmt.Stringer:
		fmt.Fprintln(w, v.String())
	default:
		fmt.Fprintf(w, "%+v\n", v)
	}
	_ = w.Flush()
	return buf.String()
}

type JSONFormatter struct{}

func (JSONFormatter) Format(data any) string {
	b, err := json.MarshalIndent(data, "", "  ")
	if err != nil {
		return fmt.Sprintf("error formatting JSON: %v\n", err)
	}
	return string(b) + "\n"
}

type YAMLFormatter struct{}

func (YAMLFormatter) Format(data any) string {
	b, err := yaml.Marshal(data)
	if err != nil {
		return fmt.Sprintf("error formatting YAML: %v\n", err)
	}
	return string(b)
}
