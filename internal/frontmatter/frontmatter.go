// Package frontmatter reads and writes the YAML block at the top of a
// rendered page and stamps it with a content fingerprint.
package frontmatter

import (
	"bytes"
	"errors"
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/inful/mdfp"
	"gopkg.in/yaml.v3"
)

// FingerprintField is the frontmatter key holding the content fingerprint.
const FingerprintField = mdfp.FingerprintField

// ErrMissingClosingDelimiter indicates the document started with a YAML
// frontmatter delimiter but did not contain a closing delimiter.
var ErrMissingClosingDelimiter = errors.New("yaml frontmatter start delimiter found but closing delimiter is missing")

// Split separates `---` delimited frontmatter from the body. If the document
// has no frontmatter, had is false and body is the full input.
func Split(content []byte) (fm []byte, body []byte, had bool, err error) {
	nl := "\n"
	if bytes.HasPrefix(content, []byte("---\r\n")) {
		nl = "\r\n"
	}
	open := []byte("---" + nl)
	if !bytes.HasPrefix(content, open) {
		return nil, content, false, nil
	}

	start := len(open)
	if bytes.HasPrefix(content[start:], open) {
		return []byte{}, content[start+len(open):], true, nil
	}
	closeSeq := []byte(nl + "---" + nl)
	idx := bytes.Index(content[start:], closeSeq)
	if idx < 0 {
		return nil, nil, false, ErrMissingClosingDelimiter
	}
	return content[start : start+idx+len(nl)], content[start+idx+len(closeSeq):], true, nil
}

// Join reassembles a document. Empty fields produce no frontmatter block.
func Join(fm []byte, body []byte) []byte {
	if len(fm) == 0 {
		return body
	}
	out := make([]byte, 0, len(fm)+len(body)+8)
	out = append(out, "---\n"...)
	out = append(out, fm...)
	out = append(out, "---\n"...)
	return append(out, body...)
}

// Parse decodes raw frontmatter into a map.
func Parse(fm []byte) (map[string]any, error) {
	fields := map[string]any{}
	if len(bytes.TrimSpace(fm)) == 0 {
		return fields, nil
	}
	if err := yaml.Unmarshal(fm, &fields); err != nil {
		return nil, fmt.Errorf("invalid frontmatter: %w", err)
	}
	if fields == nil {
		fields = map[string]any{}
	}
	return fields, nil
}

// Serialize encodes fields as YAML with keys sorted at every level so the
// output is stable across runs.
func Serialize(fields map[string]any) ([]byte, error) {
	if len(fields) == 0 {
		return []byte{}, nil
	}
	node, err := nodeFromMap(fields)
	if err != nil {
		return nil, err
	}
	var buf bytes.Buffer
	enc := yaml.NewEncoder(&buf)
	enc.SetIndent(2)
	if err := enc.Encode(node); err != nil {
		_ = enc.Close()
		return nil, err
	}
	if err := enc.Close(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// Fingerprint hashes every field except the fingerprint itself together with
// the body.
func Fingerprint(fields map[string]any, body []byte) (string, error) {
	hashed := make(map[string]any, len(fields))
	for k, v := range fields {
		if k != FingerprintField {
			hashed[k] = v
		}
	}
	serialized, err := Serialize(hashed)
	if err != nil {
		return "", err
	}
	return mdfp.CalculateFingerprintFromParts(strings.TrimSuffix(string(serialized), "\n"), string(body)), nil
}

// Stamp merges extra into the document's frontmatter, recomputes the
// fingerprint and returns the new document. Keys already set by the document
// win over extra.
func Stamp(content []byte, extra map[string]any) ([]byte, error) {
	fm, body, _, err := Split(content)
	if err != nil {
		return nil, err
	}
	fields, err := Parse(fm)
	if err != nil {
		return nil, err
	}
	for k, v := range extra {
		if _, ok := fields[k]; !ok {
			fields[k] = v
		}
	}
	fp, err := Fingerprint(fields, body)
	if err != nil {
		return nil, err
	}
	fields[FingerprintField] = fp

	out, err := Serialize(fields)
	if err != nil {
		return nil, err
	}
	return Join(out, body), nil
}

// Verify reports whether a stamped document still matches its fingerprint,
// which is false once it was edited by hand. Documents without a fingerprint
// are reported as not matching.
func Verify(content []byte) (bool, error) {
	fm, body, had, err := Split(content)
	if err != nil || !had {
		return false, err
	}
	fields, err := Parse(fm)
	if err != nil {
		return false, err
	}
	want, _ := fields[FingerprintField].(string)
	if want == "" {
		return false, nil
	}
	got, err := Fingerprint(fields, body)
	if err != nil {
		return false, err
	}
	return got == want, nil
}

func nodeFromMap(m map[string]any) (*yaml.Node, error) {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	n := &yaml.Node{Kind: yaml.MappingNode}
	for _, k := range keys {
		val, err := nodeFromAny(m[k])
		if err != nil {
			return nil, fmt.Errorf("field %s: %w", k, err)
		}
		n.Content = append(n.Content, &yaml.Node{Kind: yaml.ScalarNode, Tag: "!!str", Value: k}, val)
	}
	return n, nil
}

func nodeFromAny(v any) (*yaml.Node, error) {
	scalar := func(tag, value string) *yaml.Node {
		return &yaml.Node{Kind: yaml.ScalarNode, Tag: tag, Value: value}
	}
	switch vv := v.(type) {
	case nil:
		return scalar("!!null", "null"), nil
	case string:
		return scalar("!!str", vv), nil
	case bool:
		return scalar("!!bool", strconv.FormatBool(vv)), nil
	case int:
		return scalar("!!int", strconv.Itoa(vv)), nil
	case int64:
		return scalar("!!int", strconv.FormatInt(vv, 10)), nil
	case float64:
		return scalar("!!float", strconv.FormatFloat(vv, 'g', -1, 64)), nil
	case map[string]any:
		return nodeFromMap(vv)
	case []string:
		seq := &yaml.Node{Kind: yaml.SequenceNode}
		for _, s := range vv {
			seq.Content = append(seq.Content, scalar("!!str", s))
		}
		return seq, nil
	case []any:
		seq := &yaml.Node{Kind: yaml.SequenceNode}
		for _, item := range vv {
			n, err := nodeFromAny(item)
			if err != nil {
				return nil, err
			}
			seq.Content = append(seq.Content, n)
		}
		return seq, nil
	default:
		var n yaml.Node
		if err := n.Encode(v); err != nil {
			return nil, err
		}
		return &n, nil
	}
}
