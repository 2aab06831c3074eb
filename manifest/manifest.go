// Package manifest reads and writes jar manifests (META-INF/MANIFEST.MF).
// Logical header lines longer than 72 bytes are wrapped onto continuation
// lines, attribute names are case-insensitive, and both the main section
// and named entry sections keep insertion order.
package manifest

import (
	"bufio"
	"bytes"
	"fmt"
	"io"
	"strings"
)

// EntryName is the path of the manifest inside an archive.
const EntryName = "META-INF/MANIFEST.MF"

// Main attribute names with a defined position in the main section. The
// version attribute is always written first.
const (
	AttrManifestVersion  = "Manifest-Version"
	AttrSignatureVersion = "Signature-Version"
)

// maxLineLen is the longest physical line the jar spec allows, excluding
// the line terminator.
const maxLineLen = 72

// Attributes is an ordered set of manifest attributes. Names compare
// case-insensitively; the spelling of the first Set wins. The zero value is
// ready to use.
type Attributes struct {
	names  []string
	values map[string]string
}

// Set stores value under name, replacing any previous value.
func (a *Attributes) Set(name, value string) {
	if a.values == nil {
		a.values = make(map[string]string)
	}

	key := strings.ToLower(name)
	if _, ok := a.values[key]; !ok {
		a.names = append(a.names, name)
	}
	a.values[key] = value
}

// Get returns the value stored under name.
func (a *Attributes) Get(name string) (string, bool) {
	v, ok := a.values[strings.ToLower(name)]
	return v, ok
}

// Names returns the attribute names in insertion order.
func (a *Attributes) Names() []string {
	out := make([]string, len(a.names))
	copy(out, a.names)

	return out
}

// Len returns the number of attributes.
func (a *Attributes) Len() int {
	return len(a.names)
}

// Manifest is a jar manifest: a main attribute section plus any number of
// named entry sections.
type Manifest struct {
	// Main holds the attributes of the main section.
	Main Attributes

	entryNames []string
	entries    map[string]*Attributes
}

// New creates a manifest whose main section carries Manifest-Version 1.0.
func New() *Manifest {
	m := &Manifest{}
	m.Main.Set(AttrManifestVersion, "1.0")

	return m
}

// Entry returns the attributes of the named entry section, creating the
// section if it does not exist yet.
func (m *Manifest) Entry(name string) *Attributes {
	if attrs, ok := m.entries[name]; ok {
		return attrs
	}

	if m.entries == nil {
		m.entries = make(map[string]*Attributes)
	}

	attrs := &Attributes{}
	m.entries[name] = attrs
	m.entryNames = append(m.entryNames, name)

	return attrs
}

// EntryNames returns the entry section names in insertion order.
func (m *Manifest) EntryNames() []string {
	out := make([]string, len(m.entryNames))
	copy(out, m.entryNames)

	return out
}

// WriteTo writes the manifest in jar format: CRLF line endings, a blank
// line after every section and the version attribute first. It implements
// io.WriterTo.
func (m *Manifest) WriteTo(w io.Writer) (int64, error) {
	var buf bytes.Buffer

	versionName := ""
	if _, ok := m.Main.Get(AttrManifestVersion); ok {
		versionName = AttrManifestVersion
	} else if _, ok := m.Main.Get(AttrSignatureVersion); ok {
		versionName = AttrSignatureVersion
	}

	if versionName != "" {
		v, _ := m.Main.Get(versionName)
		writeLine(&buf, versionName, v)
	}
	for _, name := range m.Main.names {
		if strings.EqualFold(name, versionName) {
			continue
		}
		v, _ := m.Main.Get(name)
		writeLine(&buf, name, v)
	}
	buf.WriteString("\r\n")

	for _, entry := range m.entryNames {
		writeLine(&buf, "Name", entry)

		attrs := m.entries[entry]
		for _, name := range attrs.names {
			v, _ := attrs.Get(name)
			writeLine(&buf, name, v)
		}
		buf.WriteString("\r\n")
	}

	return buf.WriteTo(w)
}

// writeLine writes one logical header line, wrapped so no physical line
// exceeds 72 bytes. Continuation lines begin with a single space.
func writeLine(buf *bytes.Buffer, name, value string) {
	line := name + ": " + value
	for len(line) > maxLineLen {
		buf.WriteString(line[:maxLineLen])
		buf.WriteString("\r\n")
		line = " " + line[maxLineLen:]
	}
	buf.WriteString(line)
	buf.WriteString("\r\n")
}

// Parse reads a manifest. It accepts both CRLF and LF line endings, joins
// continuation lines and lets later duplicates of an attribute win.
func Parse(r io.Reader) (*Manifest, error) {
	scanner := bufio.NewScanner(r)

	var logical []string
	for scanner.Scan() {
		line := strings.TrimSuffix(scanner.Text(), "\r")
		if strings.HasPrefix(line, " ") {
			if len(logical) == 0 {
				return nil, fmt.Errorf("invalid manifest: continuation line before any attribute")
			}
			logical[len(logical)-1] += line[1:]
			continue
		}
		logical = append(logical, line)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("failed to read manifest: %w", err)
	}

	m := &Manifest{}
	section := &m.Main
	inMain := true
	startOfSection := true

	for _, line := range logical {
		if line == "" {
			if !startOfSection {
				inMain = false
			}
			startOfSection = true
			continue
		}

		name, value, ok := strings.Cut(line, ":")
		if !ok {
			return nil, fmt.Errorf("invalid manifest: malformed attribute line %q", line)
		}
		value = strings.TrimPrefix(value, " ")

		if startOfSection && !inMain {
			if !strings.EqualFold(name, "Name") {
				return nil, fmt.Errorf("invalid manifest: entry section must start with a Name attribute, got %q", name)
			}
			section = m.Entry(value)
			startOfSection = false
			continue
		}
		startOfSection = false

		section.Set(name, value)
	}

	return m, nil
}
