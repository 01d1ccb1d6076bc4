// Copyright 2024 The stm32boot Authors.
// Use of this source code is governed by a GPL license that can be found in the LICENSE file.

package catalog

import (
	"io"

	"gopkg.in/yaml.v2"
)

// document is the on-disk shape written by Export / read by LoadYAML.
// It exists only for cmd/stm32cat's human-inspection/round-trip use; the
// running driver always consumes the compiled Table above, never this.
type document struct {
	Devices []Device `yaml:"devices"`
}

// Export marshals Table to w as YAML, for inspection by cmd/stm32cat. It is
// never used by Session establishment, which always reads the compiled Go
// table directly.
func Export(w io.Writer, table []Device) error {
	enc := yaml.NewEncoder(w)
	defer enc.Close()
	return enc.Encode(document{Devices: table})
}

// LoadYAML parses a catalog YAML document previously written by Export. It
// is provided for cmd/stm32cat's own round-trip tests; nothing in the
// driver itself calls it, matching the "hot-reload is a non-goal" rule for
// the static catalog.
func LoadYAML(r io.Reader) ([]Device, error) {
	dec := yaml.NewDecoder(r)
	var doc document
	if err := dec.Decode(&doc); err != nil {
		return nil, err
	}
	return doc.Devices, nil
}
