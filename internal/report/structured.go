package report

import (
	"io"

	"github.com/pelletier/go-toml/v2"
	"gopkg.in/yaml.v3"

	"da/internal/output"
)

func renderJSON(w io.Writer, rep *Report, places int) error {
	data, err := output.DeterministicEncodeIndented(rep, "  ", places)
	if err != nil {
		return err
	}
	_, err = w.Write(data)
	return err
}

func renderYAML(w io.Writer, rep *Report, places int) error {
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(rep.rounded(places)); err != nil {
		return err
	}
	return enc.Close()
}

func renderTOML(w io.Writer, rep *Report, places int) error {
	enc := toml.NewEncoder(w)
	enc.SetIndentTables(true)
	return enc.Encode(rep.rounded(places))
}
