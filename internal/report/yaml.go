package report

import (
	"io"

	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"

	"github.com/dannyswat/xmlmerge"
	"github.com/dannyswat/xmlmerge/internal/pipeline"
)

// Report is the machine-readable record of a run.
type Report struct {
	Strategy  string     `yaml:"strategy"`
	Documents []Document `yaml:"documents"`
}

type Document struct {
	File      string           `yaml:"file"`
	Status    pipeline.Status  `yaml:"status"`
	Error     string           `yaml:"error,omitempty"`
	Variants  []VariantCounts  `yaml:"variants,omitempty"`
	Stats     *xmlmerge.Stats  `yaml:"stats,omitempty"`
	Conflicts []ConflictRecord `yaml:"conflicts,omitempty"`
	Races     []RaceRecord     `yaml:"races,omitempty"`
}

type VariantCounts struct {
	Name          string `yaml:"name"`
	Additions     int    `yaml:"additions"`
	Modifications int    `yaml:"modifications"`
	Removals      int    `yaml:"removals"`
}

type ConflictRecord struct {
	Address   string                  `yaml:"address"`
	Identity  string                  `yaml:"identity,omitempty"`
	Attribute string                  `yaml:"attribute,omitempty"`
	Values    []xmlmerge.VariantValue `yaml:"values"`
}

type RaceRecord struct {
	Removed   string `yaml:"removed"`
	RemovedBy string `yaml:"removed_by"`
	Edited    string `yaml:"edited"`
	EditedBy  string `yaml:"edited_by"`
}

// Build converts pipeline outcomes into a Report.
func Build(strategy xmlmerge.Strategy, outcomes []pipeline.Outcome) Report {
	r := Report{Strategy: strategy.String(), Documents: make([]Document, 0, len(outcomes))}
	for _, o := range outcomes {
		doc := Document{File: o.File, Status: o.Status}
		if o.Err != nil {
			doc.Error = o.Err.Error()
		}
		for _, cs := range o.ChangeSets {
			doc.Variants = append(doc.Variants, VariantCounts{
				Name:          cs.Source,
				Additions:     cs.Count(xmlmerge.ChangeAdd),
				Modifications: cs.Count(xmlmerge.ChangeModify),
				Removals:      cs.Count(xmlmerge.ChangeRemove),
			})
		}
		if o.Result != nil {
			stats := o.Result.Stats
			doc.Stats = &stats
			for _, c := range o.Result.Conflicts {
				doc.Conflicts = append(doc.Conflicts, ConflictRecord{
					Address:   c.Address.String(),
					Identity:  c.Identity,
					Attribute: c.Attribute,
					Values:    c.Values,
				})
			}
			for _, race := range o.Result.Races {
				doc.Races = append(doc.Races, RaceRecord{
					Removed:   race.Removal.Address.String(),
					RemovedBy: race.Removal.Source,
					Edited:    race.Edit.Address.String(),
					EditedBy:  race.Edit.Source,
				})
			}
		}
		r.Documents = append(r.Documents, doc)
	}
	return r
}

// WriteYAML encodes r to w.
func WriteYAML(w io.Writer, r Report) error {
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(r); err != nil {
		return errors.Wrap(err, "encode report")
	}
	return errors.Wrap(enc.Close(), "encode report")
}
