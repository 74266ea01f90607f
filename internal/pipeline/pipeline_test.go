package pipeline

import (
	"context"
	"testing"

	"github.com/AlekSi/pointer"
	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/dannyswat/xmlmerge"
	"github.com/dannyswat/xmlmerge/internal/discovery"
	"github.com/dannyswat/xmlmerge/internal/ymap"
)

type fixture struct {
	fs   afero.Fs
	mods []string
}

func newFixture(t *testing.T, original string, mods map[string]string, order ...string) fixture {
	t.Helper()
	fs := afero.NewMemMapFs()
	if original != "" {
		require.NoError(t, afero.WriteFile(fs, "base/doc.xml", []byte(original), 0o644))
	}
	f := fixture{fs: fs}
	for _, name := range order {
		dir := "mods/" + name
		require.NoError(t, afero.WriteFile(fs, dir+"/doc.xml", []byte(mods[name]), 0o644))
		f.mods = append(f.mods, dir)
	}
	return f
}

func (f fixture) run(t *testing.T, r *Runner) ([]Outcome, error) {
	t.Helper()
	sets, err := discovery.Scan(f.fs, "base", f.mods)
	require.NoError(t, err)
	r.FS = f.fs
	r.Output = "out"
	return r.Run(context.Background(), sets)
}

func (f fixture) output(t *testing.T) string {
	t.Helper()
	data, err := afero.ReadFile(f.fs, "out/doc.xml")
	require.NoError(t, err)
	return string(data)
}

const base = `<Root><Item guid="A" x="1"/><Item guid="B" x="1"/></Root>`

var variants = map[string]string{
	"a": `<Root><Item guid="A" x="2"/><Item guid="B" x="1"/></Root>`,
	"b": `<Root><Item guid="A" x="3"/></Root>`,
}

func TestRunMerges(t *testing.T) {
	tests := []struct {
		name     string
		strategy xmlmerge.Strategy
		want     string
	}{
		{"last wins", xmlmerge.LastWins, "3"},
		{"first wins", xmlmerge.FirstWins, "2"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t, base, variants, "a", "b")
			outcomes, err := f.run(t, &Runner{Strategy: tt.strategy, Workers: 2})
			require.NoError(t, err)
			require.Len(t, outcomes, 1)

			o := outcomes[0]
			assert.Equal(t, StatusMerged, o.Status)
			require.Len(t, o.ChangeSets, 2)
			assert.Equal(t, "a", o.ChangeSets[0].Source)
			assert.Equal(t, "b", o.ChangeSets[1].Source)

			require.Len(t, o.Result.Conflicts, 1)
			assert.Equal(t, []xmlmerge.VariantValue{
				{Source: "a", Value: pointer.ToString("2")},
				{Source: "b", Value: pointer.ToString("3")},
			}, o.Result.Conflicts[0].Values)
			assert.Equal(t, 1, o.Result.Stats.Deletions)

			want := "<?xml version=\"1.0\" encoding=\"UTF-8\"?>\n<Root>\n <Item guid=\"A\" x=\"" + tt.want + "\" />\n</Root>\n"
			assert.Equal(t, want, f.output(t))
		})
	}
}

func TestRunFailOnConflict(t *testing.T) {
	f := newFixture(t, base, variants, "a", "b")
	outcomes, err := f.run(t, &Runner{Strategy: xmlmerge.FailOnConflict})
	require.Error(t, err)

	var ce *xmlmerge.ConflictError
	assert.ErrorAs(t, err, &ce)
	assert.Equal(t, StatusFailed, outcomes[0].Status)
	assert.Len(t, ConflictFailures(outcomes), 1)

	exists, err := afero.Exists(f.fs, "out/doc.xml")
	require.NoError(t, err)
	assert.False(t, exists, "no output is written for a rejected document")
}

func TestRunCopiesUntouchedOriginal(t *testing.T) {
	f := newFixture(t, base, nil)
	outcomes, err := f.run(t, &Runner{})
	require.NoError(t, err)
	assert.Equal(t, StatusCopied, outcomes[0].Status)
	assert.Equal(t, base, f.output(t))
}

func TestRunSkipsMissingOriginal(t *testing.T) {
	core, logs := observer.New(zapcore.WarnLevel)
	f := newFixture(t, "", variants, "a")
	outcomes, err := f.run(t, &Runner{Logger: zap.New(core)})
	require.NoError(t, err)
	assert.Equal(t, StatusSkipped, outcomes[0].Status)
	assert.Equal(t, 1, logs.FilterMessage("no original document, skipping").Len())
}

func TestRunIsolatesFailures(t *testing.T) {
	fs := afero.NewMemMapFs()
	files := map[string]string{
		"base/good.xml":   `<Root a="1"/>`,
		"base/bad.xml":    `<Root a="1"/>`,
		"mods/m/good.xml": `<Root a="2"/>`,
		"mods/m/bad.xml":  `<Root a="2">`,
	}
	for path, body := range files {
		require.NoError(t, afero.WriteFile(fs, path, []byte(body), 0o644))
	}
	f := fixture{fs: fs, mods: []string{"mods/m"}}

	outcomes, err := f.run(t, &Runner{Workers: 4})
	require.Error(t, err)

	var pe *xmlmerge.ParseError
	assert.ErrorAs(t, err, &pe)
	assert.Contains(t, err.Error(), "bad.xml")

	byFile := map[string]Outcome{}
	for _, o := range outcomes {
		byFile[o.File] = o
	}
	assert.Equal(t, StatusFailed, byFile["bad.xml"].Status)
	assert.Equal(t, StatusMerged, byFile["good.xml"].Status)

	data, err := afero.ReadFile(fs, "out/good.xml")
	require.NoError(t, err)
	assert.Contains(t, string(data), `<Root a="2" />`)
}

func TestRunLogsRaces(t *testing.T) {
	core, logs := observer.New(zapcore.WarnLevel)
	f := newFixture(t,
		`<Root><Group guid="G"><Item guid="A" x="1"/></Group></Root>`,
		map[string]string{
			"a": `<Root></Root>`,
			"b": `<Root><Group guid="G"><Item guid="A" x="2"/></Group></Root>`,
		}, "a", "b")

	outcomes, err := f.run(t, &Runner{Logger: zap.New(core)})
	require.NoError(t, err)
	require.Len(t, outcomes[0].Result.Races, 1)
	assert.Equal(t, 1, logs.FilterMessage("removal overlaps another variant's edit").Len())
	assert.Equal(t, "<?xml version=\"1.0\" encoding=\"UTF-8\"?>\n<Root />\n", f.output(t))
}

func TestRunPostProcessor(t *testing.T) {
	f := newFixture(t,
		`<CMapData><name>orig</name><entities><Item guid="A"/></entities></CMapData>`,
		map[string]string{
			"a": `<CMapData><name>renamed</name><entities><Item guid="A"/><Item guid="B"/></entities></CMapData>`,
		}, "a")

	outcomes, err := f.run(t, &Runner{PostProcessors: []xmlmerge.PostProcessor{ymap.Processor{}}})
	require.NoError(t, err)
	assert.Equal(t, StatusMerged, outcomes[0].Status)

	out := f.output(t)
	assert.Contains(t, out, "<name>orig</name>")
	assert.Contains(t, out, `<Item guid="B" />`)
}

func TestRunPostProcessorRejects(t *testing.T) {
	f := newFixture(t,
		`<CMapData><entities><Item guid="A"/></entities></CMapData>`,
		map[string]string{
			"a": `<CMapData><entities><Item guid="A"/><Junk/></entities></CMapData>`,
		}, "a")

	outcomes, err := f.run(t, &Runner{PostProcessors: []xmlmerge.PostProcessor{ymap.Processor{}}})
	require.Error(t, err)
	var ve *xmlmerge.ValidationError
	assert.ErrorAs(t, err, &ve)
	assert.Equal(t, StatusFailed, outcomes[0].Status)
}

func TestRunHonorsCancellation(t *testing.T) {
	f := newFixture(t, base, variants, "a")
	sets, err := discovery.Scan(f.fs, "base", f.mods)
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	outcomes, err := (&Runner{FS: f.fs, Output: "out"}).Run(ctx, sets)
	require.Error(t, err)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, StatusFailed, outcomes[0].Status)
}
