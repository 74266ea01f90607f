package codec

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dannyswat/xmlmerge"
)

const sampleMap = `<?xml version="1.0" encoding="UTF-8"?>
<CMapData>
  <name>test_map</name>
  <entities>
    <Item guid="A" x="1"/>
    <Item>
      <guid value="B"/>
    </Item>
  </entities>
</CMapData>
`

func TestForFile(t *testing.T) {
	tests := []struct {
		name string
		ok   bool
		want Codec
	}{
		{"map.xml", true, XML{}},
		{"MAP.XML", true, XML{}},
		{"index.html", true, HTML{}},
		{"index.htm", true, HTML{}},
		{"notes.txt", false, nil},
		{"noext", false, nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c, ok := ForFile(tt.name)
			assert.Equal(t, tt.ok, ok)
			assert.Equal(t, tt.want, c)
			assert.Equal(t, tt.ok, Supported(tt.name))
		})
	}
}

func TestXMLParse(t *testing.T) {
	doc, err := XML{}.Parse("map.xml", []byte(sampleMap))
	require.NoError(t, err)

	assert.Equal(t, `<?xml version="1.0" encoding="UTF-8"?>`, doc.Declaration)
	root := doc.Root
	require.Equal(t, "CMapData", root.Tag)
	require.Len(t, root.Children, 2)
	assert.Empty(t, root.Text, "indentation should not be kept as text")

	assert.Equal(t, "test_map", root.Find("name").Text)

	entities := root.Find("entities")
	require.NotNil(t, entities)
	require.Len(t, entities.Children, 2)
	assert.Equal(t, "A", entities.Children[0].Identity())
	assert.Equal(t, "B", entities.Children[1].Identity())
	x, ok := entities.Children[0].GetAttr("x")
	assert.True(t, ok)
	assert.Equal(t, "1", x)
}

func TestXMLParseErrors(t *testing.T) {
	tests := []struct {
		name  string
		input string
	}{
		{"empty", ""},
		{"mismatched tags", "<a><b></a>"},
		{"unclosed", "<a><b/>"},
		{"two roots", "<a/><b/>"},
		{"text outside root", "hello<a/>"},
		{"bad attribute", `<a x=1/>`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := XML{}.Parse("bad.xml", []byte(tt.input))
			require.Error(t, err)
			var pe *xmlmerge.ParseError
			require.ErrorAs(t, err, &pe)
			assert.Equal(t, "bad.xml", pe.Source)
			assert.Contains(t, err.Error(), "bad.xml")
		})
	}
}

func TestXMLSerialize(t *testing.T) {
	root := xmlmerge.NewNode("Root")
	name := xmlmerge.NewNode("name")
	name.Text = "hi"
	root.AppendChild(name)
	root.AppendChild(xmlmerge.NewNode("Item", xmlmerge.Attribute{Key: "guid", Val: "A"}))
	nested := xmlmerge.NewNode("group")
	nested.AppendChild(xmlmerge.NewNode("leaf"))
	root.AppendChild(nested)

	out, err := XML{}.Serialize(&xmlmerge.Document{Root: root})
	require.NoError(t, err)

	want := `<?xml version="1.0" encoding="UTF-8"?>
<Root>
 <name>hi</name>
 <Item guid="A" />
 <group>
  <leaf />
 </group>
</Root>
`
	assert.Equal(t, want, string(out))
}

func TestXMLRoundTrip(t *testing.T) {
	inputs := map[string]string{
		"map":        sampleMap,
		"escaping":   `<a title="x &lt; y &amp; &quot;z&quot;">fish &amp; chips</a>`,
		"namespaces": `<x:Root xmlns:x="urn:x"><x:child x:k="v"/></x:Root>`,
		"mixed":      `<p>Hello <b>big</b> world</p>`,
		"doctype":    `<!DOCTYPE note SYSTEM "note.dtd"><note><to>Tove</to></note>`,
	}
	for name, input := range inputs {
		t.Run(name, func(t *testing.T) {
			doc, err := XML{}.Parse(name, []byte(input))
			require.NoError(t, err)

			out, err := XML{}.Serialize(doc)
			require.NoError(t, err)

			again, err := XML{}.Parse(name, out)
			require.NoError(t, err, string(out))
			assert.True(t, xmlmerge.Equal(doc.Root, again.Root), "round trip changed the tree:\n%s", out)
			assert.Equal(t, doc.Doctype, again.Doctype)
		})
	}
}

func TestXMLPreservesFraming(t *testing.T) {
	doc, err := XML{}.Parse("mixed.xml", []byte(`<p>Hello <b>big</b> world</p>`))
	require.NoError(t, err)
	b := doc.Root.Find("b")
	require.NotNil(t, b)
	assert.Equal(t, "Hello ", doc.Root.Text)
	assert.Equal(t, " world", b.Tail)

	doc, err = XML{}.Parse("ns.xml", []byte(`<x:Root xmlns:x="urn:x"><x:child/></x:Root>`))
	require.NoError(t, err)
	assert.Equal(t, "x:Root", doc.Root.Tag)
	v, ok := doc.Root.GetAttr("xmlns:x")
	assert.True(t, ok)
	assert.Equal(t, "urn:x", v)
}

func TestXMLCharset(t *testing.T) {
	input := []byte("<?xml version=\"1.0\" encoding=\"ISO-8859-1\"?><a>caf\xe9</a>")
	doc, err := XML{}.Parse("latin1.xml", input)
	require.NoError(t, err)
	assert.Equal(t, "café", doc.Root.Text)

	out, err := XML{}.Serialize(doc)
	require.NoError(t, err)
	assert.Contains(t, string(out), DefaultDeclaration)
	assert.Contains(t, string(out), "café")
}

func TestXMLSerializeRequiresRoot(t *testing.T) {
	_, err := XML{}.Serialize(&xmlmerge.Document{})
	assert.Error(t, err)
}

func TestHTMLParse(t *testing.T) {
	input := `<!DOCTYPE html><html><head><title>T</title></head><body><div id="main"><p>Hello <b>big</b> world</p></div></body></html>`
	doc, err := HTML{}.Parse("index.html", []byte(input))
	require.NoError(t, err)

	assert.Equal(t, "html", doc.Doctype)
	require.Equal(t, "html", doc.Root.Tag)
	body := doc.Root.Find("body")
	require.NotNil(t, body)
	div := body.Find("div")
	require.NotNil(t, div)
	id, _ := div.GetAttr("id")
	assert.Equal(t, "main", id)

	p := div.Find("p")
	require.NotNil(t, p)
	assert.Equal(t, "Hello ", p.Text)
	assert.Equal(t, " world", p.Find("b").Tail)
}

func TestHTMLRoundTrip(t *testing.T) {
	input := `<!DOCTYPE html><html><head><title>T</title></head><body><ul><li class="a">A</li><li>B</li></ul></body></html>`
	doc, err := HTML{}.Parse("index.html", []byte(input))
	require.NoError(t, err)

	out, err := HTML{}.Serialize(doc)
	require.NoError(t, err)
	assert.Equal(t, input, string(out))

	again, err := HTML{}.Parse("index.html", out)
	require.NoError(t, err)
	assert.True(t, xmlmerge.Equal(doc.Root, again.Root))
}
